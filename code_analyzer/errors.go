package code_analyzer

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is matched by every BudgetExceededError.
var ErrBudgetExceeded = errors.New("context token budget exceeded")

// BudgetExceededError reports the unit whose commit would have crossed the token ceiling.
// Path is empty when the boilerplate or the rules document alone crossed it.
type BudgetExceededError struct {
	Limit    int
	Current  int
	Incoming int
	Path     string
	Source   string
}

func (e *BudgetExceededError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("context limit (%d tokens) exceeded by %s alone. Estimated tokens: %d",
			e.Limit, e.Source, e.Current+e.Incoming)
	}
	return fmt.Sprintf("context limit (%d tokens) exceeded while adding file: %s. Current estimated tokens: %d. File estimated tokens: %d",
		e.Limit, e.Path, e.Current, e.Incoming)
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}
