package contracts

import "io"

type ITokenBudget interface {
	TryCommit(tokens int, sizeBytes int64) bool
	Fits(tokens int) bool
	TotalTokens() int
	TotalSize() int64
	Ceiling() int
	Remaining() int
	DisplayTokens(out io.Writer)
}
