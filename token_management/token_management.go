package token_management

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/meysamhadeli/dafc/constants/lipgloss"
	"github.com/meysamhadeli/dafc/token_management/contracts"
)

// CharsPerToken is the average number of characters per token used for estimation.
// Estimates are approximate and intentionally conservative; no tokenizer is consulted.
const CharsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(characters / CharsPerToken).
func EstimateTokens(text string) int {
	characters := utf8.RuneCountInString(text)
	return (characters + CharsPerToken - 1) / CharsPerToken
}

// tokenBudget tracks the running totals of one context traversal.
type tokenBudget struct {
	ceiling     int
	totalTokens int
	totalSize   int64
}

// NewTokenBudget creates an empty budget that never lets its token total exceed ceiling.
func NewTokenBudget(ceiling int) contracts.ITokenBudget {
	return &tokenBudget{ceiling: ceiling}
}

// Fits reports whether tokens more could be committed without crossing the ceiling.
func (tb *tokenBudget) Fits(tokens int) bool {
	return tb.totalTokens+tokens <= tb.ceiling
}

// TryCommit adds tokens and sizeBytes to the running totals when they fit.
// Totals are left untouched when the ceiling would be crossed.
func (tb *tokenBudget) TryCommit(tokens int, sizeBytes int64) bool {
	if tokens < 0 || sizeBytes < 0 || !tb.Fits(tokens) {
		return false
	}
	tb.totalTokens += tokens
	tb.totalSize += sizeBytes
	return true
}

func (tb *tokenBudget) TotalTokens() int {
	return tb.totalTokens
}

func (tb *tokenBudget) TotalSize() int64 {
	return tb.totalSize
}

func (tb *tokenBudget) Ceiling() int {
	return tb.ceiling
}

func (tb *tokenBudget) Remaining() int {
	if tb.totalTokens >= tb.ceiling {
		return 0
	}
	return tb.ceiling - tb.totalTokens
}

// DisplayTokens prints the budget usage in a box.
func (tb *tokenBudget) DisplayTokens(out io.Writer) {
	usage := 0.0
	if tb.ceiling > 0 {
		usage = float64(tb.totalTokens) / float64(tb.ceiling) * 100
	}

	tokenInfo := fmt.Sprintf("Context Tokens: ~%s / %s (%.1f%%)",
		humanize.Comma(int64(tb.totalTokens)), humanize.Comma(int64(tb.ceiling)), usage)

	fmt.Fprintln(out, lipgloss.BoxStyle.Render(tokenInfo))
}
