package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

const (
	defaultFormatter = "terminal256"
	markdownLanguage = "markdown"
)

// MarkdownRenderer highlights a streamed markdown response line by line.
// Partial lines are held back until their newline arrives or Flush is called.
type MarkdownRenderer struct {
	out         io.Writer
	theme       string
	formatter   string
	pending     strings.Builder
	isCodeBlock bool
	language    string
}

// NewMarkdownRenderer creates a renderer writing highlighted output to out.
func NewMarkdownRenderer(out io.Writer, theme string) *MarkdownRenderer {
	return &MarkdownRenderer{
		out:       out,
		theme:     theme,
		formatter: defaultFormatter,
		language:  markdownLanguage,
	}
}

// WithFormatter overrides the chroma formatter ("noop" writes tokens verbatim).
func (r *MarkdownRenderer) WithFormatter(formatter string) *MarkdownRenderer {
	r.formatter = formatter
	return r
}

// Write accepts a chunk of the response and renders every completed line.
func (r *MarkdownRenderer) Write(p []byte) (int, error) {
	r.pending.Write(p)

	buffered := r.pending.String()
	lastNewline := strings.LastIndex(buffered, "\n")
	if lastNewline < 0 {
		return len(p), nil
	}

	r.pending.Reset()
	r.pending.WriteString(buffered[lastNewline+1:])

	for _, line := range strings.Split(buffered[:lastNewline], "\n") {
		if err := r.renderLine(line, true); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush renders whatever is left of an unterminated last line.
func (r *MarkdownRenderer) Flush() error {
	if r.pending.Len() == 0 {
		return nil
	}
	line := r.pending.String()
	r.pending.Reset()
	return r.renderLine(line, false)
}

// Reset ends an interrupted stream. A held-back partial line is rendered and terminated, and the
// code block state is cleared so the next stream starts as plain markdown.
func (r *MarkdownRenderer) Reset() error {
	hadPending := r.pending.Len() > 0
	err := r.Flush()
	if hadPending && err == nil {
		_, err = fmt.Fprintln(r.out)
	}
	r.isCodeBlock = false
	r.language = markdownLanguage
	return err
}

func (r *MarkdownRenderer) renderLine(line string, newline bool) error {
	suffix := ""
	if newline {
		suffix = "\n"
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "```") {
		r.isCodeBlock = !r.isCodeBlock
		r.language = markdownLanguage
		if r.isCodeBlock {
			r.language = DetectLanguageFromCodeBlock(trimmed)
		}
		_, err := fmt.Fprint(r.out, line+suffix)
		return err
	}

	if r.isCodeBlock && strings.HasPrefix(line, "+") {
		_, err := fmt.Fprint(r.out, "\x1b[92m"+line+"\x1b[0m"+suffix)
		return err
	}
	if r.isCodeBlock && strings.HasPrefix(line, "-") {
		_, err := fmt.Fprint(r.out, "\x1b[91m"+line+"\x1b[0m"+suffix)
		return err
	}

	return quick.Highlight(r.out, line+suffix, r.language, r.formatter, r.theme)
}

// DetectLanguageFromCodeBlock returns the info string of an opening fence, or "markdown".
func DetectLanguageFromCodeBlock(fence string) string {
	language := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(fence), "`"))
	if fields := strings.Fields(language); len(fields) > 0 {
		return fields[0]
	}
	return markdownLanguage
}
