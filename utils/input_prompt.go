package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/dafc/constants/lipgloss"
)

// InputPrompt asks for the request text when none was passed on the command line.
func InputPrompt(reader *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, lipgloss.BlueSky.Render("What should the model do? > "))

	userInput, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading input: %w", err)
	}

	return strings.TrimSpace(userInput), nil
}
