package contracts

import (
	"context"

	"github.com/meysamhadeli/dafc/providers/models"
)

type IChatAIProvider interface {
	// ChatCompletionRequest streams the reply to userInput. An empty systemPrompt sends no system message.
	// The channel ends with a Done response on success or a single Err response on failure.
	ChatCompletionRequest(ctx context.Context, userInput string, systemPrompt string) <-chan models.StreamResponse
}
