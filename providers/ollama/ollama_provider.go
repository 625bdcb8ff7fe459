package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meysamhadeli/dafc/providers/contracts"
	"github.com/meysamhadeli/dafc/providers/models"
	ollama_models "github.com/meysamhadeli/dafc/providers/ollama/models"
	"go.uber.org/zap"
)

// OllamaConfig configures a provider for a local Ollama server.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

type ollamaProvider struct {
	baseURL     string
	model       string
	temperature float32
	client      *http.Client
	logger      *zap.Logger
}

// NewOllamaChatProvider initializes a streaming chat provider for Ollama's /chat endpoint.
func NewOllamaChatProvider(config *OllamaConfig) contracts.IChatAIProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ollamaProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       config.Model,
		temperature: config.Temperature,
		client:      client,
		logger:      logger,
	}
}

func (p *ollamaProvider) ChatCompletionRequest(ctx context.Context, userInput string, systemPrompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	go func() {
		defer close(responseChan)

		send := func(response models.StreamResponse) bool {
			select {
			case responseChan <- response:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var messages []ollama_models.Message
		if systemPrompt != "" {
			messages = append(messages, ollama_models.Message{Role: "system", Content: systemPrompt})
		}
		messages = append(messages, ollama_models.Message{Role: "user", Content: userInput})

		reqBody := ollama_models.OllamaChatCompletionRequest{
			Model:    p.model,
			Messages: messages,
			Stream:   true,
		}
		if p.temperature != 0 {
			reqBody.Options = &ollama_models.Options{Temperature: p.temperature}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %w", err)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat", p.baseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error creating request: %w", err)})
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error sending request: %w", err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			send(models.StreamResponse{Err: readAPIError(resp)})
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				var response ollama_models.OllamaChatCompletionResponse
				if jsonErr := json.Unmarshal(line, &response); jsonErr != nil {
					send(models.StreamResponse{Err: fmt.Errorf("error unmarshalling chunk: %w", jsonErr)})
					return
				}

				if response.Message.Content != "" {
					if !send(models.StreamResponse{Content: response.Message.Content}) {
						return
					}
				}

				if response.Done {
					p.logger.Debug("ollama usage",
						zap.String("model", p.model),
						zap.Int("prompt_tokens", response.PromptEvalCount),
						zap.Int("completion_tokens", response.EvalCount))
					send(models.StreamResponse{Done: true})
					return
				}
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					// The server closed the stream before reporting completion.
					err = io.ErrUnexpectedEOF
				}
				send(models.StreamResponse{Err: fmt.Errorf("error reading stream: %w", err)})
				return
			}
		}
	}()

	return responseChan
}

func readAPIError(resp *http.Response) error {
	apiErr := &models.APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(resp.Body)
	var ollamaErr ollama_models.OllamaError
	if err := json.Unmarshal(body, &ollamaErr); err == nil && ollamaErr.Error != "" {
		apiErr.Message = ollamaErr.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}
