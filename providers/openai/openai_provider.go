package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/meysamhadeli/dafc/providers/contracts"
	"github.com/meysamhadeli/dafc/providers/models"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig configures a provider for any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	ApiKey      string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	appReferer     = "https://github.com/meysamhadeli/dafc"
	appTitle       = "DAFC CLI"
)

type openAIProvider struct {
	client      *goopenai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIChatProvider initializes a streaming chat provider backed by go-openai.
func NewOpenAIChatProvider(config *OpenAIConfig) contracts.IChatAIProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{}
	if config.HTTPClient != nil {
		clientCopy := *config.HTTPClient
		httpClient = &clientCopy
	}
	httpClient.Transport = &headerTransport{
		base: httpClient.Transport,
		headers: map[string]string{
			// OpenRouter attributes requests with these headers; other endpoints ignore them.
			"HTTP-Referer": appReferer,
			"X-Title":      appTitle,
		},
	}

	clientConfig := goopenai.DefaultConfig(config.ApiKey)
	clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	clientConfig.HTTPClient = httpClient

	return &openAIProvider{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		temperature: config.Temperature,
		logger:      logger,
	}
}

func (p *openAIProvider) ChatCompletionRequest(ctx context.Context, userInput string, systemPrompt string) <-chan models.StreamResponse {
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

		var messages []goopenai.ChatCompletionMessage
		if systemPrompt != "" {
			messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt})
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: userInput})

		p.logger.Debug("opening chat completion stream", zap.String("model", p.model), zap.Int("messages", len(messages)))

		stream, err := p.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
			Model:       p.model,
			Messages:    messages,
			Temperature: p.temperature,
			Stream:      true,
		})
		if err != nil {
			send(models.StreamResponse{Err: toProviderError(err)})
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(models.StreamResponse{Done: true})
				return
			}
			if err != nil {
				send(models.StreamResponse{Err: toProviderError(err)})
				return
			}

			if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(models.StreamResponse{Content: response.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return responseChan
}

// toProviderError maps go-openai failures to models.APIError so callers can classify them
// without knowing the client library. Transport errors pass through unchanged.
func toProviderError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &models.APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Code:       codeString(apiErr.Code),
			Type:       apiErr.Type,
			Message:    apiErr.Message,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		message := ""
		if reqErr.Err != nil {
			message = reqErr.Err.Error()
		}
		return &models.APIError{StatusCode: reqErr.HTTPStatusCode, Message: message}
	}

	// go-openai reports non-JSON error bodies as plain errors carrying only the status text.
	if match := statusCodePattern.FindStringSubmatch(err.Error()); match != nil {
		statusCode, _ := strconv.Atoi(match[1])
		return &models.APIError{StatusCode: statusCode, Message: err.Error()}
	}

	return err
}

var statusCodePattern = regexp.MustCompile(`^error, status code: (\d{3})`)

func codeString(code any) string {
	if code == nil {
		return ""
	}
	return fmt.Sprint(code)
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	for key, value := range t.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
	return base.RoundTrip(req)
}
