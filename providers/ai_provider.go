package providers

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/dafc/providers/contracts"
	"github.com/meysamhadeli/dafc/providers/ollama"
	"github.com/meysamhadeli/dafc/providers/openai"
	"go.uber.org/zap"
)

// AIProviderConfig holds the connection settings of the chat provider.
type AIProviderConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	ApiKey      string  `mapstructure:"api_key"`
}

// ChatProviderFactory creates the chat provider named by config.Provider.
func ChatProviderFactory(config *AIProviderConfig, logger *zap.Logger) (contracts.IChatAIProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("missing ai provider config")
	}

	switch strings.ToLower(config.Provider) {
	case "openai", "openrouter", "":
		return openai.NewOpenAIChatProvider(&openai.OpenAIConfig{
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			Temperature: config.Temperature,
			ApiKey:      config.ApiKey,
			Logger:      logger,
		}), nil
	case "ollama":
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			Temperature: config.Temperature,
			Logger:      logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider '%s' (supported: openai, ollama)", config.Provider)
	}
}
