package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meysamhadeli/dafc/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved configuration of one dafc invocation. It is built once by LoadConfigs
// and passed by pointer to the components that need it.
type Config struct {
	TokenCeiling       int                         `mapstructure:"token_ceiling"`
	PerFileByteCeiling int64                       `mapstructure:"per_file_byte_ceiling"`
	MaxRetries         int                         `mapstructure:"max_retries"`
	BaseDelayMs        int                         `mapstructure:"base_delay_ms"`
	ResponseFileName   string                      `mapstructure:"response_file_name"`
	ContextFileName    string                      `mapstructure:"context_file_name"`
	IgnoreFileName     string                      `mapstructure:"ignore_file_name"`
	RulesFileName      string                      `mapstructure:"rules_file_name"`
	GitIgnoreFileName  string                      `mapstructure:"gitignore_file_name"`
	Verbose            bool                        `mapstructure:"verbose"`
	Theme              string                      `mapstructure:"theme"`
	AIProviderConfig   *providers.AIProviderConfig `mapstructure:"ai_provider_config"`
}

// DefaultConfig values
var DefaultConfig = Config{
	TokenCeiling:       900000,
	PerFileByteCeiling: 1024 * 1024,
	MaxRetries:         5,
	BaseDelayMs:        1000,
	ResponseFileName:   "response.md",
	ContextFileName:    "context.md",
	IgnoreFileName:     ".dafcignore",
	RulesFileName:      ".dafcr",
	GitIgnoreFileName:  ".gitignore",
	Verbose:            false,
	Theme:              "dracula",
	AIProviderConfig: &providers.AIProviderConfig{
		Provider:    "openai",
		BaseURL:     "https://openrouter.ai/api/v1",
		Model:       "google/gemini-2.5-pro-exp-03-25:free",
		Temperature: 0.3,
		ApiKey:      "",
	},
}

const configFileName = "dafc-config"

// MaxRetriesLimit bounds max_retries so the exponential backoff stays representable.
const MaxRetriesLimit = 30

var configFileExtensions = []string{".yaml", ".yml", ".json"}

// LoadConfigs merges defaults, the global config file, the project config file, environment
// variables and CLI flags (in increasing precedence) into a Config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	explicitFile := ""
	if flag := rootCmd.PersistentFlags().Lookup("config"); flag != nil {
		explicitFile = flag.Value.String()
	}

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file '%s': %w", explicitFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := mergeConfigFile(v, filepath.Join(home, ".config", "dafc")); err != nil {
				return nil, err
			}
		}
		if err := mergeConfigFile(v, cwd); err != nil {
			return nil, err
		}
	}

	if err := bindFlags(v, rootCmd); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

// mergeConfigFile merges dafc-config.{yaml,yml,json} from dir when present.
func mergeConfigFile(v *viper.Viper, dir string) error {
	for _, ext := range configFileExtensions {
		path := filepath.Join(dir, configFileName+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("error reading config file '%s': %w", path, err)
		}
		return nil
	}
	return nil
}

// Validate rejects values the assembler and query client cannot work with.
func (c *Config) Validate(requireAPIKey bool) error {
	var errs []error

	if c.TokenCeiling <= 0 {
		errs = append(errs, fmt.Errorf("token ceiling must be positive, got %d", c.TokenCeiling))
	}
	if c.PerFileByteCeiling <= 0 {
		errs = append(errs, fmt.Errorf("per-file byte ceiling must be positive, got %d", c.PerFileByteCeiling))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	} else if c.MaxRetries > MaxRetriesLimit {
		errs = append(errs, fmt.Errorf("max retries must be at most %d, got %d", MaxRetriesLimit, c.MaxRetries))
	}
	if c.BaseDelayMs < 0 {
		errs = append(errs, fmt.Errorf("base delay must not be negative, got %d", c.BaseDelayMs))
	}
	if c.ResponseFileName == "" {
		errs = append(errs, errors.New("response file name must not be empty"))
	}
	if c.ContextFileName == "" {
		errs = append(errs, errors.New("context file name must not be empty"))
	}

	if requireAPIKey {
		if c.AIProviderConfig == nil {
			errs = append(errs, errors.New("missing ai provider config"))
		} else if c.AIProviderConfig.ApiKey == "" && !strings.EqualFold(c.AIProviderConfig.Provider, "ollama") {
			errs = append(errs, errors.New("api key is not set (use OPENROUTER_API_KEY, OPENAI_API_KEY or --api_key)"))
		}
	}

	return errors.Join(errs...)
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("token_ceiling", DefaultConfig.TokenCeiling)
	v.SetDefault("per_file_byte_ceiling", DefaultConfig.PerFileByteCeiling)
	v.SetDefault("max_retries", DefaultConfig.MaxRetries)
	v.SetDefault("base_delay_ms", DefaultConfig.BaseDelayMs)
	v.SetDefault("response_file_name", DefaultConfig.ResponseFileName)
	v.SetDefault("context_file_name", DefaultConfig.ContextFileName)
	v.SetDefault("ignore_file_name", DefaultConfig.IgnoreFileName)
	v.SetDefault("rules_file_name", DefaultConfig.RulesFileName)
	v.SetDefault("gitignore_file_name", DefaultConfig.GitIgnoreFileName)
	v.SetDefault("verbose", DefaultConfig.Verbose)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.temperature", DefaultConfig.AIProviderConfig.Temperature)
	v.SetDefault("ai_provider_config.api_key", DefaultConfig.AIProviderConfig.ApiKey)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("token_ceiling", "DAFC_MAX_CONTEXT_TOKENS")
	_ = v.BindEnv("per_file_byte_ceiling", "DAFC_MAX_FILE_SIZE_BYTES")
	_ = v.BindEnv("max_retries", "DAFC_MAX_RETRIES")
	_ = v.BindEnv("base_delay_ms", "DAFC_BASE_DELAY_MS")
	_ = v.BindEnv("response_file_name", "DAFC_RESPONSE_FILE")
	_ = v.BindEnv("context_file_name", "DAFC_CONTEXT_FILE")
	_ = v.BindEnv("verbose", "DAFC_VERBOSE")
	_ = v.BindEnv("theme", "DAFC_THEME")
	_ = v.BindEnv("ai_provider_config.provider", "DAFC_PROVIDER")
	_ = v.BindEnv("ai_provider_config.base_url", "DAFC_API_BASE_URL")
	_ = v.BindEnv("ai_provider_config.model", "DAFC_MODEL")
	_ = v.BindEnv("ai_provider_config.temperature", "DAFC_TEMPERATURE")
	// The first variable that is set wins.
	_ = v.BindEnv("ai_provider_config.api_key", "OPENROUTER_API_KEY", "OPENAI_API_KEY")
}

var flagKeys = map[string]string{
	"max_context_tokens": "token_ceiling",
	"max_retries":        "max_retries",
	"verbose":            "verbose",
	"theme":              "theme",
	"provider":           "ai_provider_config.provider",
	"base_url":           "ai_provider_config.base_url",
	"model":              "ai_provider_config.model",
	"temperature":        "ai_provider_config.temperature",
	"api_key":            "ai_provider_config.api_key",
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) error {
	for flagName, key := range flagKeys {
		flag := rootCmd.PersistentFlags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag '%s': %w", flagName, err)
		}
	}
	return nil
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringP("config", "c", "", "Specifies the path to a configuration file (JSON or YAML). Replaces the global and project config files.")

	rootCmd.PersistentFlags().Bool("verbose", DefaultConfig.Verbose, "Print debug logs to stderr.")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for buffering response from ai. (e.g., 'dracula', 'light', 'dark')")
	rootCmd.PersistentFlags().Int("max_context_tokens", DefaultConfig.TokenCeiling, "Approximate token ceiling for the gathered context.")
	rootCmd.PersistentFlags().Int("max_retries", DefaultConfig.MaxRetries, "Number of retries for rate-limited or transient provider failures.")

	// AI Provider configuration
	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "The name of the AI provider ('openai' for any OpenAI-compatible endpoint such as OpenRouter, or 'ollama').")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "The base URL of the AI provider.")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "The name of the model used for chat completions.")
	rootCmd.PersistentFlags().Float32("temperature", DefaultConfig.AIProviderConfig.Temperature, "Adjusts the AI model's creativity (0-1).")
	rootCmd.PersistentFlags().String("api_key", DefaultConfig.AIProviderConfig.ApiKey, "The API key used to authenticate with the AI service provider.")
}
