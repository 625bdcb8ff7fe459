package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "dafc"}
	InitFlags(cmd)
	return cmd
}

// isolateEnv points HOME at an empty directory and clears the variables LoadConfigs reads.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "DAFC_MODEL", "DAFC_API_BASE_URL",
		"DAFC_MAX_CONTEXT_TOKENS", "DAFC_MAX_RETRIES", "DAFC_PROVIDER", "DAFC_THEME", "DAFC_CONTEXT_FILE",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigs_Defaults(t *testing.T) {
	isolateEnv(t)

	config, err := LoadConfigs(newTestCommand(t), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 900000, config.TokenCeiling)
	assert.Equal(t, int64(1024*1024), config.PerFileByteCeiling)
	assert.Equal(t, 5, config.MaxRetries)
	assert.Equal(t, 1000, config.BaseDelayMs)
	assert.Equal(t, "response.md", config.ResponseFileName)
	assert.Equal(t, "context.md", config.ContextFileName)
	assert.Equal(t, ".dafcignore", config.IgnoreFileName)
	assert.Equal(t, ".dafcr", config.RulesFileName)
	assert.Equal(t, ".gitignore", config.GitIgnoreFileName)
	require.NotNil(t, config.AIProviderConfig)
	assert.Equal(t, "openai", config.AIProviderConfig.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1", config.AIProviderConfig.BaseURL)
	assert.InDelta(t, 0.3, config.AIProviderConfig.Temperature, 0.0001)
}

func TestLoadConfigs_ProjectFileOverridesGlobalFile(t *testing.T) {
	home := isolateEnv(t)
	cwd := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "dafc", "dafc-config.yaml"), `
max_retries: 2
ai_provider_config:
  model: global-model
  api_key: global-key
`)
	writeFile(t, filepath.Join(cwd, "dafc-config.json"), `{"ai_provider_config": {"model": "project-model"}}`)

	config, err := LoadConfigs(newTestCommand(t), cwd)
	require.NoError(t, err)

	assert.Equal(t, 2, config.MaxRetries)
	assert.Equal(t, "project-model", config.AIProviderConfig.Model)
	assert.Equal(t, "global-key", config.AIProviderConfig.ApiKey)
}

func TestLoadConfigs_EnvironmentOverridesFiles(t *testing.T) {
	isolateEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "dafc-config.yaml"), "token_ceiling: 1000\nai_provider_config:\n  model: file-model\n")

	t.Setenv("DAFC_MODEL", "env-model")
	t.Setenv("DAFC_MAX_CONTEXT_TOKENS", "5000")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	config, err := LoadConfigs(newTestCommand(t), cwd)
	require.NoError(t, err)

	assert.Equal(t, "env-model", config.AIProviderConfig.Model)
	assert.Equal(t, 5000, config.TokenCeiling)
	assert.Equal(t, "openai-key", config.AIProviderConfig.ApiKey)
}

func TestLoadConfigs_OpenRouterKeyWinsOverOpenAIKey(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	config, err := LoadConfigs(newTestCommand(t), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "router-key", config.AIProviderConfig.ApiKey)
}

func TestLoadConfigs_FlagsOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DAFC_MODEL", "env-model")

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("model", "flag-model"))
	require.NoError(t, cmd.PersistentFlags().Set("max_context_tokens", "42"))

	config, err := LoadConfigs(cmd, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "flag-model", config.AIProviderConfig.Model)
	assert.Equal(t, 42, config.TokenCeiling)
}

func TestLoadConfigs_ExplicitConfigFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "response_file_name: answer.md\n")

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", path))

	config, err := LoadConfigs(cmd, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "answer.md", config.ResponseFileName)
}

func TestLoadConfigs_ContextFileFromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DAFC_CONTEXT_FILE", "snapshot.md")

	config, err := LoadConfigs(newTestCommand(t), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "snapshot.md", config.ContextFileName)
}

func TestLoadConfigs_MissingExplicitConfigFile(t *testing.T) {
	isolateEnv(t)
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := LoadConfigs(cmd, t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfigs_MalformedProjectFile(t *testing.T) {
	isolateEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "dafc-config.json"), "{not json")

	_, err := LoadConfigs(newTestCommand(t), cwd)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config := DefaultConfig
		provider := *DefaultConfig.AIProviderConfig
		provider.ApiKey = "key"
		config.AIProviderConfig = &provider
		return &config
	}

	assert.NoError(t, valid().Validate(true))

	config := valid()
	config.TokenCeiling = 0
	assert.Error(t, config.Validate(false))

	config = valid()
	config.MaxRetries = -1
	assert.Error(t, config.Validate(false))

	config = valid()
	config.MaxRetries = MaxRetriesLimit
	assert.NoError(t, config.Validate(false))
	config.MaxRetries = MaxRetriesLimit + 1
	assert.Error(t, config.Validate(false))

	config = valid()
	config.ContextFileName = ""
	assert.Error(t, config.Validate(false))

	config = valid()
	config.AIProviderConfig.ApiKey = ""
	assert.NoError(t, config.Validate(false))
	assert.Error(t, config.Validate(true))

	config.AIProviderConfig.Provider = "ollama"
	assert.NoError(t, config.Validate(true))
}
