package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/meysamhadeli/dafc/code_analyzer"
	contracts_analyzer "github.com/meysamhadeli/dafc/code_analyzer/contracts"
	"github.com/meysamhadeli/dafc/code_analyzer/models"
	"github.com/meysamhadeli/dafc/config"
	"github.com/meysamhadeli/dafc/constants/lipgloss"
	"github.com/meysamhadeli/dafc/providers"
	contracts_provider "github.com/meysamhadeli/dafc/providers/contracts"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

// RootDependencies holds everything a subcommand needs, built once per invocation.
type RootDependencies struct {
	Config              *config.Config
	Cwd                 string
	Logger              *zap.Logger
	Analyzer            contracts_analyzer.IContextAssembler
	CurrentChatProvider contracts_provider.IChatAIProvider
}

var rootCmd = &cobra.Command{
	Use:     "dafc [prompt]",
	Short:   "Gather your codebase into one bounded context and ask an LLM about it.",
	Version: version,
	Long: `dafc walks the current directory, keeps the files allowed by the built-in rules, .gitignore and
.dafcignore, and packs them into a single context document within a token budget.
Running 'dafc <prompt>' is the same as 'dafc ask <prompt>'.`,
	Args: cobra.ArbitraryArgs,
}

// runRoot is attached in init to avoid an initialization cycle through handleRootCommand.
func runRoot(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		_ = cmd.Help()
		return
	}
	rootDependencies := handleRootCommand(cmd, true)
	handleAskCommand(rootDependencies, args)
}

// handleRootCommand loads and validates the config and wires the shared dependencies.
// It exits the process on failure.
func handleRootCommand(cmd *cobra.Command, requireProvider bool) *RootDependencies {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(fmt.Errorf("error getting current directory: %w", err))
	}

	cfg, err := config.LoadConfigs(rootCmd, cwd)
	if err != nil {
		exitWithError(err)
	}

	if err := cfg.Validate(requireProvider); err != nil {
		exitWithError(err)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		exitWithError(fmt.Errorf("error initializing logger: %w", err))
	}

	rootDependencies := &RootDependencies{
		Config:   cfg,
		Cwd:      cwd,
		Logger:   logger,
		Analyzer: code_analyzer.NewCodeAnalyzer(cwd, cfg, logger),
	}

	if requireProvider {
		rootDependencies.CurrentChatProvider, err = providers.ChatProviderFactory(cfg.AIProviderConfig, logger)
		if err != nil {
			exitWithError(err)
		}
	}

	return rootDependencies
}

func newLogger(verbose bool) (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	loggerConfig.Encoding = "console"
	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}
	loggerConfig.DisableStacktrace = true

	return loggerConfig.Build()
}

// gatherContext runs the assembler behind a spinner. A budget failure ends the command.
func gatherContext(rootDependencies *RootDependencies) *models.ProjectContext {
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerLoadContext, _ := spinner.Start("Loading Context...")

	projectContext, err := rootDependencies.Analyzer.GatherContext(rootDependencies.Cwd)

	if spinnerLoadContext != nil {
		_ = spinnerLoadContext.Stop()
		fmt.Print("\r")
	}

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("❌ %v", err)))
		if errors.Is(err, code_analyzer.ErrBudgetExceeded) {
			fmt.Println(lipgloss.Yellow.Render("Consider excluding more files/directories using .gitignore or .dafcignore, or raising max_context_tokens."))
		}
		_ = rootDependencies.Logger.Sync()
		os.Exit(1)
	}

	return projectContext
}

func exitWithError(err error) {
	fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
	os.Exit(1)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

func init() {
	rootCmd.Run = runRoot
	config.InitFlags(rootCmd)
}
