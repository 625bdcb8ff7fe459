package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/meysamhadeli/dafc/code_analyzer"
	"github.com/meysamhadeli/dafc/constants/lipgloss"
	"github.com/meysamhadeli/dafc/query_client"
	"github.com/meysamhadeli/dafc/utils"
	"github.com/spf13/cobra"
)

// askCmd: dafc ask <prompt>
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send the project context and a prompt to the model and stream the answer.",
	Long: `The 'ask' subcommand gathers the project context, sends it with your prompt to the configured
model, streams the answer to the terminal and saves the full answer to the response file.
Rate limits and network failures are retried with exponential backoff.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd, true)
		handleAskCommand(rootDependencies, args)
	},
}

func handleAskCommand(rootDependencies *RootDependencies, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = rootDependencies.Logger.Sync() }()

	cfg := rootDependencies.Config

	userPrompt := strings.TrimSpace(strings.Join(args, " "))
	if userPrompt == "" {
		var err error
		userPrompt, err = utils.InputPrompt(bufio.NewReader(os.Stdin), os.Stdout)
		if err != nil {
			exitWithError(err)
		}
	}
	if userPrompt == "" {
		exitWithError(errors.New("prompt cannot be empty"))
	}

	projectContext := gatherContext(rootDependencies)
	if len(projectContext.Files) == 0 {
		fmt.Println(lipgloss.Yellow.Render("Warning: no files were included in the context. Check your ignore files and the supported extensions."))
	}
	printContextSummary(os.Stdout, cfg, projectContext)

	renderer := utils.NewMarkdownRenderer(os.Stdout, cfg.Theme)

	client := query_client.NewQueryClient(rootDependencies.CurrentChatProvider, query_client.Options{
		MaxRetries:   cfg.MaxRetries,
		BaseDelay:    time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		ResponsePath: filepath.Join(rootDependencies.Cwd, cfg.ResponseFileName),
		Model:        cfg.AIProviderConfig.Model,
		Endpoint:     cfg.AIProviderConfig.BaseURL,
		Output:       renderer,
		Status:       os.Stdout,
		Logger:       rootDependencies.Logger,
	})

	_, err := client.Query(ctx, code_analyzer.SerializeContext(projectContext), userPrompt, projectContext.RulesContent())
	_ = renderer.Flush()
	if err != nil {
		handleQueryError(err)
		_ = rootDependencies.Logger.Sync()
		os.Exit(1)
	}
}

func handleQueryError(err error) {
	var fatalErr *query_client.FatalError
	switch {
	case errors.As(err, &fatalErr):
		if fatalErr.Exhausted {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Failed after %d attempts. Exiting.", fatalErr.Attempts)))
		}
		fmt.Println(lipgloss.Yellow.Render(query_client.Diagnosis(fatalErr.Class)))
	case errors.Is(err, context.Canceled):
		fmt.Println(lipgloss.Yellow.Render("\n🔄 Request canceled."))
	default:
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
}
