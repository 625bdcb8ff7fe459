package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meysamhadeli/dafc/code_analyzer"
	"github.com/meysamhadeli/dafc/code_analyzer/models"
	"github.com/meysamhadeli/dafc/config"
	"github.com/meysamhadeli/dafc/constants/lipgloss"
	"github.com/meysamhadeli/dafc/token_management"
	"github.com/meysamhadeli/dafc/utils"
	"github.com/spf13/cobra"
)

// contextCmd: dafc context
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Gather the project context and print it, or save it with --save/--output.",
	Long: `The 'context' subcommand builds the same context document 'ask' would send and prints it between
'--- START CONTEXT ---' and '--- END CONTEXT ---' markers, so it can be pasted into any chat UI.
With --save the document is written to the configured context file (context.md by default), which
later runs never include in the context.`,
	Run: func(cmd *cobra.Command, args []string) {
		outputPath, _ := cmd.Flags().GetString("output")
		save, _ := cmd.Flags().GetBool("save")

		rootDependencies := handleRootCommand(cmd, false)
		handleContextCommand(rootDependencies, contextOutputPath(rootDependencies.Cwd, rootDependencies.Config, outputPath, save))
	},
}

func handleContextCommand(rootDependencies *RootDependencies, outputPath string) {
	defer func() { _ = rootDependencies.Logger.Sync() }()

	projectContext := gatherContext(rootDependencies)
	document := code_analyzer.SerializeContext(projectContext)

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(document), 0o644); err != nil {
			exitWithError(fmt.Errorf("failed to write context to %s: %w", outputPath, err))
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("Context saved to %s", outputPath)))
		printContextSummary(os.Stdout, rootDependencies.Config, projectContext)
		return
	}

	fmt.Println("--- START CONTEXT ---")
	fmt.Println(document)
	fmt.Println("--- END CONTEXT ---")

	// The document owns stdout so it can be piped.
	printContextSummary(os.Stderr, rootDependencies.Config, projectContext)
}

// contextOutputPath returns where the context document goes; "" means stdout.
// An explicit --output wins over --save.
func contextOutputPath(cwd string, cfg *config.Config, outputPath string, save bool) string {
	if outputPath != "" {
		return outputPath
	}
	if save {
		return filepath.Join(cwd, cfg.ContextFileName)
	}
	return ""
}

// printContextSummary prints the file count, size, fingerprint and budget usage.
func printContextSummary(out io.Writer, cfg *config.Config, projectContext *models.ProjectContext) {
	fmt.Fprintln(out, lipgloss.Info.Render(fmt.Sprintf("Context gathered: %d files, %s, ~%d tokens (fingerprint %s)",
		len(projectContext.Files),
		utils.FormatBytes(projectContext.TotalSizeBytes),
		projectContext.TotalEstimatedTokens,
		code_analyzer.Fingerprint(projectContext))))

	if projectContext.Rules != nil {
		fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("Rules file %s included.", projectContext.Rules.FileName)))
	}

	budget := token_management.NewTokenBudget(cfg.TokenCeiling)
	budget.TryCommit(projectContext.TotalEstimatedTokens, projectContext.TotalSizeBytes)
	budget.DisplayTokens(out)
}

func init() {
	contextCmd.Flags().StringP("output", "o", "", "Write the context document to this file instead of stdout.")
	contextCmd.Flags().BoolP("save", "s", false, "Write the context document to the configured context file (context_file_name).")
	rootCmd.AddCommand(contextCmd)
}
