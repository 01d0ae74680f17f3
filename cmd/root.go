// Package cmd implements the docpilot command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docpilot/docpilot/internal/app"
	"github.com/docpilot/docpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "docpilot",
	Short: "docpilot - classify, transform and converse over your documents",
	Long: `docpilot routes documents to task-specific transformers (summarization,
contract risk flagging, support triage, knowledge-base generation), maintains
a retrieval-augmented chat over the indexed corpus, and remembers past
outcomes for similarity recall.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads configuration and initializes the full application. The
// returned cleanup must be called before exit.
func setupApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}
	return a, cleanup, nil
}

// readInput returns text from the file argument, or from stdin when the
// argument is missing or "-".
func readInput(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(strings.TrimRight(string(data), "\n"))
	return nil
}
