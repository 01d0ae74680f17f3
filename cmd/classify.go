package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docpilot/docpilot/internal/memory"
)

var classifyRemember bool

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Classify a document and run its transformer",
	Long: `Classify reads document text from a file (or stdin), assigns one of the
four task labels, runs the matching transformer, and prints the structured
result as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, cleanup, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result := a.Router.ClassifyAndRoute(ctx, text)

		if classifyRemember && result.Task != nil {
			exp := memory.Experience{
				InputText: text,
				Task:      *result.Task,
				Output:    result.Output,
				Meta: map[string]any{
					"input_preview": result.Trace.InputPreview,
					"routed_tool":   result.Trace.RoutedTool,
				},
			}
			if err := a.Memory.Add(ctx, exp); err != nil {
				a.Logger.Warn("recording experience failed", "error", err)
			}
		}

		return printJSON(result)
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyRemember, "remember", true,
		"record the outcome in episodic memory")
	rootCmd.AddCommand(classifyCmd)
}
