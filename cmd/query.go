package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docpilot/docpilot/internal/app"
)

var (
	queryTopK      int
	queryNamespace string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the document index or the episodic memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		ctx := cmd.Context()
		a, cleanup, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		switch queryNamespace {
		case app.DocumentNamespace:
			results, err := a.Docs.Query(ctx, text, queryTopK)
			if err != nil {
				return err
			}
			return printJSON(results)
		case app.MemoryNamespace:
			recalled, err := a.Memory.Recall(ctx, text, queryTopK)
			if err != nil {
				return err
			}
			return printJSON(recalled)
		default:
			return fmt.Errorf("unknown namespace %q (want %q or %q)",
				queryNamespace, app.DocumentNamespace, app.MemoryNamespace)
		}
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 5, "number of results to return")
	queryCmd.Flags().StringVarP(&queryNamespace, "namespace", "n", app.DocumentNamespace,
		"index namespace to search (documents or memory)")
	rootCmd.AddCommand(queryCmd)
}
