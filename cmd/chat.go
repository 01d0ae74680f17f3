package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatThreadID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive retrieval-augmented conversation",
	Long: `Chat runs a multi-turn session over the indexed document corpus. History
is checkpointed per thread and compacted into a running summary as it grows.

Commands inside the session:
  /reset    clear this thread's history
  /state    show the current thread state
  exit      leave the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Printf("docpilot chat (thread %q), type 'exit' to quit\n", chatThreadID)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())

			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			case "/reset":
				if err := a.Engine.ResetThread(ctx, chatThreadID); err != nil {
					return err
				}
				fmt.Println("Thread reset.")
				continue
			case "/state":
				state, err := a.Engine.GetState(ctx, chatThreadID)
				if err != nil {
					return err
				}
				if err := printJSON(state); err != nil {
					return err
				}
				continue
			}

			state, err := a.Engine.SubmitTurn(ctx, chatThreadID, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println(state.GraphOutput)
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatThreadID, "thread", "default", "conversation thread identifier")
	rootCmd.AddCommand(chatCmd)
}
