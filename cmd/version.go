package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docpilot/docpilot/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("docpilot %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Println()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Println("Configuration:")
		fmt.Printf("  Model: %s\n", cfg.ModelName)
		fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
		fmt.Printf("  Data dir: %s\n", cfg.DataDir)
		fmt.Printf("  Gate capacity: %d\n", cfg.GateCapacity)
		fmt.Printf("  Model timeout: %s\n", cfg.ModelTimeout)

		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			fmt.Println("  GEMINI_API_KEY: configured")
		} else {
			fmt.Println("  GEMINI_API_KEY: not set")
			fmt.Println()
			fmt.Println("Hint: export GEMINI_API_KEY=your-api-key")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
