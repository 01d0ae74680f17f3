package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docpilot/docpilot/internal/index"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <chunks.jsonl>",
	Short: "Run the bulk document pipeline over a chunk file",
	Long: `Pipeline reads pre-chunked documents from a newline-delimited JSON file
(one chunk object per line: chunk_id, text, filename, source_type, doc_path),
indexes every chunk, classifies each document concurrently behind the
admission gate, records the outcomes, and prints a per-document report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := readChunks(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, cleanup, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := a.Pipeline.Run(ctx, chunks)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

// readChunks loads one Chunk per line. A malformed line aborts the run with
// its line number.
func readChunks(path string) ([]index.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var chunks []index.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c index.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("chunk file line %d: %w", line, err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk file: %w", err)
	}
	return chunks, nil
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
