package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvmediagithub/scriptrating-rag/internal/rag"
)

// jsonlDocument mirrors rag.Document for file decoding; id/text/metadata
// match the documented text-chunk ingest field names.
type jsonlDocument struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

func newIndexCmd() *cobra.Command {
	var batchSize int
	var wait bool

	cmd := &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Index documents from a JSON-lines file into the vector and lexical indices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, logger, shutdownTelemetry, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = o.Close() }()
			defer shutdownTelemetry(ctx)

			return runIndex(ctx, o, logger, args[0], batchSize, wait)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "number of documents submitted per IndexBatch call")
	cmd.Flags().BoolVar(&wait, "wait", true, "passed to IndexBatch; indexing is synchronous, so documents are queryable on return either way")
	return cmd
}

func runIndex(ctx context.Context, o *rag.Orchestrator, logger *zap.Logger, path string, batchSize int, wait bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if batchSize <= 0 {
		batchSize = 100
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var batch []rag.Document
	var total int
	lineNo := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := o.IndexBatch(ctx, batch, wait); err != nil {
			return fmt.Errorf("indexing batch ending at line %d: %w", lineNo, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var doc jsonlDocument
		if err := json.Unmarshal(line, &doc); err != nil {
			return fmt.Errorf("parsing line %d: %w", lineNo, err)
		}
		if doc.ID == "" {
			return fmt.Errorf("line %d: missing required field %q", lineNo, "id")
		}

		batch = append(batch, rag.Document{ID: doc.ID, Text: doc.Text, Metadata: doc.Metadata})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("indexing complete", zap.String("file", path), zap.Int("documents", total))
	return nil
}
