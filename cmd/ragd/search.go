package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var k int
	var strategy string
	var vectorWeight, lexicalWeight float64

	cmd := &cobra.Command{
		Use:   "search <query text>",
		Short: "Search the indexed corpus and print results as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, _, shutdownTelemetry, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = o.Close() }()
			defer shutdownTelemetry(ctx)

			var resp interface{}
			if strategy == "hybrid" {
				resp, err = o.HybridSearch(ctx, args[0], k, vectorWeight, lexicalWeight, nil)
			} else {
				resp, err = o.Search(ctx, args[0], k, nil)
			}
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().IntVar(&k, "k", 10, "number of results to return")
	cmd.Flags().StringVar(&strategy, "strategy", "", `force "hybrid" strategy instead of the router's configured default`)
	cmd.Flags().Float64Var(&vectorWeight, "vector-weight", 0.7, "vector score weight, used only with --strategy hybrid")
	cmd.Flags().Float64Var(&lexicalWeight, "lexical-weight", 0.3, "lexical score weight, used only with --strategy hybrid")
	return cmd
}
