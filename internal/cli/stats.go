package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show registry counts and server runtime statistics.

Runtime operation timings reset when the server restarts.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// opStats mirrors the server's per-operation snapshot.
type opStats struct {
	Count       int64    `json:"count"`
	AvgTimeMs   float64  `json:"avg_time_ms"`
	MinTimeMs   int64    `json:"min_time_ms"`
	MaxTimeMs   int64    `json:"max_time_ms"`
	TotalTokens *int64   `json:"total_tokens,omitempty"`
	AvgTokens   *float64 `json:"avg_tokens,omitempty"`
}

type operationsStats struct {
	UptimeSeconds float64  `json:"uptime_seconds"`
	Fetch         *opStats `json:"fetch,omitempty"`
	Extract       *opStats `json:"extract,omitempty"`
	Embedding     *opStats `json:"embedding,omitempty"`
	VectorUpsert  *opStats `json:"vector_upsert,omitempty"`
	VectorSearch  *opStats `json:"vector_search,omitempty"`
}

type registryStats struct {
	Docs       int `json:"docs"`
	Pages      int `json:"pages"`
	Sections   int `json:"sections"`
	ActiveJobs int `json:"active_jobs"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := apiClient.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if regRaw, ok := raw["registry"]; ok {
		var reg registryStats
		if err := json.Unmarshal(regRaw, &reg); err == nil {
			fmt.Println("Registry:")
			fmt.Printf("  Docs:        %d\n", reg.Docs)
			fmt.Printf("  Pages:       %d\n", reg.Pages)
			fmt.Printf("  Sections:    %d\n", reg.Sections)
			fmt.Printf("  Active jobs: %d\n", reg.ActiveJobs)
			fmt.Println()
		}
	}

	if pointsRaw, ok := raw["points"]; ok {
		var points uint64
		if err := json.Unmarshal(pointsRaw, &points); err == nil {
			fmt.Printf("Vector points: %d\n\n", points)
		}
	}

	opsRaw, ok := raw["operations"]
	if !ok {
		return nil
	}
	var ops operationsStats
	if err := json.Unmarshal(opsRaw, &ops); err != nil {
		return fmt.Errorf("decode operations: %w", err)
	}

	uptime := time.Duration(ops.UptimeSeconds * float64(time.Second))
	fmt.Printf("Server uptime: %s\n\n", uptime.Round(time.Second))

	printOp("Fetch", ops.Fetch)
	printOp("Extract", ops.Extract)
	printOp("Embedding", ops.Embedding)
	printOp("Vector upsert", ops.VectorUpsert)
	printOp("Vector search", ops.VectorSearch)
	return nil
}

func printOp(name string, op *opStats) {
	if op == nil || op.Count == 0 {
		return
	}
	fmt.Printf("%s:\n", name)
	fmt.Printf("  Count:    %d\n", op.Count)
	fmt.Printf("  Avg time: %.1fms\n", op.AvgTimeMs)
	fmt.Printf("  Min/Max:  %dms / %dms\n", op.MinTimeMs, op.MaxTimeMs)
	if op.TotalTokens != nil {
		fmt.Printf("  Tokens:   %d total", *op.TotalTokens)
		if op.AvgTokens != nil {
			fmt.Printf(", %.0f avg", *op.AvgTokens)
		}
		fmt.Println()
	}
	fmt.Println()
}
