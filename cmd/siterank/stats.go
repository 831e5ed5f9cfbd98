package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/config"
	"github.com/igusev/siterank/internal/stats"
)

var statsLimit int // Rows per table

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the most frequent queries and clicks",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 20, "rows per table")
	statsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the tables as JSON")
	rootCmd.AddCommand(statsCmd)
}

// statsReport is the JSON shape of the stats command
type statsReport struct {
	Network string             `json:"network"`
	Queries []stats.QueryCount `json:"queries"`
	Clicks  []stats.ClickCount `json:"clicks"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	n, ok := cfg.Network(network)
	if !ok {
		return fmt.Errorf("unknown network %q (configured: %v)", network, cfg.NetworkNames())
	}

	store, err := stats.Open(cfg.Stats.Path)
	if err != nil {
		return fmt.Errorf("failed to open stats store: %w", err)
	}
	defer func() { _ = store.Close() }()

	report, err := loadReport(cmd, store, n, statsLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	renderReport(cmd.OutOrStdout(), report)
	return nil
}

func loadReport(cmd *cobra.Command, store *stats.Store, n config.NetworkConfig, limit int) (*statsReport, error) {
	queries, err := store.TopQueries(cmd.Context(), n.Tag, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}
	clicks, err := store.TopClicks(cmd.Context(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load clicks: %w", err)
	}
	return &statsReport{Network: n.Name, Queries: queries, Clicks: clicks}, nil
}

func renderReport(w io.Writer, r *statsReport) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Top queries on %s", r.Network)))
	if len(r.Queries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none yet"))
	}
	for i, q := range r.Queries {
		fmt.Fprintf(w, "%3d. %-40s %s\n", i+1, q.Term, mutedStyle.Render(fmt.Sprintf("%d×", q.Count)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Top clicks"))
	if len(r.Clicks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none yet"))
	}
	for i, c := range r.Clicks {
		fmt.Fprintf(w, "%3d. %s %s\n", i+1, urlStyle.Render(c.URL), mutedStyle.Render(fmt.Sprintf("%q %d×", c.Term, c.Count)))
	}
}
