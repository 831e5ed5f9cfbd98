package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/cache"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/model"
)

var topSites int // Number of top sites printed after a recompute

var pagepopCmd = &cobra.Command{
	Use:   "pagepop",
	Short: "Recompute global site popularity",
	Long: `Builds the site link graph from every page in the network index,
runs PageRank over it and stores the scores used by the --gp weight.`,
	Args: cobra.NoArgs,
	RunE: runPagePop,
}

func init() {
	pagepopCmd.Flags().IntVar(&topSites, "top", 10, "number of top sites to print")
	rootCmd.AddCommand(pagepopCmd)
}

func runPagePop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := a.openIndex(network)
	if err != nil {
		return err
	}

	start := time.Now()
	docs, err := idx.Documents()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	scores, err := a.gateway.Refresh(cmd.Context(), docs, a.store)
	if err != nil {
		return err
	}

	if err := cache.New(cfg.Index.Dir).SaveLastPagePopTime(network, time.Now()); err != nil {
		logger.Warn("Failed to save popularity timestamp: %v", err)
	}

	printSuccess(fmt.Sprintf("Scored %d sites from %d pages (%s)", len(scores), len(docs), time.Since(start).Round(time.Millisecond)))
	printTopScores(scores, topSites)
	return nil
}

func printTopScores(scores []model.PopularityScore, n int) {
	if n <= 0 || len(scores) == 0 {
		return
	}
	if n > len(scores) {
		n = len(scores)
	}

	fmt.Println()
	printSection(fmt.Sprintf("Top %d sites", n))
	for i, s := range scores[:n] {
		fmt.Printf("%3d. %-62s %s\n", i+1, s.SiteID, mutedStyle.Render(fmt.Sprintf("%.6f", s.Score)))
	}
}
