package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/cache"
	"github.com/igusev/siterank/internal/config"
	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/sync"
)

var forceFull bool // Flag to force full sync (ignore incremental)

var syncCmd = &cobra.Command{
	Use:   "sync <manifest.yaml>",
	Short: "Ingest a crawl manifest into a network index",
	Long: `Reads a YAML crawl manifest and indexes its pages.

Pages updated since the last sync are indexed incrementally. A full sync is
performed on the first run, with --full, or when the last full sync is older
than a week. The manifest's network field wins over --network.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&forceFull, "full", false, "force full sync")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := sync.LoadManifest(args[0])
	if err != nil {
		return err
	}

	name := network
	if m.Network != "" {
		name = m.Network
	}

	res, err := syncNetwork(cmd, cfg, name, m, forceFull)
	if err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("%s sync of %s: %d pages indexed, %d unchanged, %d sites (%s)",
		res.Mode, name, res.Indexed, res.Skipped, len(res.Sites), res.Duration.Round(time.Millisecond)))
	return nil
}

// syncNetwork indexes a manifest into the index of the named network
func syncNetwork(cmd *cobra.Command, cfg *config.Config, name string, m *sync.Manifest, force bool) (*sync.Result, error) {
	n, ok := cfg.Network(name)
	if !ok {
		return nil, fmt.Errorf("unknown network %q (configured: %v)", name, cfg.NetworkNames())
	}

	indexPath := cfg.IndexPath(n)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	idx, recreated, err := index.NewWithAutoRecreate(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Debug("Failed to close index: %v", err)
		}
	}()

	if recreated {
		printWarning("Index format changed, rebuilding from scratch")
		force = true
	}

	syncer := &sync.Syncer{
		Cache:  cache.New(cfg.Index.Dir),
		Index:  idx,
		Banned: cfg.IsBanned,
	}
	return syncer.Sync(cmd.Context(), n.Name, m, force)
}
