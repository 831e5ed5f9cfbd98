package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/config"
	"github.com/igusev/siterank/internal/logger"
	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
	"github.com/igusev/siterank/internal/tui"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"     // Version from git tag or "dev"
	commit    = "unknown" // Git commit hash (used in version output)
	buildTime = "unknown" // Build timestamp (used in version output)
)

// Platform constants for runtime.GOOS
const (
	platformDarwin  = "darwin"
	platformLinux   = "linux"
	platformWindows = "windows"
)

var (
	verbose    bool    // Flag to enable verbose logging
	configPath string  // Explicit config file
	network    string  // Network to search
	page       int     // One-indexed result page
	maxAge     string  // Time window in days, or "all"
	globalW    float64 // Global popularity weight
	localW     float64 // Local popularity weight
	showScores bool    // Flag to show score breakdown
	jsonOutput bool    // Flag to print the raw response as JSON
)

var rootCmd = &cobra.Command{
	Use:   "siterank [flags] [query...]",
	Short: "Site-level search over hidden service indexes",
	Long: `siterank searches crawled Tor and I2P pages and ranks whole sites.
Relevance can be blended with global and query-local link popularity.

Getting Started:
  1. Create config: siterank config init
  2. Run: siterank sync --network tor crawl.yaml
  3. Run: siterank pagepop --network tor
  4. Run: siterank (interactive mode) or siterank <query> (direct search)

Examples:
  siterank                         # Interactive search on the default network
  siterank library                 # Direct search for "library"
  siterank --network i2p forum     # Search the I2P index
  siterank --days 30 market        # Only sites updated in the last 30 days
  siterank --gp 0.3 --lp 0.2 wiki  # Blend in link popularity
  siterank --json wiki             # Print the response as JSON

Configuration:
  Settings live in ~/.config/siterank/config.yaml and can be overridden via environment:
    SITERANK_INDEX_DIR=/srv/siterank
    SITERANK_SERVER_ADDR=:9090`,
	RunE: runSearch,
	// Accept any number of arguments as search query
	Args: cobra.ArbitraryArgs,
	// Don't suggest commands when args don't match subcommands
	SuggestionsMinimumDistance: 2,
}

// loadConfig loads the configuration from --config or the default locations
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if !verbose {
		logger.SetLevel(cfg.Log.Level)
	}
	return cfg, nil
}

// runSearch handles the default search behavior
func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(network)
	if err != nil {
		return err
	}

	// Join all args to support multi-word queries: "siterank onion library"
	query := strings.TrimSpace(strings.Join(args, " "))
	req := search.ParseParams(flagParams(cmd, query))

	if query == "" {
		if jsonOutput {
			return errors.New("--json needs a query")
		}
		return runInteractive(p, req, a.recorder)
	}

	resp, err := p.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderResults(resp, showScores))
	return nil
}

// flagParams exposes the command line flags under the HTTP parameter names
// so both surfaces share search.ParseParams.
func flagParams(cmd *cobra.Command, query string) func(key string) (string, bool) {
	flags := cmd.Flags()
	return func(key string) (string, bool) {
		switch key {
		case "q":
			return query, true
		case "page":
			if page > 1 {
				return strconv.Itoa(page - 1), true
			}
		case "d":
			if flags.Changed("days") {
				return maxAge, true
			}
		case "gp":
			if flags.Changed("gp") {
				return strconv.FormatFloat(globalW, 'f', -1, 64), true
			}
		case "lp":
			if flags.Changed("lp") {
				return strconv.FormatFloat(localW, 'f', -1, 64), true
			}
		}
		return "", false
	}
}

// runInteractive launches the TUI; the opened result is recorded as a click
func runInteractive(p *search.Pipeline, req search.Request, rec search.Recorder) error {
	m := tui.New(p, tui.Options{
		Network:    p.Network.Name,
		Version:    version,
		Request:    req,
		ShowScores: showScores,
		OnSelect: func(hit model.SearchHit, term string) {
			rec.RecordClick(hit.SiteID, hit.URL, term)
		},
	})
	prog := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := prog.Run()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	final, ok := finalModel.(tui.Model)
	if !ok {
		return nil
	}
	hit := final.Selected()
	if hit == nil {
		return nil
	}

	logger.Debug("Opening browser with URL: %s", hit.URL)
	if err := openBrowser(hit.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open browser: %v\n", err)
	}

	// Output URL to stdout (for copying or script usage)
	fmt.Println(hit.URL)
	return nil
}

// openBrowser opens the given URL in the default browser (cross-platform)
func openBrowser(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case platformDarwin: // macOS
		cmd = exec.CommandContext(ctx, "open", url)
	case platformLinux:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case platformWindows:
		// Empty string before URL is important: start interprets first quoted arg as window title
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Run()
}

func init() {
	// Set version info
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/siterank/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", "tor", "network to use")

	rootCmd.Flags().IntVarP(&page, "page", "p", 1, "result page (starting at 1)")
	rootCmd.Flags().StringVarP(&maxAge, "days", "d", "all", "only sites updated within this many days")
	rootCmd.Flags().Float64Var(&globalW, "gp", 0, "weight of global popularity")
	rootCmd.Flags().Float64Var(&localW, "lp", 0, "weight of query-local popularity")
	rootCmd.Flags().BoolVar(&showScores, "scores", false, "show score breakdown")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the response as JSON")

	// Load .env and set up logging before command execution
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to load .env: %v", err)
		}
		logger.SetVerbose(verbose)
		logger.Debug("Verbose mode enabled")
	}
}

func main() {
	// Enable interspersed flags (flags can appear anywhere in the command line)
	rootCmd.Flags().SetInterspersed(true)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
