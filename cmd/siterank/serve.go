package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/server"
)

var listenAddr string // Overrides server.addr

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Starts the HTTP API for every configured network that has an index.

Endpoints:
  GET /healthz
  GET /networks
  GET /<network>/search?q=&page=&d=&gp=&lp=
  GET /search/redirect?redirect_url=&search_term=`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pipelines := a.pipelines()
	if len(pipelines) == 0 {
		return errors.New("no network has an index, run 'siterank sync' first")
	}

	addr := cfg.Server.Addr
	if listenAddr != "" {
		addr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printLogo(version)
	for _, p := range pipelines {
		printMuted("  serving " + p.Network.Name + " at /" + p.Network.Name + "/search")
	}

	return server.New(pipelines, a.recorder).Run(ctx, addr)
}
