package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/enhance/internal/config"
	"github.com/vango-dev/enhance/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port     int
		host     string
		noReload bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot updates.

The dev server serves your templates, watches them for changes
and tells connected pages to fetch and patch in the new markup.

Examples:
  enhance dev
  enhance dev --port=8080
  enhance dev --host=0.0.0.0 --no-reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(port, host, noReload)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from enhance.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from enhance.json)")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "Disable file watching and hot updates")

	return cmd
}

func runDev(port int, host string, noReload bool) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(wd)
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}
	if noReload {
		cfg.Dev.HotReload = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := dev.NewServer(ctx, cfg, dev.Options{
		OnChange: func(changes []dev.Change, clients int) {
			success("%d file(s) changed, notified %d page(s)", len(changes), clients)
		},
	})
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  dev")
	fmt.Println()
	info("Local:   %s", cfg.DevURL())
	info("Updates: %s%s/*", cfg.DevURL(), cfg.Dev.HMRRoute)
	if cfg.Dev.HotReload {
		info("Socket:  %s", cfg.SocketURL())
	} else {
		warn("Hot updates disabled")
	}
	fmt.Println()

	if err := server.Run(ctx); err != nil {
		errorMsg("%s", err)
		return err
	}
	fmt.Println("\n  Shutting down...")
	return nil
}
