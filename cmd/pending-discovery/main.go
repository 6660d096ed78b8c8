// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/certenio/pending-discovery/internal/application/discovery"
	"github.com/certenio/pending-discovery/internal/application/reconcile"
	"github.com/certenio/pending-discovery/internal/application/supervisor"
	"github.com/certenio/pending-discovery/internal/infrastructure/config"
	"github.com/certenio/pending-discovery/internal/infrastructure/ledger"
	"github.com/certenio/pending-discovery/internal/infrastructure/store"
	"github.com/certenio/pending-discovery/pkg/logger"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "pending-discovery",
		Short: "Background discovery daemon for pending multi-signature transactions",
		RunE:  runDaemon,
	}
	root.AddCommand(versionCmd())
	root.AddCommand(healthcheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("pending-discovery %s (commit %s, built %s)\n", Version, Commit, BuildDate)
			return nil
		},
	}
}

func healthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "One-shot probe against the configured ledger endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client := ledger.New(cfg.Ledger.APIURL, time.Duration(cfg.Ledger.RequestTimeout)*time.Second, 0)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if !client.AccountExists(ctx, cfg.Ledger.APIURL) {
				return fmt.Errorf("ledger endpoint did not respond")
			}
			return nil
		},
	}
}

// loadConfig wraps config.Load, converting the mustGetEnv panic on a
// missing required key into a plain error so every cobra command exits
// through the same nonzero-exit path rather than a raw stack trace.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return config.Load()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logger.Level))
	logger.Logger.Info("pending-discovery starting",
		"version", Version, "commit", Commit, "build_date", BuildDate,
		"network", cfg.Ledger.Network, "dry_run", cfg.DryRun)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerClient := ledger.New(cfg.Ledger.APIURL, time.Duration(cfg.Ledger.RequestTimeout)*time.Second, cfg.Ledger.MaxRetries)

	storeAdapter, err := store.New(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsPath, cfg.Store.EmulatorHost, cfg.Store.UsersCollection)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		if err := storeAdapter.Close(); err != nil {
			logger.Logger.Warn("failed to close store client", "error", err)
		}
	}()

	explorer := discovery.NewExplorer(ledgerClient, cfg.Discovery.DelegationDepth)
	engine := discovery.NewEngine(ledgerClient, cfg.Discovery.PendingPageSize, maxPendingPages)
	reconciler := reconcile.New(storeAdapter, cfg.Ledger.Network, cfg.DryRun)

	sup := supervisor.New(storeAdapter, explorer, engine, reconciler, cfg.Supervisor.PollIntervalSec, cfg.Supervisor.UserConcurrency)
	sup.Run(ctx)

	logger.Logger.Info("pending-discovery exited cleanly")
	return nil
}

// maxPendingPages bounds how many pages QueryPendingTxIds will walk
// per scope; the spec's PENDING_PAGE_SIZE only controls page width.
const maxPendingPages = 20
