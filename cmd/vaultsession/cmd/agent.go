package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/jmcleod/vaultsession/config"
	"github.com/jmcleod/vaultsession/journal"
	bboltjournal "github.com/jmcleod/vaultsession/journal/bbolt"
	"github.com/jmcleod/vaultsession/metrics"
	"github.com/jmcleod/vaultsession/proxy"
	"github.com/jmcleod/vaultsession/vault"
)

var (
	agentListen  string
	agentDataDir string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run a local proxy that holds the Vault session",
	Long: `Run a local HTTP agent. Requests to /v1/... are forwarded to Vault with
the session's token; the token is logged in again or renewed in the
background according to the renew policy. Session events are journaled
under --data-dir.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
	defaults := config.Default().Agent
	agentCmd.Flags().StringVar(&agentListen, "listen", defaults.Listen, "Address to listen on")
	agentCmd.Flags().StringVar(&agentDataDir, "data-dir", defaults.DataDir, "Directory for the journal database")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Agent.Listen = agentListen
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Agent.DataDir = agentDataDir
	}
	log := logger()

	if err := os.MkdirAll(cfg.Agent.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := bboltjournal.NewStoreFromFile(filepath.Join(cfg.Agent.DataDir, journalFile),
		&bbolt.Options{Timeout: 2 * time.Second},
		bboltjournal.WithMaxEntries(cfg.Journal.MaxEntries))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	j := journal.New(store, journalOptions(cfg.Journal, log)...)
	defer j.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector()
	reg.MustRegister(m,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newClient(ctx, cfg, vault.WithJournal(j), vault.WithMetrics(m))
	if err != nil {
		return err
	}

	agent := proxy.New(client,
		proxy.WithJournal(j),
		proxy.WithGatherer(reg),
		proxy.WithLogger(log),
	)
	server := &http.Server{
		Addr:              cfg.Agent.Listen,
		Handler:           agent.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if client.Policy().Kind() == vault.PolicyRenew {
		g.Go(func() error {
			// A stopped loop leaves the agent serving; requests fail with
			// session expired once the token runs out.
			if err := client.RenewBackground(gctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(err, "background renewal ended")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	out := cmd.OutOrStdout()
	printBanner(out)
	fmt.Fprintf(out, "Agent listening on %s (vault: %s, policy: %s, data: %s)\n",
		cfg.Agent.Listen, client.Address(), client.Policy(), cfg.Agent.DataDir)

	err = g.Wait()
	fmt.Fprintln(out, "Agent stopped")
	return err
}

// journalOptions wires the webhook sink and failure alerts from cfg.
func journalOptions(cfg config.JournalConfig, log logr.Logger) []journal.Option {
	opts := []journal.Option{
		journal.WithLogger(log),
		journal.WithAlerts(func(ev journal.AlertEvent) {
			log.Info("ALERT "+ev.Message,
				"type", string(ev.Type),
				"count", ev.Count,
				"threshold", ev.Threshold,
			)
		}, cfg.AlertThreshold, cfg.AlertWindow),
	}
	if cfg.WebhookURL != "" {
		opts = append(opts, journal.WithWebhook(
			journal.NewWebhook(cfg.WebhookURL, cfg.WebhookAuthHeader, journal.WithWebhookLogger(log)),
		))
	}
	return opts
}
