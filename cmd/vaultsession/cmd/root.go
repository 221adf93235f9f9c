package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/jmcleod/vaultsession/config"
	"github.com/jmcleod/vaultsession/vault"
)

var (
	configPath string
	address    string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "vaultsession",
	Short: "vaultsession keeps a HashiCorp Vault session usable",
	Long: `A Vault session client: it logs in with a static token, AppRole or
Kubernetes service account, keeps the token valid by logging in again or
renewing it, and sends authenticated requests on your behalf.

Configuration comes from --config and the VAULT_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd.ErrOrStderr()); err != nil {
			return err
		}
		// The agent purges on its own graceful shutdown.
		if cmd.Name() != "agent" {
			memguard.CatchInterrupt()
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	memguard.Purge()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "Vault address (overrides config and VAULT_ADDR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

func setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(logFormat) {
	case "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid --log-format %q", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func logger() logr.Logger {
	return logr.FromSlogHandler(slog.Default().Handler())
}

// loadConfig reads --config and the environment, with --address on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if address != "" {
		cfg.Address = address
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// newClient builds the configured backend and logs in.
func newClient(ctx context.Context, cfg config.Config, opts ...vault.Option) (*vault.Client, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}
	vcfg, err := cfg.VaultConfig()
	if err != nil {
		return nil, err
	}
	opts = append([]vault.Option{vault.WithLogger(logger())}, opts...)
	return vault.New(ctx, vcfg, backend, opts...)
}

// session loads the configuration and logs in.
func session(cmd *cobra.Command) (*vault.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newClient(cmd.Context(), cfg)
}
