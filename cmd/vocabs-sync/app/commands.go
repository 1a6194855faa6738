// Package app provides the entry point for the vocabs-sync application.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/elter-ri/vocabs-sync/internal/app"
	"github.com/elter-ri/vocabs-sync/internal/config"
	"github.com/elter-ri/vocabs-sync/internal/versions"
)

const defaultGracefulTimeout = 30 * time.Second

// NewRootCmd creates the root command. Without flags it runs the service until SIGINT or SIGTERM.
func NewRootCmd() *cobra.Command {
	v := config.NewEnvironment()

	cmd := &cobra.Command{
		Use:               "vocabs-sync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Synchronize remote RDF vocabularies into a triple store",
		Long: `vocabs-sync periodically downloads the configured RDF documents and replaces
the matching named graphs in the triple store. A run can also be triggered
with an authenticated POST /sync.

Configuration is read from an optional YAML file (--config) and the environment
(VOCABS_UPDATE_API_KEY, FUSEKI_USER, FUSEKI_PASSWORD, FUSEKI_DATA_ENDPOINT, SYNC_INTERVAL).
See examples/ directory for a sample configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			showVersion, err := cmd.Flags().GetBool("version")
			if err != nil {
				return err
			}
			if showVersion {
				return printVersion(cmd.OutOrStdout())
			}
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("address", "", "Address to listen on (default \":8000\")")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	cmd.Flags().Bool("version", false, "Print version information as JSON and exit")

	if err := v.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Error binding address flag", "error", err)
	}
	if err := v.BindPFlag("config", cmd.Flags().Lookup("config")); err != nil {
		slog.Error("Error binding config flag", "error", err)
	}

	return cmd
}

func printVersion(w io.Writer) error {
	output, err := json.MarshalIndent(versions.GetVersionInfo(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format version info: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadOpts := []config.Option{config.WithEnvironment(v)}
	configPath := v.GetString("config")
	if configPath != "" {
		loadOpts = append(loadOpts, config.WithConfigPath(configPath))
	}

	cfg, err := config.LoadConfig(loadOpts...)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"sources", len(cfg.Sources),
		"endpoint", cfg.Store.Endpoint,
		"interval", cfg.SyncPolicy.GetInterval().String())

	appOpts := []internalapp.SyncAppOptions{internalapp.WithConfig(cfg)}
	if address := v.GetString("address"); address != "" {
		appOpts = append(appOpts, internalapp.WithAddress(address))
	}

	syncApp, err := internalapp.NewSyncApp(ctx, appOpts...)
	if err != nil {
		slog.Error("Failed to create sync application", "error", err)
		return fmt.Errorf("failed to create sync application: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- syncApp.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server failed", "error", err)
			_ = syncApp.Stop(defaultGracefulTimeout)
			return err
		}
	}

	return syncApp.Stop(defaultGracefulTimeout)
}
