package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/metrics"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/ui"
)

var (
	// Version information
	version   = reddit.Version
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	quiet       bool
	metricsAddr string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redditsaver",
	Short: "Fetch, export and prune the saved items of a Reddit account",
	Long: `redditsaver walks the saved listing of a Reddit account page by page
through the OAuth API and collects every saved post and comment.

Features:
  - Complete paginated retrieval with page and item caps
  - JSON or YAML export of every fetched page
  - Concurrent bulk unsave, from a live fetch or an export
  - Secure token storage using the system keychain
  - Prometheus metrics for requests, pages and unsaves`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		switch cmd.Name() {
		case "version", "help", "show", "list":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.redditsaver.yaml or ~/.config/redditsaver/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and raw output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	rootCmd.SetVersionTemplate(`redditsaver {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags into flags, loads the configuration
// and initializes the global logger.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Debug("redditsaver starting")

	return cfg, nil
}

// commandContext is cancelled on SIGINT or SIGTERM. When metrics are
// enabled the exporter runs until the context ends.
func commandContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr, logger.GetLogger()); err != nil {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	return ctx, stop
}

// credentialManager opens the token store. A broken store is reported and
// the command continues with configuration and environment tokens only.
func credentialManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Warn("Credential store unavailable")
		return auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}
	return manager
}

// resolveUsername picks the account from the argument, the configuration
// or the most recently stored credentials, in that order.
func resolveUsername(args []string, cfg *config.Config, manager *auth.Manager) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return reddit.SanitizeUsername(args[0]), nil
	}
	if cfg.Reddit.Username != "" {
		return reddit.SanitizeUsername(cfg.Reddit.Username), nil
	}
	if manager != nil {
		if account, err := manager.RetrieveDefault(); err == nil && account.Username != "default" {
			return account.Username, nil
		}
	}
	return "", fmt.Errorf("no username given: pass one as an argument, set reddit.username or run 'redditsaver auth login'")
}
