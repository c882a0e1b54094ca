package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcourtman/energy-reports/internal/backend"
	"github.com/rcourtman/energy-reports/internal/capture"
	"github.com/rcourtman/energy-reports/internal/config"
	"github.com/rcourtman/energy-reports/internal/controller"
	"github.com/rcourtman/energy-reports/internal/delivery"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/mock"
	"github.com/rcourtman/energy-reports/internal/netutil"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/rcourtman/energy-reports/pkg/reporting"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var nowFn = time.Now

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	registry *resources.Registry
	factory  *controller.Factory
}

type globalFlags struct {
	backendURL   string
	outputDir    string
	logLevel     string
	noFallback   bool
	organization string
}

func newRootCmd() *cobra.Command {
	var (
		flags globalFlags
		a     = &app{registry: resources.Default()}
	)

	root := &cobra.Command{
		Use:   "energy-reports",
		Short: "Renewable generation records and reports",
		Long: `energy-reports reads year-keyed generation predictions for solar, wind,
hydro, biomass and geothermal energy, edits them, and exports CSV tables
and PDF reports.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Shutdown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.backendURL, "backend-url", "", "prediction API base URL (overrides ENERGY_BACKEND_URL)")
	pf.StringVarP(&flags.outputDir, "output-dir", "o", "", "directory for exported files (overrides ENERGY_OUTPUT_DIR)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.noFallback, "no-fallback", false, "fail instead of showing sample data when the API is unreachable")
	pf.StringVar(&flags.organization, "organization", "", "organization named in report footers")

	root.AddCommand(
		newVersionCmd(),
		newTypesCmd(a),
		newFetchCmd(a),
		newExportCmd(a),
		newRecordsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, flags globalFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.backendURL != "" {
		cfg.BackendURL = flags.backendURL
	}
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.noFallback {
		cfg.DisableFallback = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "energy-reports",
		FilePath:  cfg.LogFile,
	})
	netutil.SetDNSCacheTTL(cfg.DNSCacheTTL)

	if cfg.MetricsAddr != "" {
		startMetricsServer(cmd.Context(), cfg.MetricsAddr)
	}

	client, err := backend.NewClient(backend.ClientConfig{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: "energy-reports/" + Version,
	})
	if err != nil {
		return err
	}

	composer := reporting.NewComposer()
	if flags.organization != "" {
		composer.Organization = flags.organization
	}

	a.cfg = cfg
	a.factory = controller.NewFactory(a.registry, client, mock.NewGenerator(), controller.Options{
		DisableFallback: cfg.DisableFallback,
		Composer:        composer,
		Capturer:        capture.NewCapturer(),
		CaptureTimeout:  cfg.CaptureTimeout,
		Now:             nowFn,
	})

	log.Debug().
		Str("backend", cfg.BackendURL).
		Bool("fallback", !cfg.DisableFallback).
		Msg("Configuration loaded")
	return nil
}

func (a *app) sink() (delivery.Sink, error) {
	return delivery.NewDirSink(a.cfg.OutputDir)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "energy-reports %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(out, "Commit: %s\n", GitCommit)
			}
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
