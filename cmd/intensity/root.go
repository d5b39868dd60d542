package main

import (
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/seismic-intensity/internal/config"
	"github.com/couchcryptid/seismic-intensity/internal/observability"
)

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// flagOverrides are the settings that can be given on the command line in
// addition to the environment.
type flagOverrides struct {
	output      string
	concurrency int
	rule        string
	calibration string
	series      bool
	logLevel    string
}

// processMetrics registers the collectors once per process, however many
// commands run.
var processMetrics = sync.OnceValue(observability.NewMetrics)

func newRootCommand() *cobra.Command {
	a := &app{}
	var flags flagOverrides

	rootCmd := &cobra.Command{
		Use:           "intensity",
		Short:         "Compute instrumental seismic intensity from strong-motion records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyOverrides(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.output, "output", "o", "", "Output directory (overrides OUTPUT_DIR)")
	pf.IntVarP(&flags.concurrency, "concurrency", "j", 0, "Worker limit (overrides CONCURRENCY)")
	pf.StringVar(&flags.rule, "rule", "", "Intensity rule: max or gbt2020 (overrides INTENSITY_RULE)")
	pf.StringVar(&flags.calibration, "calibration", "", "Calibration table file (overrides CALIBRATION_FILE)")
	pf.BoolVar(&flags.series, "series", false, "Also write cleaned waveform series (overrides WRITE_SERIES)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))

	return rootCmd
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, f flagOverrides) {
	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.OutputDir = f.output
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("rule") {
		cfg.IntensityRule = f.rule
	}
	if changed("calibration") {
		cfg.CalibrationFile = f.calibration
	}
	if changed("series") {
		cfg.WriteSeries = f.series
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}
