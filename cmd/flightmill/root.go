package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/flightmill_go/internal/analysis"
	"github.com/user/flightmill_go/internal/config"
	"github.com/user/flightmill_go/internal/diagnostics"
	"github.com/user/flightmill_go/internal/report"
	"github.com/user/flightmill_go/internal/signal"
)

var (
	logLevel   string // Log verbosity level
	configPath string // Optional YAML config file

	inputDir  string  // Directory of split channel recordings
	outDir    string  // Directory for diagnostics artifacts
	baseline  string  // Baseline policy (self, set-median)
	smallBand float64 // Small-change deviation band
	largeBand float64 // Large-change deviation band
	minTrials int     // Minimum trials for a set-median baseline
	armRadius float64 // Mill arm radius in metres
	workers   int     // Worker goroutines (0 = one per CPU)
	withPDF   bool    // Also build the PDF report
	withHTML  bool    // Also build the HTML chart page

	sweepFile string // Single recording for the standardization sweep
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "flightmill",
	Short: "Diagnostics for tethered-insect flight-mill recordings",
}

// diagnoseCmd runs the full pipeline over a directory of recordings.
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Classify trial recordings and write set summary and combo tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		paths, unrecognised, err := signal.ListRecordings(inputDir)
		if err != nil {
			return err
		}
		for _, name := range unrecognised {
			logrus.Warnf("skipping unrecognised file %s", name)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no trial recordings found in %s", inputDir)
		}

		signals := make([]*signal.TrialSignal, 0, len(paths))
		for _, path := range paths {
			trace, err := signal.ReadTraceFile(path, cfg.Detector.ArmRadiusM)
			if err != nil {
				logrus.Warnf("skipping %s: %v", filepath.Base(path), err)
				continue
			}
			signals = append(signals, trace.Standardize(cfg.Standardize.MinDev, cfg.Standardize.MaxDev))
		}

		pipe := diagnostics.New(cfg)
		res, err := pipe.Run(context.Background(), signals)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := writeTable(filepath.Join(outDir, "diagnostics_summary.csv"), func(w *os.File) error {
			return report.WriteSummaryTable(w, res.Summaries)
		}); err != nil {
			return err
		}
		if err := writeTable(filepath.Join(outDir, "diagnostics_combos.csv"), func(w *os.File) error {
			return report.WriteComboTable(w, res.Combos)
		}); err != nil {
			return err
		}

		if withHTML {
			if err := writeTable(filepath.Join(outDir, "diagnostics_summary.html"), func(w *os.File) error {
				return report.WriteSummaryCharts(w, res.RunID, res.Summaries)
			}); err != nil {
				return err
			}
		}
		if withPDF {
			if err := buildPDF(cfg, res, signals); err != nil {
				return err
			}
		}

		logrus.Infof("diagnostics written to %s (%d sets, %d skipped, %d invalid trials)",
			outDir, len(res.Summaries), len(res.Skipped), len(res.Invalid))
		return nil
	},
}

// sweepCmd renders standardization-sensitivity heatmaps for one recording.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep standardization deviations for one recording and plot heatmaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		trace, err := signal.ReadTraceFile(sweepFile, cfg.Detector.ArmRadiusM)
		if err != nil {
			return err
		}
		pipe := diagnostics.New(cfg)
		sr, err := pipe.Sweep(trace, cfg.Standardize.SweepDevs)
		if err != nil {
			return err
		}

		dTroughs, dSpeeds, dDistances := sr.Deltas()
		logrus.Infof("%s sweep deltas: troughs=%.2f speed=%.2f distance=%.2f",
			sr.Label, dTroughs, dSpeeds, dDistances)

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		plots := []struct {
			matrix [][]float64
			title  string
			file   string
		}{
			{sr.Troughs, fmt.Sprintf("%s Number of Troughs (max-min=%.2f)", sr.Label, dTroughs), "trough_diagnostic-" + sr.Label + ".png"},
			{sr.Speeds, fmt.Sprintf("%s Average Speed m/s (max-min=%.2f)", sr.Label, dSpeeds), "speed_diagnostic-" + sr.Label + ".png"},
			{sr.Distances, fmt.Sprintf("%s Distance m (max-min=%.2f)", sr.Label, dDistances), "distance_diagnostic-" + sr.Label + ".png"},
		}
		for _, p := range plots {
			img, err := report.CreateSweepHeatmap(sr.Devs, p.matrix, p.title)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, p.file), img, 0o644); err != nil {
				return fmt.Errorf("failed to write heatmap: %w", err)
			}
		}
		return nil
	},
}

// loadConfig resolves configuration: defaults, then the config file, then
// any explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid log level %q", logLevel)
	}
	logrus.SetLevel(level)

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("baseline") {
		cfg.Baseline.Policy = baseline
	}
	if flags.Changed("small-band") {
		cfg.Thresholds.SmallBand = smallBand
	}
	if flags.Changed("large-band") {
		cfg.Thresholds.LargeBand = largeBand
	}
	if flags.Changed("min-trials") {
		cfg.Baseline.MinTrials = minTrials
	}
	if flags.Changed("arm-radius") {
		cfg.Detector.ArmRadiusM = armRadius
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func writeTable(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path) // render failures must not leave a partial table
		return err
	}
	return f.Close()
}

func buildPDF(cfg config.Config, res *diagnostics.Result, signals []*signal.TrialSignal) error {
	// Trajectory plots for the trials that tripped a large change, so the
	// report shows what the flagged chambers actually recorded.
	plots := make(map[string][]byte)
	flagged := make(map[signal.TrialKey]bool)
	for _, s := range res.Summaries {
		for _, chamber := range s.LargeChambers {
			for _, sig := range signals {
				if sig.Key.Set == s.SetID && sig.Key.Chamber == chamber {
					flagged[sig.Key] = true
				}
			}
		}
	}
	pipe := diagnostics.New(cfg)
	for _, sig := range signals {
		if !flagged[sig.Key] {
			continue
		}
		logrus.Debugf("plotting flagged trial %s", sig.Label)
		times, speeds := pipe.Detector.Trajectory(sig)
		if len(times) == 0 {
			continue
		}
		bouts := analysis.Bouts(times, sig.Duration)
		logrus.Infof("flagged trial %s: flight time %.0fs, %.0f%% of recording spent flying",
			sig.Label, bouts.FlightTime, bouts.PortionFlying*100)
		img, err := report.CreateTrajectoryPlot(times, speeds, sig.Label, cfg.Detector.MaxSpeedMS)
		if err != nil {
			logrus.Warnf("trajectory plot for %s failed: %v", sig.Label, err)
			continue
		}
		plots["trajectory_"+sig.Label] = img
	}

	meta := report.ReportMeta{
		RunID:      res.RunID,
		Trials:     len(res.Records),
		Baseline:   cfg.Baseline.Policy,
		Thresholds: fmt.Sprintf("small<=%.3g large>%.3g", cfg.Thresholds.SmallBand, cfg.Thresholds.LargeBand),
	}
	path := filepath.Join(outDir, "diagnostics_report.pdf")
	if err := report.BuildPDFReport(path, meta, res.Summaries, res.Skipped, plots); err != nil {
		return fmt.Errorf("failed to build PDF report: %w", err)
	}
	return nil
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "diagnostics", "Output directory for artifacts")

	diagnoseCmd.Flags().StringVar(&inputDir, "input", "", "Directory of split channel recordings")
	diagnoseCmd.Flags().StringVar(&baseline, "baseline", config.Default().Baseline.Policy, "Baseline policy: self or set-median")
	diagnoseCmd.Flags().Float64Var(&smallBand, "small-band", 0.1, "Relative deviation band for small changes")
	diagnoseCmd.Flags().Float64Var(&largeBand, "large-band", 0.5, "Relative deviation band for large changes")
	diagnoseCmd.Flags().IntVar(&minTrials, "min-trials", 2, "Minimum trials for a set-median baseline")
	diagnoseCmd.Flags().Float64Var(&armRadius, "arm-radius", 0.1, "Mill arm radius in metres")
	diagnoseCmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (0 = one per CPU)")
	diagnoseCmd.Flags().BoolVar(&withPDF, "pdf", false, "Also build the PDF diagnostics report")
	diagnoseCmd.Flags().BoolVar(&withHTML, "charts", false, "Also build the HTML summary chart page")
	_ = diagnoseCmd.MarkFlagRequired("input")

	sweepCmd.Flags().StringVar(&sweepFile, "file", "", "Recording to sweep")
	_ = sweepCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(sweepCmd)
}
