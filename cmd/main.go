package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"withinhost/internal/config"
	"withinhost/internal/database"
	"withinhost/internal/establish"
	"withinhost/internal/frame"
	"withinhost/internal/logging"
	"withinhost/internal/solver"
	"withinhost/internal/virology"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

const Version = "1.0.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	// Try to load .env file from current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
	} else {
		// Try to load from the application directory
		if execPath, err := os.Executable(); err == nil {
			appDir := filepath.Dir(execPath)
			envFile = filepath.Join(appDir, ".env")
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
				} else {
					logger.WithField("file", envFile).Debug("Loaded environment variables")
				}
			}
		}
	}
}

func validateEnvironment() error {
	logger := logging.GetLogger()

	requiredVars := []string{
		"INFLUXDB_HOST",
		"INFLUXDB_USER",
		"INFLUXDB_TOKEN",
		"INFLUXDB_ORG",
		"INFLUXDB_BUCKET",
	}

	var missing []string
	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missing = append(missing, varName)
		}
	}

	if len(missing) > 0 {
		logger.WithField("missing_vars", missing).Error("Missing required environment variables")
		return fmt.Errorf("missing required environment variables: %v. Please ensure your .env file contains these variables", missing)
	}

	logger.Debug("All required environment variables are present")
	return nil
}

func Execute() error {
	loadEnvironment()

	var configFile string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "withinhost",
		Short: "Within-host viral dynamics model",
		Long:  "Computes within-host infection dynamics and establishment probabilities under antiviral drug efficacy",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full experiment",
		Long:  "Integrate the infection trajectory and sweep both establishment-probability scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(configFile, false)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Compute the establishment-probability curves only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(configFile, true)
		},
	}

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the derived mechanistic parameters",
		Long:  "Derive the virion production rate p and the infectivity rate beta from the primary parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printDerived(configFile)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an experiment configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfigFile(configFile)
		},
	}

	for _, c := range []*cobra.Command{runCmd, sweepCmd, deriveCmd, validateCmd} {
		c.Flags().StringVarP(&configFile, "config", "c", "", "Path to experiment configuration file")
		c.MarkFlagRequired("config")
		rootCmd.AddCommand(c)
	}

	return rootCmd.Execute()
}

func runExperiment(configFile string, sweepOnly bool) error {
	logger := logging.GetLogger()
	startTime := time.Now()

	cfg, _, err := config.LoadConfigWithContent(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Failed to load configuration")
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Experiment.LogLevel != "" {
		if err := logging.SetLogLevel(cfg.Experiment.LogLevel); err != nil {
			logger.WithField("log_level", cfg.Experiment.LogLevel).WithError(err).Warn("Invalid log level in config, using INFO")
			logging.SetLogLevel("info")
		}
	}

	prim := cfg.Parameters.Primary()
	model, err := virology.NewModel(prim)
	if err != nil {
		logger.WithError(err).Error("Parameter derivation failed")
		return fmt.Errorf("failed to derive parameters: %w", err)
	}

	for _, formula := range model.Derived.Formulae(prim) {
		logger.Info(formula)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Experiment.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var traj *frame.Trajectory
	if !sweepOnly {
		times := floats.Span(make([]float64, cfg.Experiment.TimeGridSize()), 0, cfg.Experiment.TFinal)

		states, err := solver.Integrate(ctx, model, model.InitialState().Vector(), times, solver.Options{})
		if err != nil {
			logger.WithError(err).Error("Integration failed")
			return fmt.Errorf("failed to integrate trajectory: %w", err)
		}
		logging.GetSolverLogger().WithFields(logrus.Fields{
			"samples": len(states),
			"t_final": cfg.Experiment.TFinal,
		}).Debug("Integration completed")

		traj, err = frame.NewTrajectory(times, states)
		if err != nil {
			return fmt.Errorf("failed to assemble trajectory: %w", err)
		}

		if err := writeCSVFile(filepath.Join(cfg.Experiment.OutputDir, "trajectory.csv"), traj.WriteCSV); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"rows":    traj.Len(),
			"t_final": cfg.Experiment.TFinal,
			"dt":      cfg.Experiment.Dt,
		}).Info("Trajectory written")
	}

	grid := establish.Grid(cfg.Experiment.SweepPoints)

	burst, err := establish.Sweep("burst_reduction", establish.BurstReduction, prim, model.Derived, grid)
	if err != nil {
		logger.WithError(err).Error("Burst-reduction sweep failed")
		return fmt.Errorf("failed to sweep burst-reduction scenario: %w", err)
	}

	infectivity, err := establish.Sweep("infectivity_reduction", establish.InfectivityReduction, prim, model.Derived, grid)
	if err != nil {
		logger.WithError(err).Error("Infectivity-reduction sweep failed")
		return fmt.Errorf("failed to sweep infectivity-reduction scenario: %w", err)
	}

	for _, curve := range []*frame.ProbabilityCurve{burst, infectivity} {
		if err := writeCSVFile(filepath.Join(cfg.Experiment.OutputDir, curve.Name()+".csv"), curve.WriteCSV); err != nil {
			return err
		}
	}
	logger.WithField("points", burst.Len()).Info("Probability curves written")

	if cfg.Experiment.Export {
		if err := exportRun(cfg, prim, model.Derived, traj, burst, infectivity, startTime, configFile); err != nil {
			return err
		}
	}

	logger.WithField("duration", time.Since(startTime).Round(time.Millisecond)).Info("Experiment finished")
	return nil
}

func exportRun(cfg *config.ExperimentConfig, prim virology.PrimaryParameters, der virology.DerivedParameters, traj *frame.Trajectory, burst, infectivity *frame.ProbabilityCurve, startTime time.Time, configFile string) error {
	logger := logging.GetLogger()

	if err := validateEnvironment(); err != nil {
		return err
	}

	dbClient, err := database.NewInfluxDBClient(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbClient.Close()

	lastID, err := dbClient.GetLastRunID()
	if err != nil {
		logger.WithError(err).Warn("Failed to query last run ID, starting from 1")
	}
	runID := lastID + 1

	if traj != nil {
		if err := dbClient.WriteTrajectory(runID, cfg.Experiment.Name, traj, startTime); err != nil {
			return err
		}
	}
	if err := dbClient.WriteCurves(runID, cfg.Experiment.Name, startTime, burst, infectivity); err != nil {
		return err
	}

	endTime := time.Now()
	metadata := database.CollectRunMetadata(runID, cfg, prim, der, traj, startTime, endTime, Version, configFile)
	if err := dbClient.WriteMetadata(metadata); err != nil {
		return err
	}

	logger.WithField("run_id", runID).Info("Run exported to InfluxDB")
	return nil
}

func printDerived(configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	prim := cfg.Parameters.Primary()
	der, err := virology.Derive(prim)
	if err != nil {
		return fmt.Errorf("failed to derive parameters: %w", err)
	}

	for _, formula := range der.Formulae(prim) {
		fmt.Println(formula)
	}
	return nil
}

func validateConfigFile(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"name":         cfg.Experiment.Name,
		"t_final":      cfg.Experiment.TFinal,
		"dt":           cfg.Experiment.Dt,
		"sweep_points": cfg.Experiment.SweepPoints,
	}).Info("Configuration is valid")
	return nil
}

func writeCSVFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
