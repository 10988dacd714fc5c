package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"withinhost/internal/logging"

	"gopkg.in/yaml.v3"
)

func LoadConfig(filepath string) (*ExperimentConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

func LoadConfigWithContent(filepath string) (*ExperimentConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)

	// Expand environment variables
	expanded := expandEnvVars(originalContent)

	var config ExperimentConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return &config, originalContent, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func applyDefaults(config *ExperimentConfig) {
	exp := &config.Experiment
	if exp.TFinal == 0 {
		exp.TFinal = 40
	}
	if exp.Dt == 0 {
		exp.Dt = 0.01
	}
	if exp.SweepPoints == 0 {
		exp.SweepPoints = 101
	}
	if exp.OutputDir == "" {
		exp.OutputDir = "results"
	}
	if config.Parameters.T0 == 0 {
		config.Parameters.T0 = 1330
	}
}

func validateConfig(config *ExperimentConfig) error {
	exp := config.Experiment
	if exp.Name == "" {
		return fmt.Errorf("experiment name is required")
	}

	if exp.TFinal <= 0 {
		return fmt.Errorf("t_final must be greater than 0")
	}
	if exp.Dt <= 0 {
		return fmt.Errorf("dt must be greater than 0")
	}
	if exp.Dt > exp.TFinal {
		return fmt.Errorf("dt must not exceed t_final")
	}
	if exp.SweepPoints < 2 {
		return fmt.Errorf("sweep_points must be at least 2")
	}

	if err := config.Parameters.Primary().Validate(); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}

	// Validate database config only when export is requested
	if exp.Export {
		db := config.Database
		if db.Host == "" || db.Name == "" || db.User == "" || db.Password == "" || db.Org == "" {
			return fmt.Errorf("incomplete database configuration")
		}
	}

	return nil
}
