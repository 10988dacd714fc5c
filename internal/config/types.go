package config

import (
	"withinhost/internal/virology"
)

type ExperimentConfig struct {
	Experiment ExperimentInfo   `yaml:"experiment"`
	Parameters ParametersConfig `yaml:"parameters"`
	Database   DatabaseConfig   `yaml:"database"`
}

type ExperimentInfo struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	LogLevel    string  `yaml:"log_level"`
	TFinal      float64 `yaml:"t_final"`
	Dt          float64 `yaml:"dt"`
	SweepPoints int     `yaml:"sweep_points"`
	OutputDir   string  `yaml:"output_dir"`
	Export      bool    `yaml:"export"`
}

type ParametersConfig struct {
	R0        float64 `yaml:"r0"`
	BurstSize float64 `yaml:"burst_size"`
	V0        int     `yaml:"v0"`
	Mu        float64 `yaml:"mu"`
	C         float64 `yaml:"c"`
	T0        float64 `yaml:"t0"`
	K         float64 `yaml:"k"`
	Delta     float64 `yaml:"delta"`
	EpsBeta   float64 `yaml:"eps_beta"`
	EpsP      float64 `yaml:"eps_p"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Org      string `yaml:"org"`
}

// Primary maps the config block onto the model's parameter record.
func (p ParametersConfig) Primary() virology.PrimaryParameters {
	return virology.PrimaryParameters{
		R0:        p.R0,
		BurstSize: p.BurstSize,
		V0:        p.V0,
		Mu:        p.Mu,
		C:         p.C,
		T0:        p.T0,
		K:         p.K,
		Delta:     p.Delta,
		EpsBeta:   p.EpsBeta,
		EpsP:      p.EpsP,
	}
}

// TimeGridSize returns the number of samples on [0, t_final] with spacing dt,
// endpoints included.
func (e ExperimentInfo) TimeGridSize() int {
	return int(e.TFinal/e.Dt+0.5) + 1
}
