package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

type parameterChecksumPayload struct {
	R0        float64 `json:"r0"`
	BurstSize float64 `json:"burst_size"`
	V0        int     `json:"v0"`
	Mu        float64 `json:"mu"`
	C         float64 `json:"c"`
	T0        float64 `json:"t0"`
	K         float64 `json:"k"`
	Delta     float64 `json:"delta"`
	EpsBeta   float64 `json:"eps_beta"`
	EpsP      float64 `json:"eps_p"`
	TFinal    float64 `json:"t_final"`
	Dt        float64 `json:"dt"`
	SweepPts  int     `json:"sweep_points"`
}

// ParameterChecksum returns a short, stable checksum identifying the effective
// numerical experiment (parameter values plus grids), independent of name,
// description, and output settings.
//
// It computes MD5 over a canonical JSON representation and returns the first 6
// hex characters (equivalent to `md5sum | cut -c1-6`).
func ParameterChecksum(cfg *ExperimentConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}

	p := cfg.Parameters
	payload := parameterChecksumPayload{
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
		TFinal:    cfg.Experiment.TFinal,
		Dt:        cfg.Experiment.Dt,
		SweepPts:  cfg.Experiment.SweepPoints,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(b)
	hexStr := hex.EncodeToString(sum[:])
	if len(hexStr) > 6 {
		hexStr = hexStr[:6]
	}
	return hexStr, nil
}
