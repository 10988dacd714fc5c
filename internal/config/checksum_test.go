package config

import "testing"

func testConfig(name string) *ExperimentConfig {
	cfg := &ExperimentConfig{
		Experiment: ExperimentInfo{Name: name, TFinal: 40, Dt: 0.01, SweepPoints: 101},
		Parameters: ParametersConfig{
			R0: 7.69, BurstSize: 18800, V0: 10, Mu: 0.001, C: 10,
			T0: 1330, K: 5, Delta: 0.595,
		},
	}
	return cfg
}

func TestParameterChecksum_IgnoresCosmetics(t *testing.T) {
	cfg1 := testConfig("run-a")
	cfg2 := testConfig("run-b")
	cfg2.Experiment.Description = "different description"
	cfg2.Experiment.OutputDir = "elsewhere"

	s1, err := ParameterChecksum(cfg1)
	if err != nil {
		t.Fatalf("ParameterChecksum(cfg1): %v", err)
	}
	s2, err := ParameterChecksum(cfg2)
	if err != nil {
		t.Fatalf("ParameterChecksum(cfg2): %v", err)
	}
	if s1 != s2 {
		t.Fatalf("checksum must ignore cosmetic fields: %q != %q", s1, s2)
	}
	if len(s1) != 6 {
		t.Fatalf("expected a 6-character checksum, got %q", s1)
	}
}

func TestParameterChecksum_SensitiveToParameters(t *testing.T) {
	cfg1 := testConfig("run")
	cfg2 := testConfig("run")
	cfg2.Parameters.EpsBeta = 0.5

	s1, _ := ParameterChecksum(cfg1)
	s2, _ := ParameterChecksum(cfg2)
	if s1 == s2 {
		t.Fatalf("checksum must change when a parameter changes: %q", s1)
	}

	cfg3 := testConfig("run")
	cfg3.Experiment.Dt = 0.1
	s3, _ := ParameterChecksum(cfg3)
	if s1 == s3 {
		t.Fatalf("checksum must change when the time grid changes: %q", s1)
	}
}

func TestParameterChecksum_NilConfig(t *testing.T) {
	s, err := ParameterChecksum(nil)
	if err != nil || s != "" {
		t.Fatalf("expected empty checksum for nil config, got %q, %v", s, err)
	}
}
