package database

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"withinhost/internal/config"
	"withinhost/internal/frame"
	"withinhost/internal/logging"
	"withinhost/internal/virology"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

// RunMetadata describes one completed model run.
type RunMetadata struct {
	RunID           int     `json:"run_id"`
	RunName         string  `json:"run_name"`
	Description     string  `json:"description"`
	RunStarted      string  `json:"run_started"`  // RFC3339 timestamp
	RunFinished     string  `json:"run_finished"` // RFC3339 timestamp
	DurationSeconds int64   `json:"duration_seconds"`
	DriverVersion   string  `json:"driver_version"`
	Hostname        string  `json:"hostname"`
	OSInfo          string  `json:"os_info"`
	TFinal          float64 `json:"t_final"`
	Dt              float64 `json:"dt"`
	SweepPoints     int     `json:"sweep_points"`
	TrajectoryRows  int     `json:"trajectory_rows"`
	R0              float64 `json:"r0"`
	BurstSize       float64 `json:"burst_size"`
	V0              int     `json:"v0"`
	Mu              float64 `json:"mu"`
	C               float64 `json:"c"`
	T0              float64 `json:"t0"`
	K               float64 `json:"k"`
	Delta           float64 `json:"delta"`
	EpsBeta         float64 `json:"eps_beta"`
	EpsP            float64 `json:"eps_p"`
	P               float64 `json:"p"`
	Beta            float64 `json:"beta"`
	Checksum        string  `json:"parameter_checksum"`
	ConfigFile      string  `json:"config_file"`
}

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.DatabaseConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Password)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}

	if health.Status != "pass" {
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": health.Message,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Name)
	queryAPI := client.QueryAPI(cfg.Org)

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Name,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: writeAPI,
		queryAPI: queryAPI,
		bucket:   cfg.Name,
		org:      cfg.Org,
	}, nil
}

func (idb *InfluxDBClient) GetLastRunID() (int, error) {
	ctx := context.Background()

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -30d)
		|> filter(fn: (r) => r._measurement == "run_meta")
		|> distinct(column: "run_id")
		|> map(fn: (r) => ({_value: int(v: r.run_id)}))
		|> max()
		|> yield(name: "max_run_id")
	`, idb.bucket)

	result, err := idb.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query last run ID: %w", err)
	}
	defer result.Close()

	maxID := 0
	for result.Next() {
		if result.Record().Value() != nil {
			if id, ok := result.Record().Value().(int64); ok {
				maxID = int(id)
			}
		}
	}

	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query results: %w", result.Err())
	}

	return maxID, nil
}

// WriteTrajectory stores one point per time sample, tagged with the run ID.
// Model time is mapped onto wall-clock offsets from the run start so every
// sample keeps a distinct timestamp.
func (idb *InfluxDBClient) WriteTrajectory(runID int, runName string, traj *frame.Trajectory, startTime time.Time) error {
	ctx := context.Background()

	var points []*write.Point
	for i := 0; i < traj.Len(); i++ {
		t, state := traj.At(i)

		point := influxdb2.NewPoint("trajectory",
			map[string]string{
				"run_id":   fmt.Sprintf("%d", runID),
				"run_name": runName,
			},
			map[string]interface{}{
				"t":                      t,
				"eclipse_cells":          state.EclipseCells,
				"infected_cells":         state.InfectedCells,
				"virions_infectious":     state.Virions,
				"virions_noninfectious":  state.VirionsNonInfectious,
				"target_cells":           state.TargetCells,
			},
			startTime.Add(time.Duration(t*float64(time.Second))))

		points = append(points, point)
	}

	if len(points) > 0 {
		if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("failed to write trajectory points: %w", err)
		}
	}

	return nil
}

// WriteCurves stores the establishment-probability curves, one point per
// efficacy sample, tagged with the run ID and the scenario name.
func (idb *InfluxDBClient) WriteCurves(runID int, runName string, startTime time.Time, curves ...*frame.ProbabilityCurve) error {
	ctx := context.Background()

	var points []*write.Point
	for _, curve := range curves {
		for i := 0; i < curve.Len(); i++ {
			eps, prob := curve.At(i)

			point := influxdb2.NewPoint("establishment_probability",
				map[string]string{
					"run_id":   fmt.Sprintf("%d", runID),
					"run_name": runName,
					"scenario": curve.Name(),
				},
				map[string]interface{}{
					"efficacy":    eps,
					"probability": prob,
				},
				startTime.Add(time.Duration(i)*time.Millisecond))

			points = append(points, point)
		}
	}

	if len(points) > 0 {
		if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("failed to write curve points: %w", err)
		}
	}

	return nil
}

func (idb *InfluxDBClient) WriteMetadata(metadata *RunMetadata) error {
	ctx := context.Background()

	point := influxdb2.NewPoint("run_meta",
		map[string]string{
			"run_id": fmt.Sprintf("%d", metadata.RunID),
		},
		map[string]interface{}{
			"run_name":         metadata.RunName,
			"description":      metadata.Description,
			"run_started":      metadata.RunStarted,
			"run_finished":     metadata.RunFinished,
			"duration_seconds": metadata.DurationSeconds,
			"driver_version":   metadata.DriverVersion,
			"hostname":         metadata.Hostname,
			"os_info":          metadata.OSInfo,
			"t_final":          metadata.TFinal,
			"dt":               metadata.Dt,
			"sweep_points":     metadata.SweepPoints,
			"trajectory_rows":  metadata.TrajectoryRows,
			"r0":               metadata.R0,
			"burst_size":       metadata.BurstSize,
			"v0":               metadata.V0,
			"mu":               metadata.Mu,
			"c":                metadata.C,
			"t0":               metadata.T0,
			"k":                metadata.K,
			"delta":            metadata.Delta,
			"eps_beta":         metadata.EpsBeta,
			"eps_p":            metadata.EpsP,
			"p":                  metadata.P,
			"beta":               metadata.Beta,
			"parameter_checksum": metadata.Checksum,
			"config_file":        metadata.ConfigFile,
		},
		time.Now())

	if err := idb.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// CollectRunMetadata assembles the metadata point for a finished run.
func CollectRunMetadata(runID int, cfg *config.ExperimentConfig, prim virology.PrimaryParameters, der virology.DerivedParameters, traj *frame.Trajectory, startTime, endTime time.Time, driverVersion, configFile string) *RunMetadata {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	rows := 0
	if traj != nil {
		rows = traj.Len()
	}

	checksum, err := config.ParameterChecksum(cfg)
	if err != nil {
		checksum = "unknown"
	}

	return &RunMetadata{
		RunID:           runID,
		RunName:         cfg.Experiment.Name,
		Description:     cfg.Experiment.Description,
		RunStarted:      startTime.Format(time.RFC3339),
		RunFinished:     endTime.Format(time.RFC3339),
		DurationSeconds: int64(endTime.Sub(startTime).Seconds()),
		DriverVersion:   driverVersion,
		Hostname:        hostname,
		OSInfo:          runtime.GOOS + "/" + runtime.GOARCH,
		TFinal:          cfg.Experiment.TFinal,
		Dt:              cfg.Experiment.Dt,
		SweepPoints:     cfg.Experiment.SweepPoints,
		TrajectoryRows:  rows,
		R0:              prim.R0,
		BurstSize:       prim.BurstSize,
		V0:              prim.V0,
		Mu:              prim.Mu,
		C:               prim.C,
		T0:              prim.T0,
		K:               prim.K,
		Delta:           prim.Delta,
		EpsBeta:         prim.EpsBeta,
		EpsP:            prim.EpsP,
		P:               der.P,
		Beta:            der.Beta,
		Checksum:        checksum,
		ConfigFile:      configFile,
	}
}

func (idb *InfluxDBClient) Close() {
	idb.client.Close()
}
