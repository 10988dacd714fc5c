// Package frame holds the result tables produced by a model run: the ODE
// trajectory and the establishment-probability curves. Tables are built once
// per run and are not mutated afterwards.
package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"withinhost/internal/virology"
)

// Trajectory column names, in output order.
const (
	ColTime                 = "time"
	ColEclipseCells         = "eclipse_cells"
	ColInfectedCells        = "infected_cells"
	ColVirions              = "virions_infectious"
	ColVirionsNonInfectious = "virions_noninfectious"
	ColTargetCells          = "target_cells"
)

var trajectoryHeader = []string{
	ColTime, ColEclipseCells, ColInfectedCells, ColVirions, ColVirionsNonInfectious, ColTargetCells,
}

// Trajectory is the sampled solution of the within-host ODE system: one
// five-population state per requested time point, ascending in time.
type Trajectory struct {
	times  []float64
	states []virology.State
}

// NewTrajectory builds a trajectory from the solver output. vectors must hold
// one solver-ordered state per time point.
func NewTrajectory(times []float64, vectors [][]float64) (*Trajectory, error) {
	if len(times) != len(vectors) {
		return nil, fmt.Errorf("trajectory has %d times but %d states", len(times), len(vectors))
	}
	states := make([]virology.State, len(vectors))
	for i, v := range vectors {
		if len(v) != virology.Dim {
			return nil, fmt.Errorf("state %d has dimension %d, want %d", i, len(v), virology.Dim)
		}
		states[i] = virology.StateFromVector(v)
	}
	return &Trajectory{
		times:  append([]float64(nil), times...),
		states: states,
	}, nil
}

func (tr *Trajectory) Len() int {
	return len(tr.times)
}

// At returns the i-th sample.
func (tr *Trajectory) At(i int) (float64, virology.State) {
	return tr.times[i], tr.states[i]
}

// Times returns a copy of the time column.
func (tr *Trajectory) Times() []float64 {
	return append([]float64(nil), tr.times...)
}

// Column returns a copy of the named series.
func (tr *Trajectory) Column(name string) ([]float64, error) {
	col := make([]float64, len(tr.states))
	for i, s := range tr.states {
		switch name {
		case ColTime:
			col[i] = tr.times[i]
		case ColEclipseCells:
			col[i] = s.EclipseCells
		case ColInfectedCells:
			col[i] = s.InfectedCells
		case ColVirions:
			col[i] = s.Virions
		case ColVirionsNonInfectious:
			col[i] = s.VirionsNonInfectious
		case ColTargetCells:
			col[i] = s.TargetCells
		default:
			return nil, fmt.Errorf("unknown trajectory column %q", name)
		}
	}
	return col, nil
}

// WriteCSV writes the trajectory as a table with named headers, one row per
// time sample.
func (tr *Trajectory) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trajectoryHeader); err != nil {
		return fmt.Errorf("failed to write trajectory header: %w", err)
	}
	row := make([]string, len(trajectoryHeader))
	for i, s := range tr.states {
		row[0] = formatFloat(tr.times[i])
		row[1] = formatFloat(s.EclipseCells)
		row[2] = formatFloat(s.InfectedCells)
		row[3] = formatFloat(s.Virions)
		row[4] = formatFloat(s.VirionsNonInfectious)
		row[5] = formatFloat(s.TargetCells)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write trajectory row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProbabilityCurve is one establishment-probability scenario sampled over the
// efficacy grid, in grid order.
type ProbabilityCurve struct {
	name     string
	efficacy []float64
	prob     []float64
}

// NewProbabilityCurve builds a named curve. The slices are taken over by the
// curve and must not be mutated by the caller.
func NewProbabilityCurve(name string, efficacy, prob []float64) *ProbabilityCurve {
	return &ProbabilityCurve{name: name, efficacy: efficacy, prob: prob}
}

func (c *ProbabilityCurve) Name() string {
	return c.name
}

func (c *ProbabilityCurve) Len() int {
	return len(c.efficacy)
}

// At returns the i-th (efficacy, probability) pair.
func (c *ProbabilityCurve) At(i int) (float64, float64) {
	return c.efficacy[i], c.prob[i]
}

// WriteCSV writes the curve as an (efficacy, probability) table.
func (c *ProbabilityCurve) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"efficacy", "probability"}); err != nil {
		return fmt.Errorf("failed to write curve header: %w", err)
	}
	for i := range c.efficacy {
		if err := cw.Write([]string{formatFloat(c.efficacy[i]), formatFloat(c.prob[i])}); err != nil {
			return fmt.Errorf("failed to write curve row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
