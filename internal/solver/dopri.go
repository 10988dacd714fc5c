package solver

import (
	"context"
	"fmt"
	"math"
)

// System is an autonomous ODE right-hand side. Implementations write the
// instantaneous rates for state y at time t into dydt.
type System interface {
	Derivative(t float64, y, dydt []float64)
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc func(t float64, y, dydt []float64)

func (f SystemFunc) Derivative(t float64, y, dydt []float64) {
	f(t, y, dydt)
}

// Options control the adaptive stepper. Zero values select the defaults.
type Options struct {
	RTol     float64 // relative tolerance, default 1e-8
	ATol     float64 // absolute tolerance, default 1e-10
	MinStep  float64 // step-size floor, default 1e-12
	MaxSteps int     // accepted+rejected step ceiling, default 10_000_000
}

func (o Options) withDefaults() Options {
	if o.RTol == 0 {
		o.RTol = 1e-8
	}
	if o.ATol == 0 {
		o.ATol = 1e-10
	}
	if o.MinStep == 0 {
		o.MinStep = 1e-12
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = 10_000_000
	}
	return o
}

// IntegrationError reports a failed integration along with how far the
// stepper got before giving up.
type IntegrationError struct {
	LastTime float64
	Steps    int
	Reason   string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at t=%g after %d steps: %s", e.LastTime, e.Steps, e.Reason)
}

// Dormand-Prince 5(4) coefficients.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// 5th-order solution weights (row 7 of dpA) and the embedded 4th-order
	// weights used for the error estimate.
	dpB4 = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// Integrate advances sys from y0 over the requested time grid and returns one
// state per grid point, in ascending time order. times must be strictly
// increasing; times[0] is the initial time and receives a copy of y0.
//
// The stepper is an adaptive Dormand-Prince 5(4) pair. Internal steps are
// clipped so each requested time is hit exactly, so the returned states need
// no interpolation. Integration is one-shot and deterministic: identical
// inputs and options produce identical output.
func Integrate(ctx context.Context, sys System, y0 []float64, times []float64, opts Options) ([][]float64, error) {
	opts = opts.withDefaults()

	if len(times) == 0 {
		return nil, &IntegrationError{Reason: "empty time grid"}
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, &IntegrationError{LastTime: times[i-1], Reason: "time grid is not strictly increasing"}
		}
	}

	n := len(y0)
	out := make([][]float64, len(times))
	out[0] = append([]float64(nil), y0...)

	t := times[0]
	y := append([]float64(nil), y0...)

	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	ytmp := make([]float64, n)
	ynew := make([]float64, n)
	yerr := make([]float64, n)

	// FSAL: k[0] holds the derivative at (t, y) across accepted steps.
	sys.Derivative(t, y, k[0])
	if !allFinite(k[0]) {
		return nil, &IntegrationError{LastTime: t, Reason: "non-finite derivative at initial state"}
	}

	h := initialStep(times)
	steps := 0

	for target := 1; target < len(times); target++ {
		tEnd := times[target]
		for t < tEnd {
			if err := ctx.Err(); err != nil {
				return nil, &IntegrationError{LastTime: t, Steps: steps, Reason: fmt.Sprintf("canceled: %v", err)}
			}
			steps++
			if steps > opts.MaxSteps {
				return nil, &IntegrationError{LastTime: t, Steps: steps, Reason: "step ceiling exceeded"}
			}

			hTry := h
			clipped := false
			if t+hTry >= tEnd {
				hTry = tEnd - t
				clipped = true
			}

			// Stage evaluations.
			for s := 1; s < 7; s++ {
				for j := 0; j < n; j++ {
					acc := 0.0
					for q := 0; q < s; q++ {
						acc += dpA[s][q] * k[q][j]
					}
					ytmp[j] = y[j] + hTry*acc
				}
				sys.Derivative(t+dpC[s]*hTry, ytmp, k[s])
			}

			// 5th-order advance; stage 7 (ytmp above) is the new solution.
			copy(ynew, ytmp)
			for j := 0; j < n; j++ {
				acc := 0.0
				for q := 0; q < 7; q++ {
					acc += dpB4[q] * k[q][j]
				}
				yerr[j] = ynew[j] - (y[j] + hTry*acc)
			}

			if !allFinite(ynew) {
				return nil, &IntegrationError{LastTime: t, Steps: steps, Reason: "state diverged to non-finite values"}
			}

			errNorm := 0.0
			for j := 0; j < n; j++ {
				sc := opts.ATol + opts.RTol*math.Max(math.Abs(y[j]), math.Abs(ynew[j]))
				e := yerr[j] / sc
				errNorm += e * e
			}
			errNorm = math.Sqrt(errNorm / float64(n))

			accepted := errNorm <= 1
			if accepted {
				copy(y, ynew)
				copy(k[0], k[6]) // FSAL
				if clipped {
					t = tEnd
				} else {
					t += hTry
				}
			}

			// Standard step controller with growth clamps. An accepted
			// clipped step keeps its pre-clip size for the next segment.
			factor := 0.9 * math.Pow(math.Max(errNorm, 1e-16), -0.2)
			factor = math.Min(5, math.Max(0.2, factor))
			if !(accepted && clipped) {
				h = hTry * factor
			}
			if h < opts.MinStep {
				return nil, &IntegrationError{LastTime: t, Steps: steps, Reason: fmt.Sprintf("step size %g below floor %g", h, opts.MinStep)}
			}
		}
		out[target] = append([]float64(nil), y...)
	}

	return out, nil
}

// initialStep picks a conservative first step from the grid spacing.
func initialStep(times []float64) float64 {
	if len(times) > 1 {
		return (times[1] - times[0]) / 10
	}
	return 1e-4
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
