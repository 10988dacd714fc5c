package establish

import (
	"sync"

	"withinhost/internal/frame"
	"withinhost/internal/virology"

	"gonum.org/v1/gonum/floats"
)

// ScenarioFunc is an establishment-probability function evaluated at a single
// efficacy value.
type ScenarioFunc func(eps float64, prim virology.PrimaryParameters, der virology.DerivedParameters) (float64, error)

// DefaultGridPoints is the number of efficacy samples per curve.
const DefaultGridPoints = 101

// parallelThreshold is the grid size above which Sweep fans out.
const parallelThreshold = 256

// sweepWorkers bounds the fan-out; grid points are cheap, so a small pool is
// enough to hide the scheduling cost.
const sweepWorkers = 8

// Grid returns npts uniformly spaced efficacy values covering [0,1]
// inclusive.
func Grid(npts int) []float64 {
	if npts < 2 {
		npts = 2
	}
	grid := floats.Span(make([]float64, npts), 0, 1)
	grid[npts-1] = 1 // the endpoint must be exact
	return grid
}

// Sweep evaluates fn over the efficacy grid and returns the curve in
// canonical grid order. Points are independent, so large grids are evaluated
// concurrently; results are written by index, so the output order never
// depends on scheduling. The first error encountered (in grid order) fails
// the whole sweep.
func Sweep(name string, fn ScenarioFunc, prim virology.PrimaryParameters, der virology.DerivedParameters, grid []float64) (*frame.ProbabilityCurve, error) {
	probs := make([]float64, len(grid))
	errs := make([]error, len(grid))

	if len(grid) < parallelThreshold {
		for i, eps := range grid {
			probs[i], errs[i] = fn(eps, prim, der)
		}
	} else {
		var wg sync.WaitGroup
		work := make(chan int)
		for w := 0; w < sweepWorkers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range work {
					probs[i], errs[i] = fn(grid[i], prim, der)
				}
			}()
		}
		for i := range grid {
			work <- i
		}
		close(work)
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return frame.NewProbabilityCurve(name, append([]float64(nil), grid...), probs), nil
}
