package virology

import (
	"fmt"
	"math"
)

// PrimaryParameters are the user-supplied inputs of the within-host model.
// Rates are per day; cell and virion counts are absolute.
type PrimaryParameters struct {
	R0        float64 // basic reproduction number
	BurstSize float64 // virions produced per infected cell (B)
	V0        int     // initial infectious virions
	Mu        float64 // proportion of produced virions that are infectious
	C         float64 // virion clearance rate
	T0        float64 // initial target cell count
	K         float64 // eclipse-to-productive transition rate
	Delta     float64 // infected cell death rate
	EpsBeta   float64 // drug efficacy against infectivity, [0,1)
	EpsP      float64 // drug efficacy against virion production, [0,1)
}

// DerivedParameters are the mechanistic parameters computed from the primaries.
type DerivedParameters struct {
	P    float64 // virion production rate, p = B*delta
	Beta float64 // infectivity rate, beta = R0*c / ((mu*p/delta - R0)*T0)
}

// DerivationError reports a structural singularity in the beta derivation:
// the denominator (mu*p/delta - R0)*T0 is zero or negative, so no finite
// positive infectivity rate is consistent with the requested R0.
type DerivationError struct {
	R0          float64
	MuBurstSize float64 // mu*p/delta, which reduces to mu*B
	Denominator float64
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("beta is undefined: mu*B = %g must exceed R0 = %g (denominator %g)",
		e.MuBurstSize, e.R0, e.Denominator)
}

// Derive computes the secondary parameters from the primaries.
//
// p = B*delta. beta is chosen so that the deterministic model reproduces the
// requested R0; the derivation divides by (mu*p/delta - R0)*T0, which is zero
// or negative whenever mu*B <= R0. That region is surfaced as a
// *DerivationError instead of a NaN or a sign-flipped rate.
func Derive(prim PrimaryParameters) (DerivedParameters, error) {
	p := prim.BurstSize * prim.Delta

	gap := prim.Mu*p/prim.Delta - prim.R0
	denom := gap * prim.T0
	if gap <= 0 || denom == 0 {
		return DerivedParameters{}, &DerivationError{
			R0:          prim.R0,
			MuBurstSize: prim.Mu * p / prim.Delta,
			Denominator: denom,
		}
	}

	beta := prim.R0 * prim.C / denom
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return DerivedParameters{}, &DerivationError{
			R0:          prim.R0,
			MuBurstSize: prim.Mu * p / prim.Delta,
			Denominator: denom,
		}
	}

	return DerivedParameters{P: p, Beta: beta}, nil
}

// Formulae returns the display strings for the derived parameters, one per
// parameter, formula first then the numeric value.
func (d DerivedParameters) Formulae(prim PrimaryParameters) []string {
	return []string{
		fmt.Sprintf("p = B*delta = %g*%g = %g", prim.BurstSize, prim.Delta, d.P),
		fmt.Sprintf("beta = R0*c/((mu*p/delta - R0)*T0) = %g*%g/((%g*%g/%g - %g)*%g) = %g",
			prim.R0, prim.C, prim.Mu, d.P, prim.Delta, prim.R0, prim.T0, d.Beta),
	}
}

// Validate checks the primaries against the documented input ranges. The
// model itself accepts any finite values and fails through typed errors; this
// is the collaborator-side range enforcement.
func (p PrimaryParameters) Validate() error {
	if p.R0 < 2 || p.R0 > 20 {
		return fmt.Errorf("r0 must be in [2, 20], got %g", p.R0)
	}
	if p.BurstSize < 1880 || p.BurstSize > 188000 {
		return fmt.Errorf("burst_size must be in [1880, 188000], got %g", p.BurstSize)
	}
	if p.V0 < 1 || p.V0 > 50 {
		return fmt.Errorf("v0 must be in [1, 50], got %d", p.V0)
	}
	if p.Mu < 0 || p.Mu > 0.1 {
		return fmt.Errorf("mu must be in [0, 0.1], got %g", p.Mu)
	}
	if p.C < 1 || p.C > 20 {
		return fmt.Errorf("c must be in [1, 20], got %g", p.C)
	}
	if p.T0 <= 0 {
		return fmt.Errorf("t0 must be positive, got %g", p.T0)
	}
	if p.K < 1 || p.K > 10 {
		return fmt.Errorf("k must be in [1, 10], got %g", p.K)
	}
	if p.Delta < 0.1 || p.Delta > 1 {
		return fmt.Errorf("delta must be in [0.1, 1], got %g", p.Delta)
	}
	if p.EpsBeta < 0 || p.EpsBeta > 0.99 {
		return fmt.Errorf("eps_beta must be in [0, 0.99], got %g", p.EpsBeta)
	}
	if p.EpsP < 0 || p.EpsP > 0.99 {
		return fmt.Errorf("eps_p must be in [0, 0.99], got %g", p.EpsP)
	}
	return nil
}

// DefaultParameters is the baseline parameter set used by the examples.
func DefaultParameters() PrimaryParameters {
	return PrimaryParameters{
		R0:        7.69,
		BurstSize: 18800,
		V0:        10,
		Mu:        0.001,
		C:         10,
		T0:        1330,
		K:         5,
		Delta:     0.595,
		EpsBeta:   0,
		EpsP:      0,
	}
}
