// Package establish computes the probability that a founding virion
// population establishes a sustained infection, under two drug scenarios:
// reducing burst size or reducing infectivity.
package establish

import (
	"fmt"
	"math"

	"withinhost/internal/virology"
)

// DomainError reports a parameter combination for which the closed-form
// probability is undefined, or a computed probability that left [0,1].
type DomainError struct {
	Efficacy    float64
	Base        float64 // mu*B_eff, the extinction-probability denominator
	Probability float64
	Reason      string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("establishment probability undefined at eps=%g: %s", e.Efficacy, e.Reason)
}

// BurstReduction evaluates the establishment probability when the drug
// reduces burst size by the fraction eps. Both the effective burst size and
// the effective R0 scale by (1-eps); extinction is certain once the effective
// R0 drops below one.
func BurstReduction(eps float64, prim virology.PrimaryParameters, _ virology.DerivedParameters) (float64, error) {
	bEff := (1 - eps) * prim.BurstSize
	r0Eff := (1 - eps) * prim.R0
	return probability(eps, r0Eff, prim.Mu*bEff, prim.V0)
}

// InfectivityReduction evaluates the establishment probability when the drug
// reduces infectivity by the fraction eps. The effective R0 falls by the
// fraction of virions cleared before they infect; the burst size is
// unchanged.
func InfectivityReduction(eps float64, prim virology.PrimaryParameters, der virology.DerivedParameters) (float64, error) {
	r0Eff := prim.R0 * (1 - prim.C*eps/(prim.C+(1-eps)*der.Beta*prim.T0))
	return probability(eps, r0Eff, prim.Mu*prim.BurstSize, prim.V0)
}

// probability is the shared closed form: each founding virion escapes
// extinction with chance (R0_eff-1)/(mu*B_eff), so establishment fails only
// when all V0 lineages die out.
func probability(eps, r0Eff, muB float64, v0 int) (float64, error) {
	if r0Eff < 1 {
		return 0, nil
	}
	if muB <= 0 {
		return 0, &DomainError{
			Efficacy: eps,
			Base:     muB,
			Reason:   fmt.Sprintf("mu*B_eff = %g, per-virion survival chance is undefined", muB),
		}
	}

	prob := 1 - math.Pow(1-(r0Eff-1)/muB, float64(v0))
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, &DomainError{
			Efficacy:    eps,
			Base:        muB,
			Probability: prob,
			Reason:      fmt.Sprintf("computed probability %g outside [0,1]", prob),
		}
	}
	return prob, nil
}
