package establish

import (
	"errors"
	"testing"

	"withinhost/internal/virology"
)

func defaultParams(t *testing.T) (virology.PrimaryParameters, virology.DerivedParameters) {
	t.Helper()
	prim := virology.DefaultParameters()
	der, err := virology.Derive(prim)
	if err != nil {
		t.Fatalf("failed to derive parameters: %v", err)
	}
	return prim, der
}

func TestBurstReductionAtZeroEfficacy(t *testing.T) {
	prim, der := defaultParams(t)

	prob, err := BurstReduction(0, prim, der)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// R0 > 1 with no drug, establishment is likely
	if prob <= 0 || prob > 1 {
		t.Fatalf("expected probability in (0,1], got %v", prob)
	}
}

func TestBurstReductionSubcriticalIsExactlyZero(t *testing.T) {
	prim, der := defaultParams(t)

	// (1-0.9)*7.69 = 0.769 < 1
	prob, err := BurstReduction(0.9, prim, der)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prob != 0 {
		t.Fatalf("expected exactly 0 below the establishment threshold, got %v", prob)
	}

	// near-total efficacy drives R0_eff toward 0
	prob, err = BurstReduction(0.99, prim, der)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prob != 0 {
		t.Fatalf("expected 0 as eps approaches 1, got %v", prob)
	}
}

func TestBurstReductionDecreasesWithEfficacy(t *testing.T) {
	prim, der := defaultParams(t)

	p01, err := BurstReduction(0.1, prim, der)
	if err != nil {
		t.Fatalf("unexpected error at eps=0.1: %v", err)
	}
	p05, err := BurstReduction(0.5, prim, der)
	if err != nil {
		t.Fatalf("unexpected error at eps=0.5: %v", err)
	}

	// a stronger drug can only lower the establishment chance
	if p01 < p05 {
		t.Fatalf("expected monotone curve: phi(0.1)=%v < phi(0.5)=%v", p01, p05)
	}
}

func TestInfectivityReductionEndpoints(t *testing.T) {
	prim, der := defaultParams(t)

	p0, err := InfectivityReduction(0, prim, der)
	if err != nil {
		t.Fatalf("unexpected error at eps=0: %v", err)
	}
	if p0 <= 0 || p0 > 1 {
		t.Fatalf("expected probability in (0,1] at eps=0, got %v", p0)
	}

	// the two scenarios agree with no drug applied
	pb, err := BurstReduction(0, prim, der)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p0 != pb {
		t.Fatalf("scenarios must agree at eps=0: %v != %v", p0, pb)
	}

	p99, err := InfectivityReduction(0.99, prim, der)
	if err != nil {
		t.Fatalf("unexpected error at eps=0.99: %v", err)
	}
	if p99 != 0 {
		t.Fatalf("expected subcritical R0_eff at eps=0.99 to give 0, got %v", p99)
	}
}

func TestZeroInoculumGivesZeroProbability(t *testing.T) {
	prim, der := defaultParams(t)
	prim.V0 = 0

	prob, err := BurstReduction(0, prim, der)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prob != 0 {
		t.Fatalf("expected (1-x)^0 branch to give 0, got %v", prob)
	}
}

func TestZeroInfectiousFractionIsDomainError(t *testing.T) {
	prim, der := defaultParams(t)
	prim.Mu = 0

	_, err := BurstReduction(0, prim, der)
	var derr *DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DomainError for mu=0, got %T: %v", err, err)
	}
	if derr.Base != 0 {
		t.Fatalf("error should carry the zero base, got %v", derr.Base)
	}

	_, err = InfectivityReduction(0, prim, der)
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DomainError for mu=0 in the infectivity scenario, got %T: %v", err, err)
	}
}
