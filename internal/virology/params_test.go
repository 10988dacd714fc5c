package virology

import (
	"errors"
	"math"
	"testing"
)

func TestDeriveProductionRateExact(t *testing.T) {
	prim := DefaultParameters()

	der, err := Derive(prim)
	if err != nil {
		t.Fatalf("unexpected derivation error: %v", err)
	}

	// p = B*delta is pure multiplication, so equality is exact
	want := prim.BurstSize * prim.Delta
	if der.P != want {
		t.Fatalf("expected p = %v, got %v", want, der.P)
	}
	if der.P != 11186 {
		t.Fatalf("expected p = 11186 for the default set, got %v", der.P)
	}
}

func TestDeriveBetaFiniteAndPositive(t *testing.T) {
	prim := DefaultParameters()

	der, err := Derive(prim)
	if err != nil {
		t.Fatalf("unexpected derivation error: %v", err)
	}

	if math.IsNaN(der.Beta) || math.IsInf(der.Beta, 0) {
		t.Fatalf("beta is not finite: %v", der.Beta)
	}
	if der.Beta <= 0 {
		t.Fatalf("expected positive beta, got %v", der.Beta)
	}

	// beta = R0*c / ((mu*B - R0)*T0) = 76.9 / 14776.3
	want := 76.9 / 14776.3
	if der.Beta < want*0.999999 || der.Beta > want*1.000001 {
		t.Fatalf("expected beta ~%v, got %v", want, der.Beta)
	}
}

func TestDeriveSingularityExact(t *testing.T) {
	// mu*B = 0.5*4 = 2 = R0 exactly; the denominator is zero
	prim := PrimaryParameters{
		R0:        2,
		BurstSize: 4,
		V0:        10,
		Mu:        0.5,
		C:         10,
		T0:        1330,
		K:         5,
		Delta:     0.5,
	}

	der, err := Derive(prim)
	if err == nil {
		t.Fatalf("expected DerivationError, got beta=%v", der.Beta)
	}

	var derr *DerivationError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DerivationError, got %T: %v", err, err)
	}
	if math.IsNaN(der.Beta) || math.IsInf(der.Beta, 0) {
		t.Fatalf("beta leaked a non-finite value alongside the error: %v", der.Beta)
	}
}

func TestDeriveNegativeDenominator(t *testing.T) {
	// mu*B = 1.88 < R0, beta would flip sign
	prim := DefaultParameters()
	prim.BurstSize = 1880

	_, err := Derive(prim)
	var derr *DerivationError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DerivationError, got %T: %v", err, err)
	}
	if derr.MuBurstSize >= derr.R0 {
		t.Fatalf("error should carry mu*B (%v) below R0 (%v)", derr.MuBurstSize, derr.R0)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PrimaryParameters)
	}{
		{"r0 too low", func(p *PrimaryParameters) { p.R0 = 1 }},
		{"r0 too high", func(p *PrimaryParameters) { p.R0 = 25 }},
		{"burst size too low", func(p *PrimaryParameters) { p.BurstSize = 100 }},
		{"v0 zero", func(p *PrimaryParameters) { p.V0 = 0 }},
		{"v0 too high", func(p *PrimaryParameters) { p.V0 = 51 }},
		{"mu negative", func(p *PrimaryParameters) { p.Mu = -0.01 }},
		{"mu too high", func(p *PrimaryParameters) { p.Mu = 0.2 }},
		{"c too low", func(p *PrimaryParameters) { p.C = 0.5 }},
		{"t0 zero", func(p *PrimaryParameters) { p.T0 = 0 }},
		{"k too high", func(p *PrimaryParameters) { p.K = 11 }},
		{"delta too low", func(p *PrimaryParameters) { p.Delta = 0.05 }},
		{"eps_beta too high", func(p *PrimaryParameters) { p.EpsBeta = 1 }},
		{"eps_p too high", func(p *PrimaryParameters) { p.EpsP = 1 }},
	}

	for _, tc := range cases {
		prim := DefaultParameters()
		tc.mutate(&prim)
		if err := prim.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	if err := DefaultParameters().Validate(); err != nil {
		t.Fatalf("default parameters should validate: %v", err)
	}
}

func TestFormulaeMentionValues(t *testing.T) {
	prim := DefaultParameters()
	der, err := Derive(prim)
	if err != nil {
		t.Fatalf("unexpected derivation error: %v", err)
	}

	formulae := der.Formulae(prim)
	if len(formulae) != 2 {
		t.Fatalf("expected two display formulae, got %d", len(formulae))
	}
	if formulae[0] == "" || formulae[1] == "" {
		t.Fatalf("formulae must not be empty: %q", formulae)
	}
}
