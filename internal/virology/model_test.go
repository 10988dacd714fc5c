package virology

import (
	"testing"
)

func newTestModel(t *testing.T, prim PrimaryParameters) *Model {
	t.Helper()
	m, err := NewModel(prim)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	return m
}

func TestInitialState(t *testing.T) {
	m := newTestModel(t, DefaultParameters())

	s := m.InitialState()
	if s.Virions != 10 {
		t.Fatalf("expected virions(0) = 10, got %v", s.Virions)
	}
	if s.TargetCells != 1330 {
		t.Fatalf("expected targetCells(0) = 1330, got %v", s.TargetCells)
	}
	if s.EclipseCells != 0 || s.InfectedCells != 0 || s.VirionsNonInfectious != 0 {
		t.Fatalf("expected zero infected populations at t=0, got %+v", s)
	}
}

func TestStateVectorRoundTrip(t *testing.T) {
	s := State{EclipseCells: 1, InfectedCells: 2, Virions: 3, VirionsNonInfectious: 4, TargetCells: 5}
	got := StateFromVector(s.Vector())
	if got != s {
		t.Fatalf("round trip changed state: %+v != %+v", got, s)
	}
	if len(s.Vector()) != Dim {
		t.Fatalf("expected vector dimension %d, got %d", Dim, len(s.Vector()))
	}
}

func TestDerivativeAtInoculation(t *testing.T) {
	m := newTestModel(t, DefaultParameters())

	y := m.InitialState().Vector()
	dydt := make([]float64, Dim)
	m.Derivative(0, y, dydt)

	infection := m.Derived.Beta * 1330 * 10

	if dydt[0] != infection {
		t.Fatalf("expected dI1/dt = %v, got %v", infection, dydt[0])
	}
	// no productive cells yet, so I2 is static
	if dydt[1] != 0 {
		t.Fatalf("expected dI2/dt = 0 at t=0, got %v", dydt[1])
	}
	wantDV := -m.Primary.C*10 - infection
	if dydt[2] != wantDV {
		t.Fatalf("expected dV_I/dt = %v, got %v", wantDV, dydt[2])
	}
	if dydt[3] != 0 {
		t.Fatalf("expected dV_NI/dt = 0 at t=0, got %v", dydt[3])
	}
	// every infection event consumes exactly one target cell
	if dydt[4] != -dydt[0] {
		t.Fatalf("expected dT/dt = -dI1/dt, got %v and %v", dydt[4], dydt[0])
	}
}

func TestTargetCellDerivativeNeverPositive(t *testing.T) {
	m := newTestModel(t, DefaultParameters())

	states := []State{
		m.InitialState(),
		{EclipseCells: 5, InfectedCells: 20, Virions: 1000, VirionsNonInfectious: 5000, TargetCells: 800},
		{Virions: 0, TargetCells: 1330},
		{InfectedCells: 100, Virions: 1e6, TargetCells: 1},
	}

	dydt := make([]float64, Dim)
	for _, s := range states {
		m.Derivative(0, s.Vector(), dydt)
		if dydt[4] > 0 {
			t.Fatalf("dT/dt must never be positive, got %v for state %+v", dydt[4], s)
		}
	}
}

func TestDrugEfficacyScalesRates(t *testing.T) {
	prim := DefaultParameters()
	base := newTestModel(t, prim)

	prim.EpsBeta = 0.5
	prim.EpsP = 0.5
	treated := newTestModel(t, prim)

	y := State{EclipseCells: 1, InfectedCells: 10, Virions: 100, TargetCells: 1000}.Vector()
	d0 := make([]float64, Dim)
	d1 := make([]float64, Dim)
	base.Derivative(0, y, d0)
	treated.Derivative(0, y, d1)

	// halved infectivity halves the target-cell depletion rate
	if d1[4] != d0[4]/2 {
		t.Fatalf("expected dT/dt to halve under eps_beta=0.5: %v vs %v", d1[4], d0[4])
	}
	// halved production halves the non-infectious virion source
	wantVNI := (1 - prim.Mu) * 0.5 * base.Derived.P * 10
	if diff := d1[3] - wantVNI; diff > 1e-9*wantVNI || diff < -1e-9*wantVNI {
		t.Fatalf("expected dV_NI/dt ~%v under eps_p=0.5, got %v", wantVNI, d1[3])
	}
}
