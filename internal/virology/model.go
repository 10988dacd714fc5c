package virology

// State is the five-population state vector of the within-host model.
type State struct {
	EclipseCells         float64 // I1, infected but not yet producing
	InfectedCells        float64 // I2, productively infected
	Virions              float64 // V_I, infectious virions
	VirionsNonInfectious float64 // V_NI
	TargetCells          float64 // T
}

// Dim is the dimension of the state vector.
const Dim = 5

// Vector returns the state as a solver-ordered slice.
func (s State) Vector() []float64 {
	return []float64{s.EclipseCells, s.InfectedCells, s.Virions, s.VirionsNonInfectious, s.TargetCells}
}

// StateFromVector converts a solver-ordered slice back into a State.
func StateFromVector(y []float64) State {
	return State{
		EclipseCells:         y[0],
		InfectedCells:        y[1],
		Virions:              y[2],
		VirionsNonInfectious: y[3],
		TargetCells:          y[4],
	}
}

// Model bundles the parameters needed to evaluate the derivative. It is
// stateless between calls.
type Model struct {
	Primary PrimaryParameters
	Derived DerivedParameters
}

// NewModel derives the secondary parameters and returns a ready model.
func NewModel(prim PrimaryParameters) (*Model, error) {
	der, err := Derive(prim)
	if err != nil {
		return nil, err
	}
	return &Model{Primary: prim, Derived: der}, nil
}

// InitialState returns the inoculation state: V0 infectious virions meeting
// T0 uninfected target cells.
func (m *Model) InitialState() State {
	return State{
		Virions:     float64(m.Primary.V0),
		TargetCells: m.Primary.T0,
	}
}

// Derivative evaluates the instantaneous rates at state y. The system is
// autonomous; t is part of the signature for solver compatibility only.
//
//	dI1/dt  = (1-eps_beta)*beta*T*V_I - k*I1
//	dI2/dt  = k*I1 - delta*I2
//	dV_I/dt = mu*(1-eps_p)*p*I2 - c*V_I - (1-eps_beta)*beta*T*V_I
//	dV_NI/dt = (1-mu)*(1-eps_p)*p*I2 - c*V_NI
//	dT/dt   = -(1-eps_beta)*beta*T*V_I
//
// Both virion pools clear against themselves at rate c.
func (m *Model) Derivative(t float64, y, dydt []float64) {
	p := m.Primary
	infection := (1 - p.EpsBeta) * m.Derived.Beta * y[4] * y[2]
	production := (1 - p.EpsP) * m.Derived.P * y[1]

	dydt[0] = infection - p.K*y[0]
	dydt[1] = p.K*y[0] - p.Delta*y[1]
	dydt[2] = p.Mu*production - p.C*y[2] - infection
	dydt[3] = (1-p.Mu)*production - p.C*y[3]
	dydt[4] = -infection
}
