package optctrl

import "gonum.org/v1/gonum/mat"

// System is a model of a dynamical system: the plant whose input
// trajectory is being optimized.
type System interface {
	// Simulate simulates the system over the time grid t from the initial
	// state x0 under the input trajectory u and returns the state
	// trajectory. u must have one column per time point; the returned
	// state trajectory has the same number of columns.
	Simulate(t []float64, u *mat.Dense, x0 mat.Vector) (*mat.Dense, error)
	// SystemDims returns state, input and output dimensions of the system
	SystemDims() (nx, nu, ny int)
}

// Outputter observes the external state (output) of the system
type Outputter interface {
	// Output returns the system output at time t given state x and input u
	Output(t float64, x, u mat.Vector) (mat.Vector, error)
}

// Propagator advances the internal state of the system by one step
type Propagator interface {
	// Propagate propagates internal state of the system to the next step
	Propagate(x, u, wd mat.Vector) (mat.Vector, error)
}

// Controller computes a control input from the current system state
type Controller interface {
	// Control returns the input to apply at state x
	Control(x mat.Vector) (mat.Vector, error)
}

// Noise is a disturbance acting on the simulated system
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
