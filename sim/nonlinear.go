package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StateFunc returns the state derivatives dx/dt at time t given state x
// and input u
type StateFunc func(t float64, x, u mat.Vector) mat.Vector

// OutputFunc returns the system output at time t given state x and input u
type OutputFunc func(t float64, x, u mat.Vector) mat.Vector

// Nonlinear is a model of a nonlinear, continuous-time, dynamical system
//
//	dx/dt = f(t, x, u)
//	y = h(t, x, u)
type Nonlinear struct {
	// f computes state derivatives
	f StateFunc
	// h computes system output
	h OutputFunc
	// nx, nu, ny are system dimensions
	nx, nu, ny int
}

// NewNonlinear creates a nonlinear continuous-time model with state
// dynamics f, output map h (may be nil) and the given state, input and
// output dimensions, and returns it.
// It returns error if f is nil or either dimension is not positive.
func NewNonlinear(f StateFunc, h OutputFunc, nx, nu, ny int) (*Nonlinear, error) {
	if f == nil {
		return nil, fmt.Errorf("state function must be defined for a model")
	}

	if nx <= 0 || nu < 0 || ny < 0 {
		return nil, fmt.Errorf("invalid model dimensions: [%d, %d, %d]", nx, nu, ny)
	}

	return &Nonlinear{f: f, h: h, nx: nx, nu: nu, ny: ny}, nil
}

// SystemDims returns state, input and output dimensions of the system
func (nl *Nonlinear) SystemDims() (nx, nu, ny int) {
	return nl.nx, nl.nu, nl.ny
}

// Output returns the system output at time t given state x and input u.
// It returns error if no output map is defined or the vector dimensions
// are invalid.
func (nl *Nonlinear) Output(t float64, x, u mat.Vector) (mat.Vector, error) {
	if nl.h == nil {
		return nil, fmt.Errorf("no output map defined")
	}

	if x.Len() != nl.nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	if u != nil && u.Len() != nl.nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	return nl.h(t, x, u), nil
}

// Propagate advances the state x by a timestep dt under constant input u
// using a single step of the classic Runge-Kutta (RK4) method.
func (nl *Nonlinear) Propagate(t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != nl.nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	if u != nil && u.Len() != nl.nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	k1 := nl.f(t, x, u)
	k2 := nl.f(t+dt/2, stepVec(x, k1, dt/2), u)
	k3 := nl.f(t+dt/2, stepVec(x, k2, dt/2), u)
	k4 := nl.f(t+dt, stepVec(x, k3, dt), u)

	out := mat.NewVecDense(nl.nx, nil)
	for i := 0; i < nl.nx; i++ {
		incr := k1.AtVec(i) + 2*k2.AtVec(i) + 2*k3.AtVec(i) + k4.AtVec(i)
		out.SetVec(i, x.AtVec(i)+dt*incr/6)
	}

	return out, nil
}

// Simulate simulates the system over the time grid t from the initial
// state x0 under the input trajectory u and returns the state trajectory.
// The input is held constant over each grid interval and the state is
// advanced with one RK4 step per interval.
// It returns error if the grid is not strictly increasing or the
// trajectory dimensions do not match the system.
func (nl *Nonlinear) Simulate(t []float64, u *mat.Dense, x0 mat.Vector) (*mat.Dense, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("empty time grid")
	}

	if x0.Len() != nl.nx {
		return nil, fmt.Errorf("invalid initial state: %d, expected %d", x0.Len(), nl.nx)
	}

	if u != nil {
		rows, cols := u.Dims()
		if rows != nl.nu || cols != len(t) {
			return nil, fmt.Errorf("invalid input trajectory: [%d x %d], expected [%d x %d]", rows, cols, nl.nu, len(t))
		}
	}

	states := mat.NewDense(nl.nx, len(t), nil)

	x := mat.Vector(x0)
	for k := range t {
		states.SetCol(k, rawVec(x))

		if k == len(t)-1 {
			break
		}

		dt := t[k+1] - t[k]
		if dt <= 0 {
			return nil, fmt.Errorf("time grid must be strictly increasing")
		}

		var uk mat.Vector
		if u != nil {
			uk = u.ColView(k)
		}

		var err error
		x, err = nl.Propagate(t[k], x, uk, dt)
		if err != nil {
			return nil, fmt.Errorf("state propagation failed: %v", err)
		}
	}

	return states, nil
}

func stepVec(x, dx mat.Vector, h float64) mat.Vector {
	out := mat.NewVecDense(x.Len(), nil)
	out.AddScaledVec(x, h, dx)

	return out
}
