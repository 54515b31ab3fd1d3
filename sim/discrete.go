package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations
//
//	x[n+1] = A*x[n] + B*u[n]
//	y[n] = C*x[n] + D*u[n]
//
// and returns it. It returns error if no system matrix is given.
func NewDiscrete(A, B, C, D *mat.Dense) (*Discrete, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}
	return &Discrete{System: newSystem(A, B, C, D)}, nil
}

// Propagate returns the next internal state x of a linear, discrete-time
// system given an input vector u and a disturbance input wd.
func (d *Discrete) Propagate(x, u, wd mat.Vector) (mat.Vector, error) {
	nx, nu, _ := d.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(d.A, x)

	if u != nil && d.B != nil {
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(d.B, u)

		out.AddVec(out, outU)
	}

	if wd != nil && wd.Len() == nx {
		out.AddVec(out, wd)
	}

	return out, nil
}

// Simulate simulates the system over the time grid t from the initial
// state x0 under the input trajectory u and returns the state trajectory.
// The state trajectory has one column per time point; its first column is
// x0. Only the number of grid points matters to a discrete-time model,
// the sample values themselves are ignored.
// It returns error if the trajectory dimensions do not match the system.
func (d *Discrete) Simulate(t []float64, u *mat.Dense, x0 mat.Vector) (*mat.Dense, error) {
	steps, err := d.checkTrajectory(t, u, x0)
	if err != nil {
		return nil, err
	}

	nx, _, _ := d.SystemDims()
	states := mat.NewDense(nx, steps, nil)

	x := mat.Vector(x0)
	for k := 0; k < steps; k++ {
		states.SetCol(k, rawVec(x))

		if k == steps-1 {
			break
		}

		var uk mat.Vector
		if u != nil {
			uk = u.ColView(k)
		}

		x, err = d.Propagate(x, uk, nil)
		if err != nil {
			return nil, fmt.Errorf("state propagation failed: %v", err)
		}
	}

	return states, nil
}

func rawVec(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}

	return out
}
