package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations
//
//	dx/dt = A*x + B*u
//	y = C*x + D*u
//
// and returns it. It returns error if no system matrix is given.
func NewContinuous(A, B, C, D *mat.Dense) (*Continuous, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}
	return &Continuous{System: newSystem(A, B, C, D)}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using Ts as the sampling time.
//
// It is calculated using Euler's method, an approximation valid for small timesteps.
func (ct *Continuous) ToDiscrete(Ts float64) (*Discrete, error) {
	nx, _, _ := ct.SystemDims()
	dsys := newSystem(ct.A, ct.B, ct.C, ct.D)
	// continuous -> discrete time conversion
	// See Discrete-Time Control Systems by Katsuhiko Ogata
	// Eq. (5-73) p. 315  Second Edition (Spanish)
	dsys.A.Scale(Ts, dsys.A)
	dsys.A.Exp(dsys.A)

	if ct.B == nil {
		return &Discrete{dsys}, nil
	}

	// shorthand name for discrete B matrix
	Bd := dsys.B
	Aaux := mat.NewDense(nx, nx, nil)
	// Given A is not singular, the following is valid
	// Bd(Ts) = (exp(A*Ts) - I)*inv(A)*B  Eq. (5-74 bis) Ogata
	eye, _ := matrix.NewDenseValIdentity(nx, 1.0)

	Aaux.Sub(dsys.A, eye)
	Ainv := mat.NewDense(nx, nx, nil)
	err := Ainv.Inverse(ct.A)
	if err == nil {
		Aaux.Mul(Aaux, Ainv)
		Bd.Mul(Aaux, ct.B)
		return &Discrete{dsys}, nil
	}

	Asum := Ainv        // change identifier to not confuse
	Asum.Scale(0, Asum) // reset data
	// if A matrix is singular we integrate with closed form
	// from 0 to Ts
	// Bd = integrate( exp(A*t)dt, 0, Ts ) * B   Eq. (5-74) Ogata
	const n = 100
	dt := Ts / float64(n-1)
	for i := 0; i < n; i++ {
		Aaux.Scale(dt*float64(i), ct.A)
		Aaux.Exp(Aaux)
		Aaux.Scale(dt, Aaux)
		Asum.Add(Asum, Aaux)
	}
	Bd.Mul(Asum, ct.B)
	return &Discrete{dsys}, nil
}

// Propagate returns the next internal state x of a linear,
// continuous-time system given an input vector u and a disturbance input
// wd. It propagates the solution by a timestep dt using Euler's method.
func (ct *Continuous) Propagate(x, u, wd mat.Vector, dt float64) (mat.Vector, error) {
	nx, nu, _ := ct.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(ct.A, x)

	if u != nil && ct.B != nil {
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(ct.B, u)

		out.AddVec(out, outU)
	}

	if wd != nil && wd.Len() == nx {
		out.AddVec(out, wd)
	}

	// integrate the first order derivatives calculated: dx/dt = A*x + B*u + wd
	out.ScaleVec(dt, out)
	out.AddVec(x, out)

	return out, nil
}

// Simulate simulates the system over the time grid t from the initial
// state x0 under the input trajectory u and returns the state trajectory.
// The input is held constant over each grid interval and the state is
// advanced with one Euler step per interval, consistent with Propagate.
// It returns error if the grid is not strictly increasing or the
// trajectory dimensions do not match the system.
func (ct *Continuous) Simulate(t []float64, u *mat.Dense, x0 mat.Vector) (*mat.Dense, error) {
	steps, err := ct.checkTrajectory(t, u, x0)
	if err != nil {
		return nil, err
	}

	nx, _, _ := ct.SystemDims()
	states := mat.NewDense(nx, steps, nil)

	x := mat.Vector(x0)
	for k := 0; k < steps; k++ {
		states.SetCol(k, rawVec(x))

		if k == steps-1 {
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

		x, err = ct.Propagate(x, uk, nil, dt)
		if err != nil {
			return nil, fmt.Errorf("state propagation failed: %v", err)
		}
	}

	return states, nil
}
