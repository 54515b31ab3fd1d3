package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A), input (B), Observation/Output (C)
// and Feedthrough (D) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
	// Feedthrough matrix D
	D *mat.Dense
}

func newSystem(A, B, C, D *mat.Dense) System {
	s := System{}
	if A != nil {
		s.A = &mat.Dense{}
		s.A.CloneFrom(A)
	}
	if B != nil {
		s.B = &mat.Dense{}
		s.B.CloneFrom(B)
	}
	if C != nil {
		s.C = &mat.Dense{}
		s.C.CloneFrom(C)
	}
	if D != nil {
		s.D = &mat.Dense{}
		s.D.CloneFrom(D)
	}

	return s
}

// SystemDims returns state, input and output dimensions of the system.
// The output dimension is zero when no observation matrix is defined.
func (s *System) SystemDims() (nx, nu, ny int) {
	nx, _ = s.A.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	if s.C != nil {
		ny, _ = s.C.Dims()
	}

	return nx, nu, ny
}

// Output returns the system output y = C*x + D*u at time t.
// It returns error if no observation matrix is defined or the state or
// input vector dimensions are invalid.
func (s *System) Output(t float64, x, u mat.Vector) (mat.Vector, error) {
	nx, nu, ny := s.SystemDims()

	if s.C == nil {
		return nil, fmt.Errorf("no observation matrix defined")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	out := mat.NewVecDense(ny, nil)
	out.MulVec(s.C, x)

	if u != nil && s.D != nil {
		outU := mat.NewVecDense(ny, nil)
		outU.MulVec(s.D, u)

		out.AddVec(out, outU)
	}

	return out, nil
}

// checkTrajectory validates the time grid, input trajectory and initial
// state against the system dimensions and returns the horizon length.
func (s *System) checkTrajectory(t []float64, u *mat.Dense, x0 mat.Vector) (int, error) {
	nx, nu, _ := s.SystemDims()

	if len(t) == 0 {
		return 0, fmt.Errorf("empty time grid")
	}

	if x0.Len() != nx {
		return 0, fmt.Errorf("invalid initial state: %d, expected %d", x0.Len(), nx)
	}

	if u != nil {
		rows, cols := u.Dims()
		if rows != nu || cols != len(t) {
			return 0, fmt.Errorf("invalid input trajectory: [%d x %d], expected [%d x %d]", rows, cols, nu, len(t))
		}
	}

	return len(t), nil
}
