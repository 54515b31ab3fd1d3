package cost

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	optctrl "github.com/milosgajdos/go-optctrl"
)

// Func is a cost contribution at a single point along the trajectory:
// it maps a (state, input) pair to a scalar cost. The optimal control
// problem accumulates it over the time grid (running cost) or evaluates
// it once at the final point (terminal cost).
type Func func(x, u mat.Vector) float64

// Quadratic creates a quadratic cost x'*Q*x + u'*R*u and returns it.
// It returns error if Q or R is not square or does not match the state
// resp. input dimension of sys.
func Quadratic(sys optctrl.System, Q, R mat.Matrix) (Func, error) {
	nx, nu, _ := sys.SystemDims()

	if err := checkSquare("Q", Q, nx); err != nil {
		return nil, err
	}
	if err := checkSquare("R", R, nu); err != nil {
		return nil, err
	}

	q, r := &mat.Dense{}, &mat.Dense{}
	q.CloneFrom(Q)
	r.CloneFrom(R)

	return func(x, u mat.Vector) float64 {
		qx := mat.NewVecDense(nx, nil)
		qx.MulVec(q, x)

		ru := mat.NewVecDense(nu, nil)
		ru.MulVec(r, u)

		return mat.Dot(x, qx) + mat.Dot(u, ru)
	}, nil
}

func checkSquare(name string, m mat.Matrix, dim int) error {
	if m == nil {
		return fmt.Errorf("nil %s matrix", name)
	}

	rows, cols := m.Dims()
	if rows != cols || rows != dim {
		return fmt.Errorf("invalid %s dimensions: [%d x %d], expected [%d x %d]", name, rows, cols, dim, dim)
	}

	return nil
}
