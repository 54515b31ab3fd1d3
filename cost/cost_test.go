package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

type mockSystem struct {
	nx, nu int
}

func (m *mockSystem) SystemDims() (nx, nu, ny int) {
	return m.nx, m.nu, 0
}

func (m *mockSystem) Simulate(t []float64, u *mat.Dense, x0 mat.Vector) (*mat.Dense, error) {
	return mat.NewDense(m.nx, len(t), nil), nil
}

func TestQuadratic(t *testing.T) {
	assert := assert.New(t)

	sys := &mockSystem{nx: 2, nu: 1}

	Q := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	R := mat.NewDense(1, 1, []float64{3})

	fn, err := Quadratic(sys, Q, R)
	assert.NoError(err)
	assert.NotNil(fn)

	x := mat.NewVecDense(2, []float64{1, 2})
	u := mat.NewVecDense(1, []float64{-1})

	// x'*Q*x + u'*R*u = 1 + 8 + 3
	assert.InDelta(12.0, fn(x, u), 1e-12)

	// zero state and input cost nothing
	assert.Equal(0.0, fn(mat.NewVecDense(2, nil), mat.NewVecDense(1, nil)))
}

func TestQuadraticDims(t *testing.T) {
	assert := assert.New(t)

	sys := &mockSystem{nx: 2, nu: 1}

	Q := mat.NewDense(2, 2, nil)
	R := mat.NewDense(1, 1, nil)

	fn, err := Quadratic(sys, mat.NewDense(3, 3, nil), R)
	assert.Nil(fn)
	assert.Error(err)

	fn, err = Quadratic(sys, mat.NewDense(2, 3, nil), R)
	assert.Nil(fn)
	assert.Error(err)

	fn, err = Quadratic(sys, Q, mat.NewDense(2, 2, nil))
	assert.Nil(fn)
	assert.Error(err)

	fn, err = Quadratic(sys, nil, R)
	assert.Nil(fn)
	assert.Error(err)
}
