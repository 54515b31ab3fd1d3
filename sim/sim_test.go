package sim

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	A *mat.Dense
	B *mat.Dense
	C *mat.Dense
	D *mat.Dense
)

func setup() {
	A = mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	B = mat.NewDense(2, 1, []float64{0.5, 1.0})
	C = mat.NewDense(1, 2, []float64{1.0, 0.0})
	D = mat.NewDense(1, 1, []float64{0.0})
}

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func TestNewDiscrete(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, D)
	assert.NoError(err)
	assert.NotNil(d)

	nx, nu, ny := d.SystemDims()
	assert.Equal(2, nx)
	assert.Equal(1, nu)
	assert.Equal(1, ny)

	d, err = NewDiscrete(nil, B, C, D)
	assert.Nil(d)
	assert.Error(err)
}

func TestDiscretePropagate(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, D)
	assert.NoError(err)

	x := mat.NewVecDense(2, []float64{1, 2})
	u := mat.NewVecDense(1, []float64{2})

	next, err := d.Propagate(x, u, nil)
	assert.NoError(err)
	// A*x + B*u
	assert.Equal(4.0, next.AtVec(0))
	assert.Equal(4.0, next.AtVec(1))

	// disturbance is added to the propagated state
	next, err = d.Propagate(x, u, mat.NewVecDense(2, []float64{1, -1}))
	assert.NoError(err)
	assert.Equal(5.0, next.AtVec(0))
	assert.Equal(3.0, next.AtVec(1))

	next, err = d.Propagate(mat.NewVecDense(1, nil), u, nil)
	assert.Nil(next)
	assert.Error(err)

	next, err = d.Propagate(x, mat.NewVecDense(3, nil), nil)
	assert.Nil(next)
	assert.Error(err)
}

func TestDiscreteSimulate(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, D)
	assert.NoError(err)

	tgrid := []float64{0, 1, 2}
	u := mat.NewDense(1, 3, []float64{1, 1, 0})
	x0 := mat.NewVecDense(2, []float64{0, 0})

	states, err := d.Simulate(tgrid, u, x0)
	assert.NoError(err)

	rows, cols := states.Dims()
	assert.Equal(2, rows)
	assert.Equal(3, cols)

	// first column is the initial state
	assert.Equal(0.0, states.At(0, 0))
	assert.Equal(0.0, states.At(1, 0))
	// x1 = A*x0 + B*u0 = [0.5, 1]
	assert.Equal(0.5, states.At(0, 1))
	assert.Equal(1.0, states.At(1, 1))
	// x2 = A*x1 + B*u1 = [2, 2]
	assert.Equal(2.0, states.At(0, 2))
	assert.Equal(2.0, states.At(1, 2))

	// input trajectory must span the whole grid
	states, err = d.Simulate(tgrid, mat.NewDense(1, 2, nil), x0)
	assert.Nil(states)
	assert.Error(err)

	states, err = d.Simulate(nil, u, x0)
	assert.Nil(states)
	assert.Error(err)

	states, err = d.Simulate(tgrid, u, mat.NewVecDense(3, nil))
	assert.Nil(states)
	assert.Error(err)
}

func TestSystemOutput(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiscrete(A, B, C, D)
	assert.NoError(err)

	y, err := d.Output(0, mat.NewVecDense(2, []float64{3, 7}), mat.NewVecDense(1, []float64{1}))
	assert.NoError(err)
	assert.Equal(1, y.Len())
	assert.Equal(3.0, y.AtVec(0))

	y, err = d.Output(0, mat.NewVecDense(3, nil), nil)
	assert.Nil(y)
	assert.Error(err)

	// no observation matrix defined
	d, err = NewDiscrete(A, B, nil, nil)
	assert.NoError(err)
	y, err = d.Output(0, mat.NewVecDense(2, nil), nil)
	assert.Nil(y)
	assert.Error(err)
}

func TestContinuousPropagate(t *testing.T) {
	assert := assert.New(t)

	// dx/dt = -x + u
	ct, err := NewContinuous(mat.NewDense(1, 1, []float64{-1}), mat.NewDense(1, 1, []float64{1}), nil, nil)
	assert.NoError(err)

	x := mat.NewVecDense(1, []float64{1})
	u := mat.NewVecDense(1, []float64{0.5})

	// one Euler step: x + dt*(-x + u)
	next, err := ct.Propagate(x, u, nil, 0.1)
	assert.NoError(err)
	assert.InDelta(0.95, next.AtVec(0), 1e-12)
}

func TestContinuousSimulate(t *testing.T) {
	assert := assert.New(t)

	// free decay dx/dt = -x
	ct, err := NewContinuous(mat.NewDense(1, 1, []float64{-1}), nil, nil, nil)
	assert.NoError(err)

	steps := 101
	tgrid := make([]float64, steps)
	for i := range tgrid {
		tgrid[i] = float64(i) * 0.01
	}

	states, err := ct.Simulate(tgrid, nil, mat.NewVecDense(1, []float64{1}))
	assert.NoError(err)

	_, cols := states.Dims()
	assert.Equal(steps, cols)
	// Euler with a fine grid stays close to e^-1
	assert.InDelta(math.Exp(-1), states.At(0, steps-1), 1e-2)

	// the grid must be strictly increasing
	states, err = ct.Simulate([]float64{0, 0}, nil, mat.NewVecDense(1, []float64{1}))
	assert.Nil(states)
	assert.Error(err)
}

func TestContinuousToDiscrete(t *testing.T) {
	assert := assert.New(t)

	ct, err := NewContinuous(mat.NewDense(1, 1, []float64{-1}), mat.NewDense(1, 1, []float64{1}), nil, nil)
	assert.NoError(err)

	Ts := 0.1
	d, err := ct.ToDiscrete(Ts)
	assert.NoError(err)
	assert.NotNil(d)

	// Ad = exp(A*Ts), Bd = (exp(A*Ts) - I)*inv(A)*B
	assert.InDelta(math.Exp(-Ts), d.A.At(0, 0), 1e-12)
	assert.InDelta(1-math.Exp(-Ts), d.B.At(0, 0), 1e-12)
}

func TestNonlinear(t *testing.T) {
	assert := assert.New(t)

	// dx/dt = -x + u
	f := func(tm float64, x, u mat.Vector) mat.Vector {
		out := mat.NewVecDense(1, nil)
		uv := 0.0
		if u != nil {
			uv = u.AtVec(0)
		}
		out.SetVec(0, -x.AtVec(0)+uv)
		return out
	}
	h := func(tm float64, x, u mat.Vector) mat.Vector {
		out := mat.NewVecDense(1, nil)
		out.SetVec(0, 2*x.AtVec(0))
		return out
	}

	nl, err := NewNonlinear(f, h, 1, 1, 1)
	assert.NoError(err)

	nx, nu, ny := nl.SystemDims()
	assert.Equal(1, nx)
	assert.Equal(1, nu)
	assert.Equal(1, ny)

	// RK4 free decay over [0, 1] is accurate even on a coarse grid
	tgrid := []float64{0, 0.25, 0.5, 0.75, 1.0}
	u := mat.NewDense(1, 5, nil)

	states, err := nl.Simulate(tgrid, u, mat.NewVecDense(1, []float64{1}))
	assert.NoError(err)
	assert.InDelta(math.Exp(-1), states.At(0, 4), 1e-4)

	y, err := nl.Output(0, mat.NewVecDense(1, []float64{3}), nil)
	assert.NoError(err)
	assert.Equal(6.0, y.AtVec(0))

	nl, err = NewNonlinear(nil, nil, 1, 1, 0)
	assert.Nil(nl)
	assert.Error(err)

	nl, err = NewNonlinear(f, nil, 0, 1, 0)
	assert.Nil(nl)
	assert.Error(err)
}
