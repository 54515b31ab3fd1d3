package ocp

import (
	"fmt"
	"math"

	"github.com/curioloop/optimizer/numdiff"
	"github.com/curioloop/optimizer/slsqp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/go-optctrl/response"
)

// Settings configure the external nonlinear solver collaborator
type Settings struct {
	// Accuracy is the convergence accuracy of the solver
	Accuracy float64
	// MaxIterations caps the solver iterations per solve
	MaxIterations int
}

func defaultSettings() Settings {
	return Settings{
		Accuracy:      1e-6,
		MaxIterations: 100,
	}
}

// Option configures the optimal control problem
type Option func(*Problem)

// WithSettings sets the external solver settings
func WithSettings(s Settings) Option {
	return func(p *Problem) {
		p.solver = s
	}
}

// TrajOption configures a single ComputeTrajectory call
type TrajOption func(*trajOptions)

type trajOptions struct {
	returnStates bool
	respOpts     []response.Option
}

// ReturnStates re-simulates the plant under the optimal inputs and
// attaches the state trajectory to the result
func ReturnStates() TrajOption {
	return func(o *trajOptions) {
		o.returnStates = true
	}
}

// Transpose requests time-major packaging of the result trajectories
func Transpose() TrajOption {
	return func(o *trajOptions) {
		o.respOpts = append(o.respOpts, response.Transpose())
	}
}

// Squeeze requests single-signal trajectories to keep a single row
func Squeeze() TrajOption {
	return func(o *trajOptions) {
		o.respOpts = append(o.respOpts, response.Squeeze())
	}
}

// solve runs one solver invocation from the stored initial guess and
// returns the optimal flat input trajectory. The initial state is
// captured in the objective and constraint closures for the duration of
// this call only, so concurrent solves on separate Problem instances
// never share state.
func (p *Problem) solve(x0 mat.Vector) ([]float64, error) {
	_, nu, _ := p.sys.SystemDims()
	n := nu * len(p.t)

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	obj := newVectorEval(n, 1, func(flat []float64) ([]float64, error) {
		c, err := p.Cost(x, mat.NewDense(nu, len(p.t), flat))
		if err != nil {
			return nil, err
		}
		return []float64{c}, nil
	})

	var eq, neq []slsqp.Evaluation
	var cons *vectorEval
	if len(p.lower) > 0 {
		cons = newVectorEval(n, len(p.lower), func(flat []float64) ([]float64, error) {
			return p.Constraints(x, mat.NewDense(nu, len(p.t), flat))
		})

		// Translate the stacked bounds l <= g(u) <= h into the solver's
		// equality and one-sided inequality forms, in stacking order.
		for i := range p.lower {
			l, h := p.lower[i], p.upper[i]
			switch {
			case l == h && !math.IsInf(l, 0):
				eq = append(eq, cons.row(i, 1, l))
			default:
				if !math.IsInf(l, -1) {
					neq = append(neq, cons.row(i, 1, l))
				}
				if !math.IsInf(h, 1) {
					neq = append(neq, cons.row(i, -1, h))
				}
			}
		}
	}

	prob := slsqp.Problem{
		N:       n,
		Object:  obj.row(0, 1, 0),
		EqCons:  eq,
		NeqCons: neq,
		Stop: slsqp.Termination{
			Accuracy:      p.solver.Accuracy,
			MaxIterations: p.solver.MaxIterations,
		},
	}

	opt, err := prob.New()
	if err != nil {
		return nil, fmt.Errorf("solver setup failed: %v", err)
	}

	guess := make([]float64, len(p.guess))
	copy(guess, p.guess)

	res := opt.Fit(guess, opt.Init())

	if err := obj.err; err != nil {
		return nil, err
	}
	if cons != nil && cons.err != nil {
		return nil, cons.err
	}

	if !res.OK {
		return nil, fmt.Errorf("%w: solver status %v after %d iterations", ErrNotConverged, res.Status, res.NumIter)
	}

	return res.X, nil
}

// vectorEval adapts a vector-valued function to the solver's per-row
// scalar evaluations. The function value and its finite-difference
// Jacobian are memoized per candidate point, so the plant is simulated
// once per point even though the solver asks for every stacked row
// separately. The memo lives for a single solve.
type vectorEval struct {
	n, m int
	fn   func([]float64) ([]float64, error)
	diff *numdiff.ApproxSpec

	// last point the values resp. Jacobian were computed at
	valX, jacX []float64
	vals       []float64
	jac        []float64

	// err records the first evaluation failure and poisons the solve
	err error
}

func newVectorEval(n, m int, fn func([]float64) ([]float64, error)) *vectorEval {
	ve := &vectorEval{
		n:    n,
		m:    m,
		fn:   fn,
		vals: make([]float64, m),
		jac:  make([]float64, m*n),
	}

	ve.diff = &numdiff.ApproxSpec{
		N:      n,
		M:      m,
		Method: numdiff.Forward,
		Object: func(x, y []float64) {
			vals, err := fn(x)
			if err != nil {
				ve.fail(err)
			}
			copy(y, vals)
		},
	}

	return ve
}

// fail records the first error and unwinds into the solver, which
// translates the panic into a failed solve.
func (ve *vectorEval) fail(err error) {
	if ve.err == nil {
		ve.err = err
	}
	panic(err)
}

func (ve *vectorEval) values(x []float64) []float64 {
	if ve.valX == nil || !floats.Equal(ve.valX, x) {
		vals, err := ve.fn(x)
		if err != nil {
			ve.fail(err)
		}
		copy(ve.vals, vals)
		ve.valX = append(ve.valX[:0], x...)
	}

	return ve.vals
}

func (ve *vectorEval) jacobian(x []float64) []float64 {
	if ve.jacX == nil || !floats.Equal(ve.jacX, x) {
		x0 := append([]float64{}, x...)
		if err := ve.diff.Diff(x0, ve.jac); err != nil {
			ve.fail(err)
		}
		ve.jacX = append(ve.jacX[:0], x...)
	}

	return ve.jac
}

// row returns the solver evaluation of sign*(g_i(x) - bound): the i-th
// stacked row shifted against one of its bounds. The gradient is the
// matching row of the memoized Jacobian.
func (ve *vectorEval) row(i int, sign, bound float64) slsqp.Evaluation {
	return func(x, g []float64) float64 {
		if g != nil {
			jac := ve.jacobian(x)
			for j := 0; j < ve.n; j++ {
				g[j] = sign * jac[i*ve.n+j]
			}
		}

		return sign * (ve.values(x)[i] - bound)
	}
}
