package constraint

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	optctrl "github.com/milosgajdos/go-optctrl"
)

var (
	// ErrDimension is returned when matrix or bound dimensions do not match
	ErrDimension = errors.New("invalid dimensions")
	// ErrUnknownKind is returned when a constraint carries an unknown kind tag.
	// It can not happen with constraints built by this package.
	ErrUnknownKind = errors.New("unknown constraint kind")
)

// Kind tags the two supported constraint shapes
type Kind int

const (
	// Linear constraint: a matrix applied to the stacked (state, input) vector
	Linear Kind = iota + 1
	// Nonlinear constraint: a function of the stacked (state, input) vector
	Nonlinear
)

// Func evaluates a nonlinear constraint on the stacked (state, input) vector
type Func func(xu mat.Vector) (mat.Vector, error)

// Constraint describes one constraint on the stacked (state, input) vector
// at a single point in time. The same constraint is applied at every point
// along the trajectory (or at the final point only, for terminal
// constraints) by the optimal control problem.
type Constraint struct {
	// kind selects the payload: a for Linear, fn for Nonlinear
	kind Kind
	// a is the Linear constraint matrix
	a *mat.Dense
	// fn is the Nonlinear constraint function
	fn Func
	// dim is the output dimension of the constraint
	dim int
	// lower and upper are the constraint bounds
	lower []float64
	upper []float64
}

// Polytope is a convex region {z : A*z <= b}
type Polytope struct {
	A *mat.Dense
	B []float64
}

// NewLinear creates a linear constraint lb <= A*[x;u] <= ub and returns it.
// It returns error if the bound lengths do not match the row count of A.
func NewLinear(A mat.Matrix, lb, ub []float64) (*Constraint, error) {
	if A == nil {
		return nil, fmt.Errorf("%w: nil constraint matrix", ErrDimension)
	}

	rows, _ := A.Dims()
	if len(lb) != rows || len(ub) != rows {
		return nil, fmt.Errorf("%w: matrix has %d rows, bounds %d, %d", ErrDimension, rows, len(lb), len(ub))
	}

	a := &mat.Dense{}
	a.CloneFrom(A)

	return &Constraint{
		kind:  Linear,
		a:     a,
		dim:   rows,
		lower: clone(lb),
		upper: clone(ub),
	}, nil
}

// NewNonlinear creates a nonlinear constraint lb <= fn([x;u]) <= ub and
// returns it. dim is the output dimension of fn.
// It returns error if fn is nil or the bound lengths do not match dim.
func NewNonlinear(fn Func, dim int, lb, ub []float64) (*Constraint, error) {
	if fn == nil {
		return nil, fmt.Errorf("nil constraint function")
	}

	if len(lb) != dim || len(ub) != dim {
		return nil, fmt.Errorf("%w: output dim %d, bounds %d, %d", ErrDimension, dim, len(lb), len(ub))
	}

	return &Constraint{
		kind:  Nonlinear,
		fn:    fn,
		dim:   dim,
		lower: clone(lb),
		upper: clone(ub),
	}, nil
}

// StatePoly creates a constraint keeping the system state inside the
// polytope p and returns it. The constraint matrix is the polytope matrix
// zero padded over the input block, so it can be evaluated on the stacked
// (state, input) vector like any other trajectory constraint.
// It returns error if the polytope column count does not match the state
// dimension of sys.
func StatePoly(sys optctrl.System, p *Polytope) (*Constraint, error) {
	nx, nu, _ := sys.SystemDims()

	rows, cols, err := polyDims(p)
	if err != nil {
		return nil, err
	}
	if cols != nx {
		return nil, fmt.Errorf("%w: polytope has %d columns, state dimension is %d", ErrDimension, cols, nx)
	}

	// [A | 0]
	a := mat.NewDense(rows, nx+nu, nil)
	a.Slice(0, rows, 0, nx).(*mat.Dense).Copy(p.A)

	return NewLinear(a, negInf(rows), clone(p.B))
}

// InputPoly creates a constraint keeping the system input inside the
// polytope p and returns it. The constraint matrix is the polytope matrix
// zero padded over the state block.
// It returns error if the polytope column count does not match the input
// dimension of sys.
func InputPoly(sys optctrl.System, p *Polytope) (*Constraint, error) {
	nx, nu, _ := sys.SystemDims()

	rows, cols, err := polyDims(p)
	if err != nil {
		return nil, err
	}
	if cols != nu {
		return nil, fmt.Errorf("%w: polytope has %d columns, input dimension is %d", ErrDimension, cols, nu)
	}

	// [0 | A]
	a := mat.NewDense(rows, nx+nu, nil)
	a.Slice(0, rows, nx, nx+nu).(*mat.Dense).Copy(p.A)

	return NewLinear(a, negInf(rows), clone(p.B))
}

// OutputPoly creates a constraint keeping the system output inside the
// polytope p and returns it. The system must implement optctrl.Outputter.
// The constraint slices the stacked vector back into state and input,
// evaluates the output map at time 0 and applies the polytope matrix to
// the result, so it is nonlinear in the stacked vector.
// It returns error if sys has no output map or the polytope column count
// does not match the output dimension of sys.
func OutputPoly(sys optctrl.System, p *Polytope) (*Constraint, error) {
	nx, _, ny := sys.SystemDims()

	out, ok := sys.(optctrl.Outputter)
	if !ok {
		return nil, fmt.Errorf("system has no output map")
	}

	rows, cols, err := polyDims(p)
	if err != nil {
		return nil, err
	}
	if cols != ny {
		return nil, fmt.Errorf("%w: polytope has %d columns, output dimension is %d", ErrDimension, cols, ny)
	}

	a := &mat.Dense{}
	a.CloneFrom(p.A)

	fn := func(xu mat.Vector) (mat.Vector, error) {
		x := vecSlice(xu, 0, nx)
		u := vecSlice(xu, nx, xu.Len())

		y, err := out.Output(0, x, u)
		if err != nil {
			return nil, err
		}

		val := mat.NewVecDense(rows, nil)
		val.MulVec(a, y)

		return val, nil
	}

	return NewNonlinear(fn, rows, negInf(rows), clone(p.B))
}

// Kind returns the constraint kind tag
func (c *Constraint) Kind() Kind {
	return c.kind
}

// Dim returns the output dimension of the constraint
func (c *Constraint) Dim() int {
	return c.dim
}

// Lower returns the constraint lower bound
func (c *Constraint) Lower() []float64 {
	return clone(c.lower)
}

// Upper returns the constraint upper bound
func (c *Constraint) Upper() []float64 {
	return clone(c.upper)
}

// Matrix returns the constraint matrix of a Linear constraint or nil
func (c *Constraint) Matrix() mat.Matrix {
	if c.a == nil {
		return nil
	}
	a := &mat.Dense{}
	a.CloneFrom(c.a)

	return a
}

// Eval evaluates the constraint on the stacked (state, input) vector xu
// and returns the constraint value. For a Linear constraint this is the
// exact product of the constraint matrix with xu.
// It returns error if the evaluation fails or the kind tag is invalid.
func (c *Constraint) Eval(xu mat.Vector) (mat.Vector, error) {
	switch c.kind {
	case Linear:
		_, cols := c.a.Dims()
		if xu.Len() != cols {
			return nil, fmt.Errorf("%w: vector length %d, matrix has %d columns", ErrDimension, xu.Len(), cols)
		}
		val := mat.NewVecDense(c.dim, nil)
		val.MulVec(c.a, xu)
		return val, nil
	case Nonlinear:
		val, err := c.fn(xu)
		if err != nil {
			return nil, err
		}
		if val.Len() != c.dim {
			return nil, fmt.Errorf("%w: constraint returned %d values, expected %d", ErrDimension, val.Len(), c.dim)
		}
		return val, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, c.kind)
	}
}

func polyDims(p *Polytope) (rows, cols int, err error) {
	if p == nil || p.A == nil {
		return 0, 0, fmt.Errorf("%w: empty polytope", ErrDimension)
	}

	rows, cols = p.A.Dims()
	if len(p.B) != rows {
		return 0, 0, fmt.Errorf("%w: polytope has %d rows, offset %d", ErrDimension, rows, len(p.B))
	}

	return rows, cols, nil
}

func vecSlice(v mat.Vector, from, to int) mat.Vector {
	out := mat.NewVecDense(to-from, nil)
	for i := from; i < to; i++ {
		out.SetVec(i-from, v.AtVec(i))
	}

	return out
}

func negInf(n int) []float64 {
	inf := make([]float64, n)
	for i := range inf {
		inf[i] = math.Inf(-1)
	}

	return inf
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	return out
}
