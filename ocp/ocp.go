package ocp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	optctrl "github.com/milosgajdos/go-optctrl"
	"github.com/milosgajdos/go-optctrl/constraint"
	"github.com/milosgajdos/go-optctrl/cost"
	"github.com/milosgajdos/go-optctrl/response"
)

// ErrNotConverged is returned when the solver fails to converge on an
// optimal input trajectory. It is the one expected, recoverable failure
// mode of the problem: in a receding-horizon loop a caller should treat
// it as "hold the previous input", not as a fatal error.
var ErrNotConverged = errors.New("optimization did not converge")

// Problem is an optimal control problem: it holds the plant model, the
// time grid, the cost functions and the trajectory and terminal
// constraints, and computes locally optimal input trajectories for the
// plant by driving an external nonlinear solver.
//
// A Problem is constructed once per configuration and reused across many
// MPC or ComputeTrajectory calls with different initial states. The
// stacked constraint bounds and the zero initial guess are computed at
// construction time and never recomputed. A single Problem must not run
// two solves concurrently; use one Problem per goroutine.
type Problem struct {
	// sys is the plant model
	sys optctrl.System
	// t is the time grid: len(t) is the horizon length
	t []float64
	// running is the cost accumulated at every time point
	running cost.Func
	// terminal is the cost evaluated at the final time point only
	terminal cost.Func
	// trajCons are applied at every time point
	trajCons []*constraint.Constraint
	// termCons are applied at the final time point only
	termCons []*constraint.Constraint
	// lower and upper are the stacked constraint bounds:
	// time-point-major, then constraint-list order, terminal last
	lower []float64
	upper []float64
	// guess is the default (zero) flat input trajectory guess
	guess []float64
	// solver holds external solver settings
	solver Settings
}

// New creates a new optimal control problem for the plant sys over the
// time grid t and returns it. The running cost is accumulated at every
// grid point; the optional terminal cost is added at the final point.
// Every trajectory constraint is applied at every grid point, every
// terminal constraint at the final point only.
//
// The stacked bound vectors are computed here, once: for each time point,
// for each trajectory constraint, the constraint bounds are appended in
// that nested order, then each terminal constraint's bounds are appended
// exactly once. Constraint evaluation produces its values in exactly the
// same order.
//
// It returns error if the plant, the grid or the running cost is invalid
// or a constraint does not match the stacked (state, input) dimension.
func New(sys optctrl.System, t []float64, running cost.Func, trajCons []*constraint.Constraint, terminal cost.Func, termCons []*constraint.Constraint, opts ...Option) (*Problem, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid plant model: nil")
	}

	nx, nu, _ := sys.SystemDims()
	if nx <= 0 || nu <= 0 {
		return nil, fmt.Errorf("invalid plant dimensions: [%d x %d]", nx, nu)
	}

	if len(t) == 0 {
		return nil, fmt.Errorf("empty time grid")
	}
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return nil, fmt.Errorf("time grid must be strictly increasing")
		}
	}

	if running == nil {
		return nil, fmt.Errorf("running cost must be defined")
	}

	for _, c := range append(append([]*constraint.Constraint{}, trajCons...), termCons...) {
		if c == nil {
			return nil, fmt.Errorf("nil constraint")
		}
		if m := c.Matrix(); m != nil {
			if _, cols := m.Dims(); cols != nx+nu {
				return nil, fmt.Errorf("%w: constraint has %d columns, stacked dimension is %d", constraint.ErrDimension, cols, nx+nu)
			}
		}
	}

	// Stack the constraint bounds: the same ordering is reproduced by
	// Constraints at evaluation time, element for element.
	var lower, upper []float64
	for range t {
		for _, c := range trajCons {
			lower = append(lower, c.Lower()...)
			upper = append(upper, c.Upper()...)
		}
	}
	for _, c := range termCons {
		lower = append(lower, c.Lower()...)
		upper = append(upper, c.Upper()...)
	}

	p := &Problem{
		sys:      sys,
		t:        append([]float64{}, t...),
		running:  running,
		terminal: terminal,
		trajCons: append([]*constraint.Constraint{}, trajCons...),
		termCons: append([]*constraint.Constraint{}, termCons...),
		lower:    lower,
		upper:    upper,
		guess:    make([]float64, nu*len(t)),
		solver:   defaultSettings(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Horizon returns the number of time points the input trajectory is
// optimized over
func (p *Problem) Horizon() int {
	return len(p.t)
}

// Bounds returns copies of the stacked lower and upper constraint bound
// vectors
func (p *Problem) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(p.lower))
	upper = make([]float64, len(p.upper))
	copy(lower, p.lower)
	copy(upper, p.upper)

	return lower, upper
}

// Cost evaluates the cost of the input trajectory u applied to the plant
// from the initial state x0 and returns it. The plant is simulated over
// the full time grid; the running cost is accumulated at every simulated
// (state, input) pair and the terminal cost, when defined, is added at
// the final pair.
// It returns error if the simulation fails.
func (p *Problem) Cost(x0 mat.Vector, u *mat.Dense) (float64, error) {
	states, err := p.sys.Simulate(p.t, u, x0)
	if err != nil {
		return 0, fmt.Errorf("plant simulation failed: %v", err)
	}

	c := 0.0
	for k := range p.t {
		c += p.running(states.ColView(k), u.ColView(k))
	}

	if p.terminal != nil {
		last := len(p.t) - 1
		c += p.terminal(states.ColView(last), u.ColView(last))
	}

	return c, nil
}

// Constraints evaluates every constraint along the trajectory generated
// by the input u from the initial state x0 and returns the stacked
// constraint values. For each time point, each trajectory constraint is
// evaluated on the stacked (state, input) vector at that point; each
// terminal constraint is then evaluated once, on the stacked vector at
// the final time point. The result ordering matches Bounds element for
// element.
// It returns error if the simulation or a constraint evaluation fails.
func (p *Problem) Constraints(x0 mat.Vector, u *mat.Dense) ([]float64, error) {
	states, err := p.sys.Simulate(p.t, u, x0)
	if err != nil {
		return nil, fmt.Errorf("plant simulation failed: %v", err)
	}

	value := make([]float64, 0, len(p.lower))

	for k := range p.t {
		xu := stackVec(states.ColView(k), u.ColView(k))
		for _, c := range p.trajCons {
			val, err := c.Eval(xu)
			if err != nil {
				return nil, err
			}
			value = appendVec(value, val)
		}
	}

	// terminal constraints hold at the final grid point
	last := len(p.t) - 1
	xu := stackVec(states.ColView(last), u.ColView(last))
	for _, c := range p.termCons {
		val, err := c.Eval(xu)
		if err != nil {
			return nil, err
		}
		value = appendVec(value, val)
	}

	return value, nil
}

// ComputeTrajectory computes a locally optimal input trajectory for the
// plant starting from the initial state x0 and returns it packaged as a
// response.Trajectory. The search starts from the stored all-zero guess.
// The state trajectory is only simulated and attached when the
// ReturnStates option is given.
// It returns an error wrapping ErrNotConverged if the solver fails to
// converge; callers running a control loop should treat that error as
// "hold the previous input" rather than abort.
func (p *Problem) ComputeTrajectory(x0 mat.Vector, opts ...TrajOption) (*response.Trajectory, error) {
	nx, nu, _ := p.sys.SystemDims()
	if x0 == nil || x0.Len() != nx {
		return nil, fmt.Errorf("invalid initial state")
	}

	var to trajOptions
	for _, opt := range opts {
		opt(&to)
	}

	flat, err := p.solve(x0)
	if err != nil {
		return nil, err
	}

	inputs := mat.NewDense(nu, len(p.t), flat)

	var states *mat.Dense
	if to.returnStates {
		states, err = p.sys.Simulate(p.t, inputs, x0)
		if err != nil {
			return nil, fmt.Errorf("plant simulation failed: %v", err)
		}
	}

	return response.New(p.t, inputs, states, to.respOpts...)
}

// MPC computes the receding-horizon control move for the current state x:
// the first time sample of the optimal input trajectory starting at x.
// It returns an error wrapping ErrNotConverged, and no control, if the
// underlying optimization fails.
func (p *Problem) MPC(x mat.Vector) (mat.Vector, error) {
	traj, err := p.ComputeTrajectory(x)
	if err != nil {
		return nil, err
	}

	u := &mat.VecDense{}
	u.CloneFromVec(traj.Inputs.ColView(0))

	return u, nil
}

// Control implements optctrl.Controller: it is equivalent to MPC
func (p *Problem) Control(x mat.Vector) (mat.Vector, error) {
	return p.MPC(x)
}

func stackVec(x, u mat.Vector) mat.Vector {
	out := mat.NewVecDense(x.Len()+u.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.SetVec(i, x.AtVec(i))
	}
	for i := 0; i < u.Len(); i++ {
		out.SetVec(x.Len()+i, u.AtVec(i))
	}

	return out
}

func appendVec(dst []float64, v mat.Vector) []float64 {
	for i := 0; i < v.Len(); i++ {
		dst = append(dst, v.AtVec(i))
	}

	return dst
}
