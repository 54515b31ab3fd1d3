package response

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Trajectory packages the result of a trajectory optimization: the time
// grid together with the optimized input trajectory and, optionally, the
// matching state trajectory.
//
// Inputs and States hold one column per time point by default; the
// Transpose option switches both to one row per time point, matching the
// convention of time-major tooling.
type Trajectory struct {
	// Time is the time grid
	Time []float64
	// Inputs is the optimized input trajectory
	Inputs *mat.Dense
	// States is the matching state trajectory or nil
	States *mat.Dense
}

// Option configures trajectory packaging
type Option func(*options)

type options struct {
	transpose bool
	squeeze   bool
}

// Transpose stores trajectories with one row per time point instead of
// one column per time point.
func Transpose() Option {
	return func(o *options) {
		o.transpose = true
	}
}

// Squeeze drops the single-signal dimension: the trajectory of a
// one-dimensional signal is kept as a single row even when Transpose is
// requested.
func Squeeze() Option {
	return func(o *options) {
		o.squeeze = true
	}
}

// New packages the time grid t, the input trajectory u and the state
// trajectory x (may be nil) into a Trajectory and returns it. The data
// matrices pass through unchanged apart from the requested axis
// reordering; u and x are expected with one column per time point.
// It returns error if u is nil or the column counts do not match t.
func New(t []float64, u, x *mat.Dense, opts ...Option) (*Trajectory, error) {
	if u == nil {
		return nil, fmt.Errorf("no input trajectory supplied")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if _, cols := u.Dims(); cols != len(t) {
		return nil, fmt.Errorf("invalid input trajectory: %d columns, %d time points", cols, len(t))
	}

	if x != nil {
		if _, cols := x.Dims(); cols != len(t) {
			return nil, fmt.Errorf("invalid state trajectory: %d columns, %d time points", cols, len(t))
		}
	}

	time := make([]float64, len(t))
	copy(time, t)

	return &Trajectory{
		Time:   time,
		Inputs: format(u, &o),
		States: format(x, &o),
	}, nil
}

// At returns the input vector at time point k
func (tr *Trajectory) At(k int) mat.Vector {
	if tr.Inputs == nil {
		return nil
	}

	rows, cols := tr.Inputs.Dims()
	switch {
	case cols == len(tr.Time) && k < cols:
		return tr.Inputs.ColView(k)
	case rows == len(tr.Time) && k < rows:
		return tr.Inputs.RowView(k)
	}

	return nil
}

func format(m *mat.Dense, o *options) *mat.Dense {
	if m == nil {
		return nil
	}

	out := &mat.Dense{}
	out.CloneFrom(m)

	if !o.transpose {
		return out
	}

	rows, cols := out.Dims()
	if o.squeeze && rows == 1 {
		// a squeezed single signal has no axis left to swap
		return out
	}

	t := mat.NewDense(cols, rows, nil)
	t.Copy(out.T())

	return t
}
