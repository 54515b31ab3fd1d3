package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNew(t *testing.T) {
	assert := assert.New(t)

	tgrid := []float64{0, 1, 2}
	u := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	x := mat.NewDense(1, 3, []float64{7, 8, 9})

	tr, err := New(tgrid, u, x)
	assert.NoError(err)
	assert.NotNil(tr)
	assert.Equal(tgrid, tr.Time)

	// data passes through unchanged
	assert.True(mat.Equal(u, tr.Inputs))
	assert.True(mat.Equal(x, tr.States))

	// states are optional
	tr, err = New(tgrid, u, nil)
	assert.NoError(err)
	assert.Nil(tr.States)

	tr, err = New(tgrid, nil, nil)
	assert.Nil(tr)
	assert.Error(err)

	// trajectories must span the whole grid
	tr, err = New(tgrid, mat.NewDense(2, 2, nil), nil)
	assert.Nil(tr)
	assert.Error(err)

	tr, err = New(tgrid, u, mat.NewDense(1, 2, nil))
	assert.Nil(tr)
	assert.Error(err)
}

func TestTranspose(t *testing.T) {
	assert := assert.New(t)

	tgrid := []float64{0, 1, 2}
	u := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	tr, err := New(tgrid, u, nil, Transpose())
	assert.NoError(err)

	rows, cols := tr.Inputs.Dims()
	assert.Equal(3, rows)
	assert.Equal(2, cols)
	assert.Equal(u.At(0, 1), tr.Inputs.At(1, 0))
}

func TestSqueeze(t *testing.T) {
	assert := assert.New(t)

	tgrid := []float64{0, 1, 2}
	u := mat.NewDense(1, 3, []float64{1, 2, 3})

	// a squeezed single signal keeps its single row under transpose
	tr, err := New(tgrid, u, nil, Transpose(), Squeeze())
	assert.NoError(err)

	rows, cols := tr.Inputs.Dims()
	assert.Equal(1, rows)
	assert.Equal(3, cols)
}

func TestAt(t *testing.T) {
	assert := assert.New(t)

	tgrid := []float64{0, 1, 2}
	u := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	tr, err := New(tgrid, u, nil)
	assert.NoError(err)

	u1 := tr.At(1)
	assert.NotNil(u1)
	assert.Equal(2.0, u1.AtVec(0))
	assert.Equal(5.0, u1.AtVec(1))

	// time-major packaging flips the lookup axis
	tr, err = New(tgrid, u, nil, Transpose())
	assert.NoError(err)

	u1 = tr.At(1)
	assert.NotNil(u1)
	assert.Equal(2.0, u1.AtVec(0))
	assert.Equal(5.0, u1.AtVec(1))

	assert.Nil(tr.At(10))
}
