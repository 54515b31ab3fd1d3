package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewZero(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	e, err = NewZero(-2)
	assert.Nil(e)
	assert.Error(err)
}

func TestZeroMeanCov(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	assert.Equal([]float64{0, 0}, e.Mean())

	cov := e.Cov()
	assert.Equal(2, cov.SymmetricDim())
	assert.Equal(0.0, mat.Sum(cov))
}

func TestZeroSample(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	sample := e.Sample()
	assert.Equal(2, sample.Len())
	assert.Equal(0.0, sample.AtVec(0))
	assert.Equal(0.0, sample.AtVec(1))

	assert.NoError(e.Reset())
}
