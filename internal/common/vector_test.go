package common

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_Arithmetic(t *testing.T) {
	a := NewVector(3, 4)
	b := NewVector(1, -2)

	assert.Equal(t, NewVector(4, 2), a.Add(b))
	assert.Equal(t, NewVector(2, 6), a.Subtract(b))
	assert.Equal(t, NewVector(1.5, 2), a.Scale(0.5))
	assert.InDelta(t, 5.0, a.Norm(), 1e-12)
	assert.InDelta(t, 5.0, NewVector(0, 0).Distance(a), 1e-12)
}

func TestFromSlice(t *testing.T) {
	v, err := FromSlice([]float64{100, 450})
	require.NoError(t, err)
	assert.Equal(t, NewVector(100, 450), v)

	_, err = FromSlice([]float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 components")
}

func TestVector_JSON(t *testing.T) {
	data, err := json.Marshal(NewVector(1.5, -2))
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, -2]`, string(data))

	var v Vector
	require.NoError(t, json.Unmarshal([]byte(`[800, 480]`), &v))
	assert.Equal(t, NewVector(800, 480), v)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &v))
}

func TestNewRandomVector(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := []float64{-10, 10, 100, 200}
	for i := 0; i < 100; i++ {
		v, err := NewRandomVector(rng, bounds)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.X, -10.0)
		assert.LessOrEqual(t, v.X, 10.0)
		assert.GreaterOrEqual(t, v.Y, 100.0)
		assert.LessOrEqual(t, v.Y, 200.0)
	}

	_, err := NewRandomVector(rng, []float64{0, 1})
	assert.Error(t, err)
	_, err = NewRandomVector(rng, []float64{1, 0, 0, 1})
	assert.Error(t, err)
}

func TestNewRandomVector_Deterministic(t *testing.T) {
	bounds := []float64{0, 1000, 0, 1000}
	a, err := NewRandomVector(rand.New(rand.NewSource(42)), bounds)
	require.NoError(t, err)
	b, err := NewRandomVector(rand.New(rand.NewSource(42)), bounds)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
