package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPoint_FromInt64(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		scale int
		want  string
	}{
		{"zero", 0, 0, "0"},
		{"positive", 123, 0, "123"},
		{"negative", -456, 0, "-456"},
		{"with scale", 123, 2, "1.23"},
		{"negative with scale", -456, 3, "-0.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromInt64(tt.value, tt.scale).String())
		})
	}
}

func TestFixedPoint_FromFloat64(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"zero", 0.0, "0"},
		{"positive", 123.45, "123.45"},
		{"negative", -67.89, "-67.89"},
		{"small decimal", 0.0001, "0.0001"},
		{"large number", 1e10, "10000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromFloat64(tt.value)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.value, got.Float64())
		})
	}
}

func TestFixedPoint_FromFloat64Panics(t *testing.T) {
	assert.Panics(t, func() { FromFloat64(math.NaN()) })
	assert.Panics(t, func() { FromFloat64(math.Inf(1)) })
}

func TestFixedPoint_Arithmetic(t *testing.T) {
	a := FromFloat64(10.5)
	b := FromFloat64(0.25)

	assert.Equal(t, "10.75", a.Add(b).String())
	assert.Equal(t, "10.25", a.Sub(b).String())
	assert.Equal(t, "2.625", a.Mul(b).String())
	assert.True(t, a.Div(b).Eq(FromInt64(42, 0)))
	assert.True(t, a.MulInt64(2).Eq(FromInt64(21, 0)))
	assert.True(t, a.DivInt64(2).Eq(FromFloat64(5.25)))
	assert.Equal(t, -1, a.Neg().Sign())
	assert.True(t, a.Neg().Abs().Eq(a))
}

func TestFixedPoint_Comparison(t *testing.T) {
	a := FromInt64(5, 0)
	b := FromInt64(7, 0)

	assert.True(t, a.Lt(b))
	assert.True(t, a.Lte(b))
	assert.True(t, b.Gt(a))
	assert.True(t, b.Gte(a))
	assert.True(t, a.Eq(FromInt64(500, 2)))
	assert.True(t, Zero.IsZero())
	assert.False(t, One.IsZero())
}

func TestFixedPoint_RoundToStep(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		step  float64
		want  float64
	}{
		{"cent up", 10.037, 0.01, 10.04},
		{"cent down", 10.032, 0.01, 10.03},
		{"quarter", 10.3, 0.25, 10.25},
		{"whole", 99.7, 1, 100},
		{"zero step", 10.037, 0, 10.037},
		{"negative", -10.037, 0.01, -10.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromFloat64(tt.value).RoundToStep(FromFloat64(tt.step))
			assert.True(t, got.Eq(FromFloat64(tt.want)), "got %s", got)
		})
	}
}

func TestFixedPoint_Rescale(t *testing.T) {
	assert.Equal(t, "1.50", FromFloat64(1.5).Rescale(2).String())
	assert.Equal(t, "1.23", FromFloat64(1.234).Round(2).String())
}

func TestFixedPoint_MarshalText(t *testing.T) {
	b, err := FromFloat64(1.25).MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "1.25", string(b))
}
