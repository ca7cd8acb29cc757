package teleop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampedNormalizesOutOfRangeAxes(t *testing.T) {
	tests := []struct {
		name string
		in   Command
		want Command
	}{
		{"in range untouched", Command{Forward: 0.5, Turn: -0.5, Speed: 0.7}, Command{Forward: 0.5, Turn: -0.5, Speed: 0.7}},
		{"axes clamp high", Command{Forward: 2.0, Turn: 1.5, Speed: 3.0}, Command{Forward: 1.0, Turn: 1.0, Speed: 1.0}},
		{"axes clamp low", Command{Forward: -2.0, Turn: -1.1, Speed: -0.5}, Command{Forward: -1.0, Turn: -1.0, Speed: 0.0}},
		{"nan becomes zero", Command{Forward: math.NaN(), Turn: math.NaN(), Speed: math.NaN()}, Command{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamped())
		})
	}
}

func TestStopIsAllZero(t *testing.T) {
	assert.Equal(t, Command{}, Stop())
}

func TestEqualsWithinTolerance(t *testing.T) {
	a := Command{Forward: 0.5, Turn: 0.5, Speed: 0.5}

	assert.True(t, a.Equals(Command{Forward: 0.505, Turn: 0.5, Speed: 0.495}, 0.01))
	assert.False(t, a.Equals(Command{Forward: 0.52, Turn: 0.5, Speed: 0.5}, 0.01))
	assert.False(t, a.Equals(Command{Forward: 0.5, Turn: 0.5, Speed: 0.3}, 0.01))
}
