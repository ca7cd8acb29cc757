package teleop

import "math"

// Command is a single motion intent for the rover drivetrain.
// Forward and Turn are normalized axes in [-1, 1]; Speed is a scalar in
// [0, 1]. Commands are value types produced fresh on every control tick and
// carry no identity.
type Command struct {
	Forward float64 `json:"forward"`
	Turn    float64 `json:"turn"`
	Speed   float64 `json:"speed"`
}

// Stop is the all-zero emergency stop command.
func Stop() Command {
	return Command{}
}

// Clamped returns a copy of the command normalized to the documented ranges.
// Operator input devices can transiently report out-of-range values, so
// malformed axes are clamped rather than rejected. NaN axes become zero.
func (c Command) Clamped() Command {
	return Command{
		Forward: clamp(c.Forward, -1, 1),
		Turn:    clamp(c.Turn, -1, 1),
		Speed:   clamp(c.Speed, 0, 1),
	}
}

// Equals reports whether two commands are within tolerance of each other on
// every axis. Used for publish-on-change suppression.
func (c Command) Equals(other Command, tolerance float64) bool {
	return math.Abs(c.Forward-other.Forward) <= tolerance &&
		math.Abs(c.Turn-other.Turn) <= tolerance &&
		math.Abs(c.Speed-other.Speed) <= tolerance
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
