package safety

import (
	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/teleop"
)

// DefaultSpeedCap is the hard speed limit applied while safe mode is active.
const DefaultSpeedCap = 0.3

// Gate arbitrates operator commands against the active hazard state. While
// safe mode is enabled it blocks forward motion and caps speed; backward
// motion and turning remain available so the operator can escape the hazard.
//
// The gate is the single authoritative safety chokepoint: every motion
// command must pass through Apply before reaching a publisher.
//
// Gate is not safe for concurrent use; it is owned by the controller loop.
type Gate struct {
	safeModeEnabled bool
	manualOverride  bool
	cap             float64
}

// NewGate creates a gate with safe mode disarmed and the given safe-mode
// speed cap. A cap outside (0, 1] falls back to the default.
func NewGate(speedCap float64) *Gate {
	if !(speedCap > 0) || speedCap > 1 {
		speedCap = DefaultSpeedCap
	}
	return &Gate{cap: speedCap}
}

// OnTransition arms or disarms safe mode as the hazard status flips.
// Entering hazard enables safe mode unless a manual override is already
// active; clearing hazard always disables it. The override flag itself
// survives hazard recovery.
func (g *Gate) OnTransition(tr hazard.Transition) {
	switch tr.Kind {
	case hazard.EnteredHazard:
		g.safeModeEnabled = !g.manualOverride
	case hazard.ClearedHazard:
		g.safeModeEnabled = false
	}
}

// SetOverride records the manual override flag. While a hazard is active,
// enabling the override drops safe mode immediately and disabling it re-arms
// safe mode. While SAFE the flag is recorded for future transitions only.
// A transition event is returned when the flag actually changed, nil when the
// call was a no-op.
func (g *Gate) SetOverride(enabled bool, status hazard.Status) *hazard.Transition {
	if g.manualOverride == enabled {
		return nil
	}
	g.manualOverride = enabled

	if status == hazard.StatusHazard {
		g.safeModeEnabled = !enabled
	}

	kind := hazard.OverrideDisabled
	if enabled {
		kind = hazard.OverrideEnabled
	}
	return &hazard.Transition{Kind: kind}
}

// Apply produces the command actually sent to the drivetrain. With safe mode
// off the raw command passes through untouched. With safe mode on, forward
// motion is clamped to zero and speed is capped; turning passes through. The
// returned flag reports whether THIS call restricted the command, for
// logging only. A command already within safe-mode limits is not re-flagged
// on every tick.
func (g *Gate) Apply(raw teleop.Command) (teleop.Command, bool) {
	if !g.safeModeEnabled {
		return raw, false
	}

	out := raw
	restricted := false

	if out.Forward > 0 {
		out.Forward = 0
		restricted = true
	}
	if out.Speed > g.cap {
		out.Speed = g.cap
		restricted = true
	}

	return out, restricted
}

// SafeModeEnabled reports whether command restrictions are currently active.
func (g *Gate) SafeModeEnabled() bool { return g.safeModeEnabled }

// Override reports the recorded manual override flag.
func (g *Gate) Override() bool { return g.manualOverride }

// SpeedCap returns the configured safe-mode speed cap.
func (g *Gate) SpeedCap() float64 { return g.cap }
