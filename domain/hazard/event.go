package hazard

// TransitionKind identifies a change in the combined safety state machine.
type TransitionKind int

const (
	// EnteredHazard fires when a distance reading crosses at or below the
	// threshold while the previous status was SAFE.
	EnteredHazard TransitionKind = iota
	// ClearedHazard fires when a reading recovers above the threshold.
	ClearedHazard
	// OverrideEnabled fires when the operator suspends safe-mode restrictions.
	OverrideEnabled
	// OverrideDisabled fires when the operator re-arms safe mode.
	OverrideDisabled
)

func (k TransitionKind) String() string {
	switch k {
	case EnteredHazard:
		return "ENTERED_HAZARD"
	case ClearedHazard:
		return "CLEARED_HAZARD"
	case OverrideEnabled:
		return "OVERRIDE_ENABLED"
	case OverrideDisabled:
		return "OVERRIDE_DISABLED"
	default:
		return "UNKNOWN"
	}
}

// Transition is an ephemeral record of a state change. It is emitted by the
// Monitor or SafetyGate, consumed by the alert emitter, then discarded.
// Distance and Threshold are in meters and only meaningful for the hazard
// kinds.
type Transition struct {
	Kind      TransitionKind
	Distance  float64
	Threshold float64
}
