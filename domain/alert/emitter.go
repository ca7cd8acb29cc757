package alert

import (
	"fmt"

	"github.com/open-rover/controller/domain/hazard"
)

// Emitter turns safety state transitions into operator-facing alert text.
// It is stateless: the same transition always yields the same message, one
// alert per event, with no batching or rate limiting (the sensor stream is
// assumed rate-limited upstream).
type Emitter struct{}

// NewEmitter creates an alert emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Message returns the alert text for a transition.
func (e *Emitter) Message(tr hazard.Transition) string {
	switch tr.Kind {
	case hazard.EnteredHazard:
		return fmt.Sprintf(
			"EMERGENCY: Hazard distance breached! Distance: %.2fm (threshold %.2fm) - SAFE MODE ENABLED",
			tr.Distance, tr.Threshold)
	case hazard.ClearedHazard:
		return fmt.Sprintf(
			"ALL CLEAR: Safe distance restored. Distance: %.2fm (threshold %.2fm) - Normal operation resumed",
			tr.Distance, tr.Threshold)
	case hazard.OverrideEnabled:
		return "WARNING: Safe mode manually disabled - Full control enabled"
	case hazard.OverrideDisabled:
		return "Safe mode re-enabled - Safety restrictions active"
	default:
		return fmt.Sprintf("Unknown safety transition: %v", tr.Kind)
	}
}
