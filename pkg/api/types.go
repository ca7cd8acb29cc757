package api

import "github.com/open-rover/controller/domain/rover"

// OperatorCommandMsg is the WebSocket wire shape of an operator motion
// intent. Axes are normalized to [-1, 1], speed to [0, 1]; out-of-range
// values are clamped by the core.
type OperatorCommandMsg struct {
	Forward float64 `json:"forward"`
	Turn    float64 `json:"turn"`
	Speed   float64 `json:"speed"`
}

// OverrideRequest toggles the manual safe-mode override.
type OverrideRequest struct {
	Enabled bool `json:"enabled"`
}

// ThresholdRequest updates the hazard distance threshold.
type ThresholdRequest struct {
	ThresholdM float64 `json:"threshold_m"`
}

// RoverControl is the inbound boundary the API needs from the controller
// core. *rover.Controller satisfies it; tests substitute fakes.
type RoverControl interface {
	Snapshot() rover.Snapshot
	OnOperatorCommand(forward, turn, speed float64)
	OnOverrideToggle(enabled bool)
	OnThresholdChange(meters float64) error
	EmergencyStop()
}
