package hazard

import (
	"errors"
	"fmt"
	"math"
)

// Default sensor values. A rover with no obstacle in range reports the
// sentinel distance, well above any usable threshold.
const (
	DefaultThreshold = 5.0   // meters
	DefaultDistance  = 999.0 // meters, "no hazard" sentinel
)

// ErrInvalidReading is returned when a distance reading is negative, NaN or
// infinite. The monitor keeps its prior state.
var ErrInvalidReading = errors.New("invalid distance reading")

// ErrInvalidThreshold is returned when a threshold is not a positive finite
// number. The monitor keeps its prior threshold.
var ErrInvalidThreshold = errors.New("invalid hazard threshold")

// Status is the derived proximity state of the rover.
type Status int

const (
	StatusSafe Status = iota
	StatusHazard
)

func (s Status) String() string {
	if s == StatusHazard {
		return "HAZARD"
	}
	return "SAFE"
}

// Monitor owns the current distance reading and hazard threshold and derives
// the SAFE/HAZARD status from them. Status is never stored independently: it
// is always recomputed as distance <= threshold (boundary inclusive).
//
// Monitor is not safe for concurrent use. All calls must come from the single
// controller loop that owns it.
type Monitor struct {
	distance  float64
	threshold float64
	status    Status
}

// NewMonitor creates a monitor with the given threshold and the no-hazard
// sentinel distance. A non-positive threshold falls back to the default.
func NewMonitor(threshold float64) *Monitor {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		threshold = DefaultThreshold
	}
	m := &Monitor{
		distance:  DefaultDistance,
		threshold: threshold,
	}
	m.status = m.derive()
	return m
}

// Update ingests a new distance reading, recomputes the status, and reports
// any SAFE/HAZARD transition that resulted. Invalid readings (negative, NaN,
// infinite) are rejected: the prior distance and status are retained and no
// transition is emitted.
func (m *Monitor) Update(distance float64) (Status, *Transition, error) {
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return m.status, nil, fmt.Errorf("%w: %v", ErrInvalidReading, distance)
	}

	m.distance = distance
	previous := m.status
	m.status = m.derive()

	if m.status == previous {
		return m.status, nil, nil
	}

	kind := ClearedHazard
	if m.status == StatusHazard {
		kind = EnteredHazard
	}
	return m.status, &Transition{
		Kind:      kind,
		Distance:  distance,
		Threshold: m.threshold,
	}, nil
}

// SetThreshold replaces the hazard threshold. The stored status is NOT
// recomputed against the last distance: a threshold change takes effect on
// the next Update call, so the status lags by at most one sensor tick.
func (m *Monitor) SetThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	m.threshold = threshold
	return nil
}

// Status returns the status derived at the last Update.
func (m *Monitor) Status() Status { return m.status }

// Distance returns the last accepted distance reading in meters.
func (m *Monitor) Distance() float64 { return m.distance }

// Threshold returns the active hazard threshold in meters.
func (m *Monitor) Threshold() float64 { return m.threshold }

func (m *Monitor) derive() Status {
	if m.distance <= m.threshold {
		return StatusHazard
	}
	return StatusSafe
}
