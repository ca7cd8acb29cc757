package rover

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/open-rover/controller/domain/alert"
	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/safety"
	"github.com/open-rover/controller/domain/teleop"
	customlog "github.com/open-rover/controller/pkg/log"
)

// Defaults for the command production cadence.
const (
	DefaultCommandRateHz = 20
	DefaultDeadzone      = 0.01
	DefaultMailboxSize   = 256
)

// Options configures a Controller.
type Options struct {
	// HazardThreshold is the initial hazard distance threshold in meters.
	HazardThreshold float64
	// SafeSpeedCap is the speed limit applied while safe mode is active.
	SafeSpeedCap float64
	// CommandRateHz is the rate at which gated commands are produced.
	CommandRateHz int
	// Deadzone is the minimum per-axis change before a new command is
	// considered distinct from the last published one.
	Deadzone float64
	// MailboxSize bounds the inbound event queue.
	MailboxSize int
}

// Snapshot is a read-only copy of the controller state for UIs and APIs.
type Snapshot struct {
	Distance        float64       `json:"distance_m"`
	Threshold       float64       `json:"threshold_m"`
	Status          hazard.Status `json:"-"`
	StatusText      string        `json:"status"`
	SafeModeEnabled bool          `json:"safe_mode_enabled"`
	Override        bool          `json:"override"`
}

// Inbound events. All state-affecting inputs are funneled through the
// mailbox so the monitor, gate and emitter only ever run on the loop
// goroutine, in arrival order.
type event interface{}

type sensorReading struct{ distance float64 }
type operatorInput struct{ cmd teleop.Command }
type overrideToggle struct{ enabled bool }
type thresholdChange struct{ meters float64 }
type emergencyStop struct{}

// Controller is the single serialization point of the safety state machine.
// It owns the HazardMonitor and SafetyGate, merges the asynchronous sensor
// stream with operator input, and produces gated motion commands plus alert
// and status notifications through the Publisher boundary.
type Controller struct {
	logger    customlog.Logger
	monitor   *hazard.Monitor
	gate      *safety.Gate
	alerts    *alert.Emitter
	publisher Publisher

	mailbox      chan event
	done         chan struct{}
	loopFinished chan struct{}
	tickInterval time.Duration
	deadzone     float64

	// Loop-owned state, never touched outside the run goroutine.
	lastInput     teleop.Command
	lastPublished teleop.Command
	hasPublished  bool
	forcePublish  bool

	mu      sync.Mutex
	running bool

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewController creates a controller. The publisher must be non-nil; it is
// invoked from the controller's loop goroutine only.
func NewController(opts Options, publisher Publisher, logger customlog.Logger) *Controller {
	if opts.CommandRateHz <= 0 {
		opts.CommandRateHz = DefaultCommandRateHz
	}
	if opts.Deadzone <= 0 {
		opts.Deadzone = DefaultDeadzone
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultMailboxSize
	}

	c := &Controller{
		logger:       logger,
		monitor:      hazard.NewMonitor(opts.HazardThreshold),
		gate:         safety.NewGate(opts.SafeSpeedCap),
		alerts:       alert.NewEmitter(),
		publisher:    publisher,
		mailbox:      make(chan event, opts.MailboxSize),
		done:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		tickInterval: time.Second / time.Duration(opts.CommandRateHz),
		deadzone:     opts.Deadzone,
	}
	c.updateSnapshot()
	return c
}

// Start launches the controller loop. Idempotent.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true

	c.logger.Infof("Rover controller started (threshold: %.2fm, command rate: %v, speed cap: %.0f%%)",
		c.monitor.Threshold(), c.tickInterval, c.gate.SpeedCap()*100)
	go c.run()
}

// Stop halts the controller loop and waits for it to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.done)
	<-c.loopFinished
	c.logger.Infof("Rover controller stopped")
}

// OnDistanceReading ingests a hazard distance reading in meters. Invalid
// readings (negative, NaN, infinite) are rejected before they reach the
// state machine; the caller gets a soft error and prior state is retained.
func (c *Controller) OnDistanceReading(meters float64) error {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0 {
		c.logger.Warnf("Rejected invalid distance reading: %v", meters)
		return fmt.Errorf("%w: %v", hazard.ErrInvalidReading, meters)
	}
	c.enqueue(sensorReading{distance: meters})
	return nil
}

// OnOperatorCommand records the latest operator motion intent. Out-of-range
// axes are clamped, never rejected.
func (c *Controller) OnOperatorCommand(forward, turn, speed float64) {
	cmd := teleop.Command{Forward: forward, Turn: turn, Speed: speed}.Clamped()
	c.enqueue(operatorInput{cmd: cmd})
}

// OnOverrideToggle records the manual safe-mode override flag.
func (c *Controller) OnOverrideToggle(enabled bool) {
	c.enqueue(overrideToggle{enabled: enabled})
}

// OnThresholdChange replaces the hazard threshold. The change takes effect
// on the next sensor tick; the stored status is not reconciled immediately.
func (c *Controller) OnThresholdChange(meters float64) error {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters <= 0 {
		c.logger.Warnf("Rejected invalid hazard threshold: %v", meters)
		return fmt.Errorf("%w: %v", hazard.ErrInvalidThreshold, meters)
	}
	c.enqueue(thresholdChange{meters: meters})
	return nil
}

// EmergencyStop zeroes the operator input and publishes an immediate stop
// command.
func (c *Controller) EmergencyStop() {
	c.enqueue(emergencyStop{})
}

// Snapshot returns a copy of the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

func (c *Controller) enqueue(ev event) {
	select {
	case c.mailbox <- ev:
	default:
		// The mailbox is sized for sustained sensor plus operator cadence;
		// overflow means a collaborator is flooding us.
		c.logger.Warnf("Controller mailbox full, dropping %T event", ev)
	}
}

func (c *Controller) run() {
	defer close(c.loopFinished)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.mailbox:
			c.handle(ev)
		case <-ticker.C:
			c.publishTick()
		}
	}
}

// handle applies one inbound event. A transition must be fully applied
// (monitor, gate, alert, status) before the next event or tick is processed,
// which the single loop goroutine guarantees.
func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case sensorReading:
		c.handleReading(e.distance)
	case operatorInput:
		c.lastInput = e.cmd
	case overrideToggle:
		c.handleOverride(e.enabled)
	case thresholdChange:
		if err := c.monitor.SetThreshold(e.meters); err != nil {
			c.logger.Warnf("Threshold change rejected: %v", err)
		} else {
			c.logger.Infof("Hazard threshold updated to: %.2fm", e.meters)
		}
	case emergencyStop:
		c.lastInput = teleop.Stop()
		c.logger.Infof("EMERGENCY STOP issued")
		c.publishCommand(teleop.Stop())
	}
	c.updateSnapshot()
}

func (c *Controller) handleReading(distance float64) {
	status, tr, err := c.monitor.Update(distance)
	if err != nil {
		c.logger.Warnf("Distance reading rejected: %v", err)
		return
	}
	if tr == nil {
		return
	}

	c.gate.OnTransition(*tr)

	switch tr.Kind {
	case hazard.EnteredHazard:
		c.logger.Errorf("EMERGENCY TRIGGERED: Distance %.2fm <= %.2fm - Safe mode enabled",
			tr.Distance, tr.Threshold)
		// Halt the rover right away; the regular tick resumes gated motion.
		c.publishCommand(teleop.Stop())
	case hazard.ClearedHazard:
		c.logger.Infof("EMERGENCY CLEARED: Distance %.2fm > %.2fm", tr.Distance, tr.Threshold)
	}

	if err := c.publisher.PublishAlert(c.alerts.Message(*tr)); err != nil {
		c.logger.Errorf("Failed to publish alert: %v", err)
	}
	if err := c.publisher.NotifyStatus(status, c.gate.SafeModeEnabled()); err != nil {
		c.logger.Errorf("Failed to publish status: %v", err)
	}
	c.forcePublish = true
}

func (c *Controller) handleOverride(enabled bool) {
	tr := c.gate.SetOverride(enabled, c.monitor.Status())
	if tr == nil {
		return
	}

	if tr.Kind == hazard.OverrideEnabled {
		c.logger.Warnf("SAFE MODE DISABLED - Manual override activated!")
	} else {
		c.logger.Infof("Safe mode override disabled - Safety restrictions active")
	}

	if err := c.publisher.PublishAlert(c.alerts.Message(*tr)); err != nil {
		c.logger.Errorf("Failed to publish alert: %v", err)
	}
	if err := c.publisher.NotifyStatus(c.monitor.Status(), c.gate.SafeModeEnabled()); err != nil {
		c.logger.Errorf("Failed to publish status: %v", err)
	}
	c.forcePublish = true
}

// publishTick gates the latest operator input and publishes the result when
// it differs from the last published command beyond the deadzone, or when a
// transition forced a refresh.
func (c *Controller) publishTick() {
	out, restricted := c.gate.Apply(c.lastInput)

	if !c.forcePublish && c.hasPublished && out.Equals(c.lastPublished, c.deadzone) {
		return
	}

	// Warn only when a positive forward axis was zeroed, not for a bare
	// speed cap.
	if restricted && c.lastInput.Forward > 0 {
		c.logger.Warnf("Forward movement blocked in safe mode! Use backward or turn to escape.")
	}

	c.publishCommand(out)
}

func (c *Controller) publishCommand(cmd teleop.Command) {
	mode := "NORMAL"
	if c.gate.SafeModeEnabled() {
		mode = "SAFE MODE"
	}
	c.logger.Debugf("WHEEL [%s]: forward: %.2f | turn: %.2f | speed: %.2f",
		mode, cmd.Forward, cmd.Turn, cmd.Speed)

	if err := c.publisher.PublishCommand(cmd); err != nil {
		// Fire-and-forget: the next tick re-evaluates and republishes.
		c.logger.Errorf("Failed to publish command: %v", err)
		return
	}
	c.lastPublished = cmd
	c.hasPublished = true
	c.forcePublish = false
}

func (c *Controller) updateSnapshot() {
	c.snapMu.Lock()
	c.snap = Snapshot{
		Distance:        c.monitor.Distance(),
		Threshold:       c.monitor.Threshold(),
		Status:          c.monitor.Status(),
		StatusText:      c.monitor.Status().String(),
		SafeModeEnabled: c.gate.SafeModeEnabled(),
		Override:        c.gate.Override(),
	}
	c.snapMu.Unlock()
}
