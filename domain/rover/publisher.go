package rover

import (
	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/teleop"
	customlog "github.com/open-rover/controller/pkg/log"
)

// Publisher is the outbound boundary of the controller core. Implementations
// live outside the serialization boundary (ZeroMQ transport, WebSocket status
// hub) and must not call back into the controller. Publishing is
// fire-and-forget: the core neither waits for acknowledgment nor retries on
// failure, since state is re-evaluated on every command tick.
type Publisher interface {
	PublishCommand(cmd teleop.Command) error
	PublishAlert(text string) error
	NotifyStatus(status hazard.Status, safeModeEnabled bool) error
}

// Fanout distributes every outbound call to a set of publishers. Errors from
// individual sinks are logged and do not stop delivery to the others.
type Fanout struct {
	logger customlog.Logger
	sinks  []Publisher
}

// NewFanout creates a fan-out publisher over the given sinks.
func NewFanout(logger customlog.Logger, sinks ...Publisher) *Fanout {
	return &Fanout{logger: logger, sinks: sinks}
}

// PublishCommand forwards a motion command to every sink.
func (f *Fanout) PublishCommand(cmd teleop.Command) error {
	for _, s := range f.sinks {
		if err := s.PublishCommand(cmd); err != nil {
			f.logger.Errorf("Publisher failed to deliver command: %v", err)
		}
	}
	return nil
}

// PublishAlert forwards an alert to every sink.
func (f *Fanout) PublishAlert(text string) error {
	for _, s := range f.sinks {
		if err := s.PublishAlert(text); err != nil {
			f.logger.Errorf("Publisher failed to deliver alert: %v", err)
		}
	}
	return nil
}

// NotifyStatus forwards a status change to every sink.
func (f *Fanout) NotifyStatus(status hazard.Status, safeModeEnabled bool) error {
	for _, s := range f.sinks {
		if err := s.NotifyStatus(status, safeModeEnabled); err != nil {
			f.logger.Errorf("Publisher failed to deliver status: %v", err)
		}
	}
	return nil
}
