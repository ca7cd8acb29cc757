package zeromq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/rover"
	"github.com/open-rover/controller/domain/teleop"
	"github.com/open-rover/controller/pkg/dispatch"
)

// Outbound topics.
const (
	TopicVelocity = "rover.control.velocity"
	TopicAlert    = "rover.alert.emergency"
	TopicStatus   = "rover.status.hazard"
)

// TwistMsg is the wire shape of a velocity command, matching
// geometry_msgs/Twist. Only linear.x and angular.z are used by a
// differential-drive rover.
type TwistMsg struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Vector3 defines a standard 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AlertMsg is the wire shape of an emergency alert.
type AlertMsg struct {
	Alert     string  `json:"alert"`
	Timestamp float64 `json:"timestamp"`
}

// StatusMsg is the wire shape of a hazard status notification.
type StatusMsg struct {
	Status          string  `json:"status"`
	SafeModeEnabled bool    `json:"safe_mode_enabled"`
	Timestamp       float64 `json:"timestamp"`
}

// Ensure RoverPublisher satisfies the controller's outbound boundary.
var _ rover.Publisher = (*RoverPublisher)(nil)

// RoverPublisher bridges the controller core to the ZeroMQ transport. Every
// outbound call is serialized to JSON and handed to the dispatch queue, so
// the controller loop never waits on the socket.
type RoverPublisher struct {
	queue *dispatch.Queue
}

// NewRoverPublisher creates a publisher draining into the given queue.
func NewRoverPublisher(queue *dispatch.Queue) *RoverPublisher {
	return &RoverPublisher{queue: queue}
}

// PublishCommand publishes a gated motion command as a Twist message. Axes
// are scaled by the speed scalar on the wire, matching what the drivetrain
// expects.
func (p *RoverPublisher) PublishCommand(cmd teleop.Command) error {
	msg := TwistMsg{
		Linear:  Vector3{X: cmd.Forward * cmd.Speed},
		Angular: Vector3{Z: cmd.Turn * cmd.Speed},
	}
	return p.enqueue(TopicVelocity, msg)
}

// PublishAlert publishes an emergency alert.
func (p *RoverPublisher) PublishAlert(text string) error {
	return p.enqueue(TopicAlert, AlertMsg{
		Alert:     text,
		Timestamp: float64(time.Now().Unix()),
	})
}

// NotifyStatus publishes a hazard status change.
func (p *RoverPublisher) NotifyStatus(status hazard.Status, safeModeEnabled bool) error {
	return p.enqueue(TopicStatus, StatusMsg{
		Status:          status.String(),
		SafeModeEnabled: safeModeEnabled,
		Timestamp:       float64(time.Now().Unix()),
	})
}

func (p *RoverPublisher) enqueue(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message for topic '%s': %w", topic, err)
	}
	if !p.queue.Enqueue(topic, data) {
		return fmt.Errorf("dispatch queue rejected message for topic '%s'", topic)
	}
	return nil
}
