package zeromq

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/teleop"
	"github.com/open-rover/controller/pkg/dispatch"
	customlog "github.com/open-rover/controller/pkg/log"
)

type capturingTransport struct {
	mu      sync.Mutex
	byTopic map[string][][]byte
}

func (c *capturingTransport) PublishMessage(topic string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byTopic == nil {
		c.byTopic = make(map[string][][]byte)
	}
	c.byTopic[topic] = append(c.byTopic[topic], data)
	return nil
}

func (c *capturingTransport) payloads(topic string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byTopic[topic]
}

func newPublisherForTest(t *testing.T) (*RoverPublisher, *capturingTransport, *dispatch.Queue) {
	t.Helper()
	logger, err := customlog.NewLogrusLogger("error", "")
	require.NoError(t, err)

	transport := &capturingTransport{}
	queue := dispatch.NewQueue(transport, 10, logger)
	queue.Start()
	return NewRoverPublisher(queue), transport, queue
}

func TestPublishCommandScalesAxesBySpeed(t *testing.T) {
	pub, transport, queue := newPublisherForTest(t)

	require.NoError(t, pub.PublishCommand(teleop.Command{Forward: 1.0, Turn: -0.5, Speed: 0.3}))
	queue.Stop()

	payloads := transport.payloads(TopicVelocity)
	require.Len(t, payloads, 1)

	var msg TwistMsg
	require.NoError(t, json.Unmarshal(payloads[0], &msg))
	assert.InDelta(t, 0.3, msg.Linear.X, 1e-9)
	assert.InDelta(t, -0.15, msg.Angular.Z, 1e-9)
	assert.Zero(t, msg.Linear.Y)
	assert.Zero(t, msg.Angular.X)
}

func TestPublishAlertCarriesText(t *testing.T) {
	pub, transport, queue := newPublisherForTest(t)

	require.NoError(t, pub.PublishAlert("EMERGENCY: Hazard distance breached!"))
	queue.Stop()

	payloads := transport.payloads(TopicAlert)
	require.Len(t, payloads, 1)

	var msg AlertMsg
	require.NoError(t, json.Unmarshal(payloads[0], &msg))
	assert.Equal(t, "EMERGENCY: Hazard distance breached!", msg.Alert)
	assert.NotZero(t, msg.Timestamp)
}

func TestNotifyStatusReportsSafeMode(t *testing.T) {
	pub, transport, queue := newPublisherForTest(t)

	require.NoError(t, pub.NotifyStatus(hazard.StatusHazard, true))
	require.NoError(t, pub.NotifyStatus(hazard.StatusSafe, false))
	queue.Stop()

	payloads := transport.payloads(TopicStatus)
	require.Len(t, payloads, 2)

	var first, second StatusMsg
	require.NoError(t, json.Unmarshal(payloads[0], &first))
	require.NoError(t, json.Unmarshal(payloads[1], &second))
	assert.Equal(t, "HAZARD", first.Status)
	assert.True(t, first.SafeModeEnabled)
	assert.Equal(t, "SAFE", second.Status)
	assert.False(t, second.SafeModeEnabled)
}

func TestPublishFailsWhenQueueStopped(t *testing.T) {
	pub, _, queue := newPublisherForTest(t)
	queue.Stop()

	err := pub.PublishCommand(teleop.Command{})
	assert.Error(t, err)
}
