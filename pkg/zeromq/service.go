package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-rover/controller/pkg/config"
	customlog "github.com/open-rover/controller/pkg/log"
)

// Common errors
var (
	ErrServiceClosed = errors.New("zeromq service is closed")
)

// DistanceReading is the wire format of a hazard sensor sample.
type DistanceReading struct {
	Distance  float64 `json:"distance"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// ReadingHandler consumes a validated-on-arrival distance sample. It is the
// bridge into the controller core; errors are soft and only logged.
type ReadingHandler func(meters float64) error

// MessageSender handles publishing topic-framed messages on a PUB socket.
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, cfg *config.ZeroMQConfig, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.Bind(cfg.PublishBindAddress); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", cfg.PublishBindAddress, err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	logger.Infof("MessageSender initialized on %s", cfg.PublishBindAddress)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends a message with the given topic. Two frames go out in
// sequence: the topic, then the payload.
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources.
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// SensorReceiver subscribes to the hazard distance topic and feeds readings
// into the controller through a ReadingHandler.
type SensorReceiver struct {
	socket  *zmq4.Socket
	poller  *zmq4.Poller
	topic   string
	handler ReadingHandler
	logger  customlog.Logger
	running bool
	wg      *sync.WaitGroup
}

func newSensorReceiver(ctx *zmq4.Context, cfg *config.ZeroMQConfig, handler ReadingHandler, logger customlog.Logger, wg *sync.WaitGroup) (*SensorReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	if err := socket.Connect(cfg.SensorConnectAddress); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.SensorConnectAddress, err)
	}
	if err := socket.SetSubscribe(cfg.SensorTopic); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", cfg.SensorTopic, err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("SensorReceiver subscribed to '%s' at %s", cfg.SensorTopic, cfg.SensorConnectAddress)

	return &SensorReceiver{
		socket:  socket,
		poller:  poller,
		topic:   cfg.SensorTopic,
		handler: handler,
		logger:  logger,
		wg:      wg,
	}, nil
}

// Start begins the sensor receiving loop.
func (r *SensorReceiver) Start() {
	if r.running {
		return
	}

	r.running = true
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		r.logger.Infof("SensorReceiver started")

		for r.running {
			// Poll with timeout to allow clean shutdown.
			sockets, err := r.poller.Poll(500 * time.Millisecond)
			if err != nil {
				if r.running {
					r.logger.Errorf("Error polling sensor socket: %v", err)
				}
				continue
			}
			if len(sockets) == 0 {
				continue
			}

			// Topic frame first, payload frame second.
			parts, err := r.socket.RecvMessageBytes(0)
			if err != nil {
				if r.running {
					r.logger.Errorf("Error receiving sensor message: %v", err)
				}
				continue
			}
			if len(parts) < 2 {
				r.logger.Warnf("Malformed sensor message (%d frames), expected topic + payload", len(parts))
				continue
			}

			var reading DistanceReading
			if err := json.Unmarshal(parts[1], &reading); err != nil {
				r.logger.Warnf("Failed to unmarshal sensor reading: %v. Payload: %s", err, string(parts[1]))
				continue
			}

			if err := r.handler(reading.Distance); err != nil {
				// Invalid readings are rejected by the core; nothing to retry.
				r.logger.Warnf("Sensor reading rejected: %v", err)
			}
		}
	}()
}

// Stop halts the receiving loop and closes the socket to interrupt any
// blocking calls.
func (r *SensorReceiver) Stop() {
	if !r.running {
		return
	}
	r.running = false
	if r.socket != nil {
		r.socket.Close()
		r.socket = nil
	}
}

// ZeroMQService coordinates ZeroMQ communications for the controller: one
// PUB socket for commands, alerts and status, one SUB socket for the hazard
// sensor stream.
type ZeroMQService struct {
	ctx      *zmq4.Context
	sender   *MessageSender
	receiver *SensorReceiver
	logger   customlog.Logger
	running  bool
	wg       sync.WaitGroup
}

// NewZeroMQService creates a new ZeroMQ service. The handler receives every
// hazard distance sample as it arrives.
func NewZeroMQService(cfg *config.ZeroMQConfig, handler ReadingHandler, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{
		ctx:    ctx,
		logger: logger,
	}

	sender, err := newMessageSender(ctx, cfg, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}
	s.sender = sender

	receiver, err := newSensorReceiver(ctx, cfg, handler, logger, &s.wg)
	if err != nil {
		sender.Close()
		ctx.Term()
		return nil, err
	}
	s.receiver = receiver

	return s, nil
}

// Start begins the ZeroMQ service.
func (s *ZeroMQService) Start() error {
	if s.running {
		return nil
	}
	s.running = true
	s.logger.Infof("Starting ZeroMQ service")
	s.receiver.Start()
	return nil
}

// Stop halts the ZeroMQ service.
func (s *ZeroMQService) Stop() {
	if !s.running {
		return
	}

	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false

	s.receiver.Stop()
	s.sender.Close()

	s.wg.Wait()

	if s.ctx != nil {
		s.ctx.Term()
		s.ctx = nil
	}

	s.logger.Infof("ZeroMQ service stopped")
}

// PublishMessage sends a message with the given topic.
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	if !s.running {
		return ErrServiceClosed
	}
	return s.sender.PublishMessage(topic, message)
}
