package dispatch

import (
	"sync"
	"time"

	customlog "github.com/open-rover/controller/pkg/log"
)

// MessagePublisher defines the interface for the transport a queue drains
// into.
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// Message is one outbound payload bound for a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// QueueMetrics tracks counters for a dispatch queue.
type QueueMetrics struct {
	PublishedCount    int64
	ErrorCount        int64
	DroppedCount      int64
	LastPublishedTime int64
	TopicCounts       map[string]int64
}

// Queue decouples the controller loop from transport latency. Enqueue never
// blocks: when the buffer is full the message is dropped with a warning,
// since stale motion commands are worse than missing ones. A single worker
// drains the buffer so publish order is preserved.
type Queue struct {
	logger    customlog.Logger
	publisher MessagePublisher
	messages  chan Message
	running   bool
	wg        sync.WaitGroup
	mu        sync.Mutex

	metricsMu sync.Mutex
	metrics   QueueMetrics
}

// NewQueue creates a dispatch queue draining into the given publisher.
func NewQueue(publisher MessagePublisher, bufferSize int, logger customlog.Logger) *Queue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Queue{
		logger:    logger,
		publisher: publisher,
		messages:  make(chan Message, bufferSize),
		metrics:   QueueMetrics{TopicCounts: make(map[string]int64)},
	}
}

// Enqueue adds a message for publishing. Returns false when the queue is not
// running or the buffer is full.
func (q *Queue) Enqueue(topic string, payload []byte) bool {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()

	if !running {
		q.logger.Warnf("Dispatch queue not running, discarding message for topic '%s'", topic)
		return false
	}

	select {
	case q.messages <- Message{Topic: topic, Payload: payload}:
		return true
	default:
		q.metricsMu.Lock()
		q.metrics.DroppedCount++
		q.metricsMu.Unlock()
		q.logger.Warnf("Dispatch queue full, discarding message for topic '%s'", topic)
		return false
	}
}

// Start launches the drain worker.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	q.logger.Infof("Starting dispatch queue (buffer: %d)", cap(q.messages))
	q.wg.Add(1)
	go q.worker()
}

// Stop drains remaining messages and stops the worker.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.messages)
	q.wg.Wait()
	q.logMetrics()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for msg := range q.messages {
		err := q.publisher.PublishMessage(msg.Topic, msg.Payload)

		q.metricsMu.Lock()
		if err != nil {
			q.metrics.ErrorCount++
		} else {
			q.metrics.PublishedCount++
			q.metrics.LastPublishedTime = time.Now().UnixNano()
			q.metrics.TopicCounts[msg.Topic]++
		}
		q.metricsMu.Unlock()

		if err != nil {
			q.logger.Errorf("Failed to publish message for topic '%s': %v", msg.Topic, err)
		}
	}
}

// GetMetrics returns a copy of the current metrics.
func (q *Queue) GetMetrics() QueueMetrics {
	q.metricsMu.Lock()
	defer q.metricsMu.Unlock()

	topics := make(map[string]int64, len(q.metrics.TopicCounts))
	for k, v := range q.metrics.TopicCounts {
		topics[k] = v
	}
	return QueueMetrics{
		PublishedCount:    q.metrics.PublishedCount,
		ErrorCount:        q.metrics.ErrorCount,
		DroppedCount:      q.metrics.DroppedCount,
		LastPublishedTime: q.metrics.LastPublishedTime,
		TopicCounts:       topics,
	}
}

func (q *Queue) logMetrics() {
	m := q.GetMetrics()
	q.logger.Infof("Dispatch queue metrics: published=%d, errors=%d, dropped=%d",
		m.PublishedCount, m.ErrorCount, m.DroppedCount)
}
