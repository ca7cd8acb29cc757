package api

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/open-rover/controller/domain/hazard"
	"github.com/open-rover/controller/domain/rover"
	"github.com/open-rover/controller/domain/teleop"
	customlog "github.com/open-rover/controller/pkg/log"
)

// Ensure StatusHub satisfies the controller's outbound boundary.
var _ rover.Publisher = (*StatusHub)(nil)

// StatusFrame is one outbound frame to a status WebSocket client.
// Zero values are meaningful on the wire (a disarmed safe mode, a stopped
// axis), so only the free-text alert is omitted when absent.
type StatusFrame struct {
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	SafeModeEnabled bool    `json:"safe_mode_enabled"`
	Alert           string  `json:"alert,omitempty"`
	Forward         float64 `json:"forward"`
	Turn            float64 `json:"turn"`
	Speed           float64 `json:"speed"`
	Timestamp       int64   `json:"timestamp"`
}

// StatusHub broadcasts controller state changes to connected UI clients.
// It implements rover.Publisher so the controller core stays unaware of
// WebSockets: status and alert frames fan out to every client, commands are
// echoed so a UI can render the current motion vector.
type StatusHub struct {
	logger customlog.Logger
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

// NewStatusHub creates an empty hub.
func NewStatusHub(logger customlog.Logger) *StatusHub {
	return &StatusHub{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// PublishCommand echoes the gated motion command to UI clients.
func (h *StatusHub) PublishCommand(cmd teleop.Command) error {
	h.broadcast(StatusFrame{
		Type:      "command",
		Forward:   cmd.Forward,
		Turn:      cmd.Turn,
		Speed:     cmd.Speed,
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// PublishAlert broadcasts an alert frame.
func (h *StatusHub) PublishAlert(text string) error {
	h.broadcast(StatusFrame{
		Type:      "alert",
		Alert:     text,
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// NotifyStatus broadcasts a hazard status frame.
func (h *StatusHub) NotifyStatus(status hazard.Status, safeModeEnabled bool) error {
	h.broadcast(StatusFrame{
		Type:            "status",
		Status:          status.String(),
		SafeModeEnabled: safeModeEnabled,
		Timestamp:       time.Now().UnixMilli(),
	})
	return nil
}

func (h *StatusHub) broadcast(frame StatusFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debugf("Dropping status client %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// StatusWebSocketHandler registers a UI client with the hub and blocks until
// the client disconnects. Reads are only used to detect the close.
func (h *StatusHub) StatusWebSocketHandler(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	clients := len(h.conns)
	h.mu.Unlock()
	h.logger.Infof("Status WebSocket connected: %s (%d clients)", conn.RemoteAddr(), clients)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.logger.Infof("Status WebSocket disconnected: %s", conn.RemoteAddr())
}
