package api

import (
	"encoding/json"
	"errors"
	"math"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	customlog "github.com/open-rover/controller/pkg/log"
)

// ControlWebSocketHandler handles incoming WebSocket messages carrying
// operator motion commands. Change detection with the configured deadzone
// happens here, at the input collaborator, so the core only sees commands
// worth processing.
func ControlWebSocketHandler(conn *websocket.Conn, ctrl RoverControl, deadzone float64, logger customlog.Logger) {
	session := uuid.New().String()[:8]
	logger.Infof("Control WebSocket connected: %s (session %s)", conn.RemoteAddr(), session)

	var (
		mt       int
		msg      []byte
		err      error
		last     OperatorCommandMsg
		haveLast bool
	)
	for {
		if mt, msg, err = conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("Control WS read error (session %s): %v", session, err)
			} else if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("Control WS connection closed (session %s): %v", session, err)
			} else {
				logger.Infof("Control WS connection closed normally (session %s)", session)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		var cmd OperatorCommandMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logger.Warnf("Failed to unmarshal operator command from WS: %v. Message: %s", err, string(msg))
			continue
		}

		if haveLast && withinDeadzone(cmd, last, deadzone) {
			continue
		}
		last = cmd
		haveLast = true

		logger.Debugf("Operator command via WS (session %s): forward=%.2f turn=%.2f speed=%.2f",
			session, cmd.Forward, cmd.Turn, cmd.Speed)
		ctrl.OnOperatorCommand(cmd.Forward, cmd.Turn, cmd.Speed)
	}
	logger.Infof("Control WebSocket disconnected: %s (session %s)", conn.RemoteAddr(), session)
}

func withinDeadzone(a, b OperatorCommandMsg, deadzone float64) bool {
	return math.Abs(a.Forward-b.Forward) <= deadzone &&
		math.Abs(a.Turn-b.Turn) <= deadzone &&
		math.Abs(a.Speed-b.Speed) <= deadzone
}
