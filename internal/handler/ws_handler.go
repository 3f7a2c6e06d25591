package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an exam session over a WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:attempt_id/stream
// Runs the action loop for one session; every action is answered with a snapshot.
func (h *WSHandler) SessionStream(c *gin.Context) {
	attemptID := c.Param("attempt_id")
	sess, err := h.sessionService.Get(attemptID)
	if err != nil {
		failWith(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("attempt_id", attemptID).Logger()
	wsLog.Info().Msg("Client connected")

	ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: sess.Snapshot()})

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if done := h.dispatch(conn, wsLog, sess, &msg); done {
			return
		}
	}
}

// dispatch runs one client action. It reports true once the session is over.
func (h *WSHandler) dispatch(conn *websocket.Conn, wsLog zerolog.Logger, sess *service.Session, msg *ws.RequestPayload) bool {
	var err error
	switch msg.Action {
	case ws.ActionPing:
		ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		return false
	case ws.ActionSnapshot:
	case ws.ActionNext:
		err = sess.GoNext()
	case ws.ActionPrevious:
		err = sess.GoPrevious()
	case ws.ActionJump:
		if msg.Index == nil {
			writeWSError(conn, response.ErrValidation, "index is required")
			return false
		}
		err = sess.JumpTo(*msg.Index)
	case ws.ActionFeedback:
		if msg.Enabled == nil {
			writeWSError(conn, response.ErrValidation, "enabled is required")
			return false
		}
		err = sess.ToggleInstantFeedback(*msg.Enabled)
	case ws.ActionSelect:
		if msg.QuestionID == "" || msg.ChoiceIndex == nil {
			writeWSError(conn, response.ErrValidation, "question_id and choice_index are required")
			return false
		}
		_, err = sess.SelectAnswer(msg.QuestionID, *msg.ChoiceIndex)
	case ws.ActionClear:
		if msg.QuestionID == "" {
			writeWSError(conn, response.ErrValidation, "question_id is required")
			return false
		}
		err = sess.ClearAnswer(msg.QuestionID)
	case ws.ActionFinish:
		return h.finish(conn, wsLog, sess)
	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		writeWSError(conn, response.ErrInvalidPayload, "unknown action: "+string(msg.Action))
		return false
	}

	if err != nil {
		_, code := classify(err)
		writeWSError(conn, code, err.Error())
		return false
	}
	ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Action: msg.Action, Snapshot: sess.Snapshot()})
	return false
}

func (h *WSHandler) finish(conn *websocket.Conn, wsLog zerolog.Logger, sess *service.Session) bool {
	result, err := h.sessionService.FinishSession(context.Background(), sess)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Finish failed")
		_, code := classify(err)
		writeWSError(conn, code, err.Error())
		return sess.State().Terminal()
	}

	wsLog.Info().Float64("score", result.Score).Msg("Session finished")
	ws.WriteTyped(conn, ws.FinishedResponse{Event: ws.EventFinished, Result: result})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"))
	return true
}

func writeWSError(conn *websocket.Conn, code response.ErrCode, detail string) {
	ws.WriteError(conn, string(code), detail)
}
