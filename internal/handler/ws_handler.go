package handler

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/kuisduel/kuisduel-backend/internal/middleware"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
	ws "github.com/kuisduel/kuisduel-backend/internal/websocket"
	"github.com/rs/zerolog"
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

// WSHandler handles the real-time duel stream.
type WSHandler struct {
	duelService *service.DuelService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(duelService *service.DuelService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		duelService: duelService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes to one WebSocket connection. Engine event
// handlers and the read loop both write responses; gorilla allows only
// one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) sendError(code response.ErrCode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteError(w.conn, string(code), response.GetMessage(code))
}

// DuelStream godoc
// WS /ws/v1/duels/:duel_id/stream?token=...
// Upgrades to WebSocket for real-time duel play: readiness, answers,
// forfeit, and server-pushed session events. On connect the client gets
// any backlog followed by a full state snapshot, so reconnecting mid-
// duel resynchronizes without replaying history.
func (h *WSHandler) DuelStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	duelID, err := uuid.Parse(c.Param("duel_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.duelService.Get(duelID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()

	conn := &wsConn{conn: rawConn}
	playerID := claims.PlayerID

	wsLog := h.log.With().
		Int("player_id", playerID).
		Str("duel_id", duelID.String()).
		Logger()

	snapshot, err := session.Attach(playerID, func(ev duel.Event) {
		if err := conn.send(ws.DuelEventResponse{
			Event:   ws.EventDuel,
			Type:    string(ev.Type),
			Payload: ev.Payload,
		}); err != nil {
			wsLog.Debug().Err(err).Msg("event write failed")
		}
	})
	if err != nil {
		conn.sendError(response.ErrNotAParticipant)
		return
	}
	defer session.Detach(playerID)

	// Backlog (if any) was flushed by Attach; the snapshot goes out last
	// so the client ends up on the freshest state.
	if err := conn.send(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snapshot}); err != nil {
		wsLog.Debug().Err(err).Msg("snapshot write failed")
		return
	}

	_ = session.SetConnected(playerID, true)
	defer func() { _ = session.SetConnected(playerID, false) }()

	wsLog.Info().Msg("Player connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(rawConn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionReady:
			if err := session.SetReady(playerID); err != nil {
				conn.sendError(duelErrCode(err))
			}
		case ws.ActionAnswer:
			h.handleAnswer(conn, session, playerID, &msg)
		case ws.ActionStatus:
			if err := session.SetAway(playerID, msg.Status == "away"); err != nil {
				conn.sendError(duelErrCode(err))
			}
		case ws.ActionForfeit:
			if err := session.Forfeit(playerID); err != nil {
				conn.sendError(duelErrCode(err))
			}
		case ws.ActionPing:
			_ = conn.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.sendError(response.ErrInvalidPayload)
		}
	}
}

// handleAnswer validates and forwards one answer submission.
func (h *WSHandler) handleAnswer(conn *wsConn, session *duel.Session, playerID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.sendError(response.ErrInvalidID)
		return
	}

	if err := session.SubmitAnswer(playerID, questionID, msg.OptionID); err != nil {
		conn.sendError(duelErrCode(err))
	}
}

// duelErrCode maps engine sentinels to API error codes for the stream.
func duelErrCode(err error) response.ErrCode {
	switch err {
	case duel.ErrNotAParticipant:
		return response.ErrNotAParticipant
	case duel.ErrWrongState:
		return response.ErrDuelWrongState
	case duel.ErrStaleQuestion:
		return response.ErrStaleQuestion
	case duel.ErrDuplicateAnswer:
		return response.ErrDuplicateAnswer
	case duel.ErrWindowExpired:
		return response.ErrWindowExpired
	case duel.ErrSuspiciouslyFast:
		return response.ErrSuspiciouslyFast
	default:
		return response.ErrInternal
	}
}
