package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/middleware"
	"github.com/cloudmaster/examprep/internal/model"
	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/timer"
	ws "github.com/cloudmaster/examprep/internal/websocket"
)

// expirySubmitTimeout bounds the submit triggered by the countdown. It runs
// detached from the connection so a client dropping at the deadline still
// gets its session graded.
const expirySubmitTimeout = 10 * time.Second

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

// WSHandler streams a live session: actions in, session views and the
// countdown-driven auto-submit out.
type WSHandler struct {
	sessionService *service.ExamSessionService
	tick           time.Duration
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. tick is how often the countdown
// re-checks the deadline.
func NewWSHandler(sessionService *service.ExamSessionService, tick time.Duration, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		tick:           tick,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for answering, bookmarking and navigating with a
// server-side countdown that submits the session when time runs out.
func (h *WSHandler) SessionStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	owner := middleware.GetOwner(c)

	// Resolve before upgrading so a bad id still gets a JSON error.
	session, err := h.sessionService.GetSession(c.Request.Context(), owner, id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", id.String()).Logger()
	wsLog.Info().Msg("Client connected")

	_ = conn.WriteTyped(ws.SessionEvent{Event: ws.EventState, Session: h.present(session)})

	var countdown *timer.Timer
	if session.IsTimed() && !session.IsSubmitted() {
		countdown = timer.New(session.StartedAt, session.TimeLimitSec,
			func() { h.expire(conn, wsLog, id) },
			timer.WithClock(h.sessionService.Now),
			timer.WithTick(h.tick),
		)
		countdown.Start()
		defer countdown.Stop()
	}

	ctx := c.Request.Context()
	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			pong := ws.PongResponse{Event: ws.EventPong}
			if countdown != nil {
				left := int(countdown.Remaining().Seconds())
				pong.RemainingSec = &left
			}
			_ = conn.WriteTyped(pong)
		case ws.ActionAnswer:
			h.apply(conn, msg.Action, func() (*model.ExamSession, error) {
				return h.sessionService.SelectAnswer(ctx, owner, id, msg.QuestionID, msg.OptionID)
			})
		case ws.ActionBookmark:
			h.apply(conn, msg.Action, func() (*model.ExamSession, error) {
				return h.sessionService.ToggleBookmark(ctx, owner, id, msg.QuestionID)
			})
		case ws.ActionNavigate:
			if msg.Index == nil {
				writeWSError(conn, response.ErrInvalidPayload)
				continue
			}
			h.apply(conn, msg.Action, func() (*model.ExamSession, error) {
				return h.sessionService.GoToQuestion(ctx, owner, id, *msg.Index)
			})
		case ws.ActionSubmit:
			submitted, err := h.sessionService.Submit(ctx, owner, id)
			if err != nil {
				h.writeServiceError(conn, wsLog, err)
				continue
			}
			if countdown != nil {
				countdown.Stop()
			}
			wsLog.Info().Int("score", derefInt(submitted.Score)).Msg("Session submitted")
			_ = conn.WriteTyped(ws.SessionEvent{Event: ws.EventGraded, Session: h.present(submitted)})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			writeWSError(conn, response.ErrInvalidPayload)
		}
	}
}

// apply runs a session mutation and reports the outcome to the client.
func (h *WSHandler) apply(conn *ws.Conn, action ws.Action, fn func() (*model.ExamSession, error)) {
	session, err := fn()
	if err != nil {
		h.writeServiceError(conn, h.log, err)
		return
	}
	_ = conn.WriteTyped(ws.SessionEvent{Event: ws.EventSuccess, Action: action, Session: h.present(session)})
}

// expire submits the session when its countdown reaches zero.
func (h *WSHandler) expire(conn *ws.Conn, log zerolog.Logger, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), expirySubmitTimeout)
	defer cancel()

	session, err := h.sessionService.SubmitExpired(ctx, id)
	if err != nil {
		// The expiry worker retries sessions left open here.
		log.Error().Err(err).Msg("Auto-submit on expiry failed")
		h.writeServiceError(conn, log, err)
		return
	}

	log.Info().Int("score", derefInt(session.Score)).Msg("Session auto-submitted on expiry")
	_ = conn.WriteTyped(ws.SessionEvent{Event: ws.EventExpired, Session: h.present(session)})
}

func (h *WSHandler) writeServiceError(conn *ws.Conn, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Session action failed")
	}
	writeWSError(conn, code)
}

func (h *WSHandler) present(s *model.ExamSession) service.SessionView {
	return service.PresentSession(s, h.sessionService.Now())
}

func writeWSError(conn *ws.Conn, code response.ErrCode) {
	_ = conn.WriteError(string(code), response.GetMessage(code))
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
