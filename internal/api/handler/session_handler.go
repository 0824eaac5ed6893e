package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
	"github.com/beesense/hive-dashboard/internal/pkg/metrics"
)

const (
	eventsWriteWait = 10 * time.Second
	eventsPongWait  = 60 * time.Second
	eventsPingEvery = (eventsPongWait * 9) / 10
	eventsBuffer    = 16

	// reasonSnapshot labels the first frame of every events stream.
	reasonSnapshot = "snapshot"
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SessionHandler exposes the dashboard's session manager over HTTP.
type SessionHandler struct {
	mgr ports.SessionManager
	log zerolog.Logger
}

func NewSessionHandler(mgr ports.SessionManager, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{mgr: mgr, log: log}
}

// Login godoc
//
// @Summary      Sign in to the dashboard
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id, err := h.mgr.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.authFailed(err)
	}
	return c.JSON(http.StatusOK, h.response(id))
}

// Register godoc
//
// @Summary      Create an account and sign in
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "New account"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/session/register [post]
func (h *SessionHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id, err := h.mgr.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.authFailed(err)
	}
	return c.JSON(http.StatusCreated, h.response(id))
}

// Demo godoc
//
// @Summary      Enter demo mode
// @Description  Starts a read-only demo session that expires after the configured window.
// @Tags         session
// @Produce      json
// @Success      201  {object}  sessionResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/session/demo [post]
func (h *SessionHandler) Demo(c echo.Context) error {
	id, err := h.mgr.EnterDemoMode(c.Request().Context())
	if err != nil {
		return h.authFailed(err)
	}
	return c.JSON(http.StatusCreated, h.response(id))
}

// Logout godoc
//
// @Summary  Sign out
// @Tags     session
// @Success  204
// @Router   /api/session [delete]
func (h *SessionHandler) Logout(c echo.Context) error {
	h.mgr.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Current godoc
//
// @Summary      Current identity
// @Description  user is null while nobody is signed in.
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *SessionHandler) Current(c echo.Context) error {
	return c.JSON(http.StatusOK, h.response(h.mgr.Current()))
}

// Events godoc
//
// @Summary      Stream identity changes
// @Description  Websocket. The first frame is a snapshot, then one frame per login, logout, demo entry or expiry.
// @Tags         session
// @Success      101
// @Router       /api/session/events [get]
func (h *SessionHandler) Events(c echo.Context) error {
	conn, err := eventsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already answered the request.
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	out := make(chan sessionEventMessage, eventsBuffer)
	push := func(msg sessionEventMessage) {
		select {
		case out <- msg:
		default:
			h.log.Warn().Msg("session events client too slow, closing")
			cancel()
		}
	}

	// Events published before the snapshot is queued wait in pending so the
	// snapshot is always the first frame. Current is never called under gate:
	// the manager runs subscribers while holding its publish lock.
	var (
		gate    sync.Mutex
		ready   bool
		pending []sessionEventMessage
	)
	unsubscribe := h.mgr.Subscribe(func(ev domain.SessionEvent) {
		msg := sessionEventMessage{
			Reason:        string(ev.Reason),
			User:          ev.Identity,
			At:            ev.At,
			DemoExpiresAt: ev.DemoExpiresAt,
		}
		gate.Lock()
		defer gate.Unlock()
		if !ready {
			pending = append(pending, msg)
			return
		}
		push(msg)
	})
	defer unsubscribe()

	snap := h.response(h.mgr.Current())
	gate.Lock()
	push(sessionEventMessage{
		Reason:        reasonSnapshot,
		User:          snap.User,
		At:            time.Now().UTC(),
		DemoExpiresAt: snap.DemoExpiresAt,
	})
	for _, msg := range pending {
		push(msg)
	}
	pending = nil
	ready = true
	gate.Unlock()

	_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})

	// The client never sends anything useful; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// authFailed counts the failure and hands it to the error handler.
func (h *SessionHandler) authFailed(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		metrics.SessionAuthFailuresTotal.WithLabelValues(authErr.Op, string(authErr.Kind)).Inc()
		h.log.Info().Str("op", authErr.Op).Str("kind", string(authErr.Kind)).Msg("authentication failed")
	}
	return err
}

func (h *SessionHandler) response(id *domain.Identity) sessionResponse {
	resp := sessionResponse{User: id}
	if id != nil && id.IsDemo {
		if exp, ok := h.mgr.DemoExpiresAt(); ok {
			resp.DemoExpiresAt = &exp
		}
	}
	return resp
}
