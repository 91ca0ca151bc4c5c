// Package signal is the websocket adapter: it authenticates the
// handshake, owns the connection pumps and translates wire events into
// coordinator calls.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"parley/internal/app"
	"parley/internal/auth"
	"parley/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Coord   *app.Coordinator
	Auth    *auth.Service
	Limiter *RateLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(coord *app.Coordinator, authSvc *auth.Service, limiter *RateLimiter, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Coord:      coord,
		Auth:       authSvc,
		Limiter:    limiter,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS authenticates the one-time handshake credential and, on
// success, upgrades the connection and starts the pumps. A bad credential
// rejects the connection before the upgrade.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token := c.Query("token")
	id, err := ctl.Auth.Identify(c.Request.Context(), token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("handshake rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	sid := core.SessionID(uuid.NewString())
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Connect(ctx, sid, id, conn, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", id.Username).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

func (ctl *Controller) sendEvent(c *wsConn, v any) {
	if frame := app.EncodeEvent(v); frame != nil {
		_ = c.TrySend(frame)
	}
}

func (ctl *Controller) sendError(c *wsConn, message string) {
	ctl.sendEvent(c, app.NewErrorEvent(message))
}
