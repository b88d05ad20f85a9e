package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/camrelay/internal/app/orch"
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Orch       *orch.Orchestrator
	Limiter    *MessageRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func NewSignalWSController(o *orch.Orchestrator) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
		WriteWait:  5 * time.Second,
		SendBuffer: 32,
	}
}

type WsSignalConn struct {
	id   string
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() string { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
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

// roleFromQuery reads the peer role the way browsers announce it.
func roleFromQuery(c *gin.Context) (domain.Role, error) {
	raw := c.Query("clientId")
	if raw == "" {
		raw = c.Query("role")
	}
	return domain.ParseRole(raw)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	role, err := roleFromQuery(c)
	if err != nil || role != domain.RoleViewer {
		log.Warn().Err(err).Str("module", "signal").Str("role", string(role)).Msg("rejected socket role")
		c.String(http.StatusBadRequest, "unsupported client role")
		return
	}

	// The upgrade response is written on the hijacked connection, so the
	// session cookie has to be passed along explicitly.
	hdr := http.Header{}
	if cookies := c.Writer.Header().Values("Set-Cookie"); len(cookies) > 0 {
		hdr["Set-Cookie"] = cookies
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, hdr)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	buf := ctl.SendBuffer
	if buf <= 0 {
		buf = 32
	}
	conn := &WsSignalConn{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan core.Frame, buf),
	}
	log.Info().Str("module", "signal").Str("conn", conn.id).
		Str("client_token", c.GetString("client_token")).Msg("viewer socket opened")

	ctl.Orch.OnViewerAttach(conn)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, conn)
}
