package ws

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relaygate/logger"
	"relaygate/service/auth"
	"relaygate/tools/errs"
	"relaygate/tools/ids"
)

const (
	authTimeout  = 5 * time.Second
	readWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	readLimit    = 1 << 20 // 1MB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server ties the gate, the manager and the dispatch table together. One
// goroutine per connection runs the full lifecycle inside HandleWS.
type Server struct {
	gwID string
	mgr  *ConnManager
	gate *auth.Gate
	disp *Dispatcher
}

func NewServer(gwID string, mgr *ConnManager, gate *auth.Gate, disp *Dispatcher) *Server {
	return &Server{gwID: gwID, mgr: mgr, gate: gate, disp: disp}
}

func (s *Server) Manager() *ConnManager { return s.mgr }

// HandleWS runs a connection CONNECTING -> AUTHENTICATING -> HANDSHAKING ->
// ACTIVE until the loop breaks, then always through CLOSING -> CLOSED. The
// token rides a query parameter because browser WebSocket clients cannot set
// handshake headers; an optional :room path parameter auto-joins that room.
func (s *Server) HandleWS(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	// Auth happens after the transport accept so the close code reaches the
	// peer. No handshake frame is ever sent on this path.
	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	user, key, aerr := s.gate.Authenticate(ctx, c.Query("token"))
	cancel()
	if aerr != nil {
		reason := "authentication failed"
		if ce, ok := errs.AsCodeError(aerr); ok && ce.Detail != "" {
			reason = ce.Detail
		}
		deadline := time.Now().Add(s.mgr.WriteTimeout())
		_ = wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(errs.CodeAuthFailed, reason), deadline)
		_ = wsConn.Close()
		return
	}

	conn := NewConn(ids.GenerateString(), UserID(user.ID), user.IsSuperuser, key, wsConn, s.mgr.WriteTimeout())
	conn.setState(StateAuthenticating)
	s.mgr.Register(conn)

	// Cleanup must run exactly once no matter how the loop exits; Unregister
	// guards against the close/read-error race itself.
	defer func() {
		conn.setState(StateClosing)
		s.mgr.Unregister(conn)
		logger.Infof("[ws] closed conn=%s user=%d", conn.ID, conn.UserID)
	}()

	conn.setState(StateHandshaking)
	hs, err := MarshalHandshake(key)
	if err != nil {
		logger.Errorf("[ws] build handshake conn=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteRaw(hs); err != nil {
		logger.Infof("[ws] handshake write failed conn=%s: %v", conn.ID, err)
		return
	}

	if room := c.Param("room"); room != "" {
		s.mgr.JoinRoom(conn.UserID, RoomName(room))
	}

	stopPing := s.keepalive(conn)
	defer stopPing()

	conn.setState(StateActive)
	logger.Infof("[ws] active conn=%s user=%d", conn.ID, conn.UserID)

	for {
		msg, rerr := s.mgr.ReceiveAndDecrypt(conn)
		if rerr != nil {
			s.logReadExit(conn, rerr)
			return
		}
		s.dispatch(conn, msg)
	}
}

func (s *Server) dispatch(conn *Conn, msg *Message) {
	if !KnownType(msg.Type) {
		_ = s.mgr.SendToConn(conn, NewErrorMessage(errs.CodeUnknownType, "unknown message type"))
		return
	}
	h := s.disp.Get(msg.Type)
	if h == nil {
		_ = s.mgr.SendToConn(conn, NewErrorMessage(errs.CodeUnhandledType, "unhandled message type"))
		return
	}
	cctx := &Context{GatewayID: s.gwID, Mgr: s.mgr}
	if err := h.Handle(cctx, msg, conn); err != nil {
		logger.Warnf("[ws] handler %s conn=%s: %v", msg.Type, conn.ID, err)
	}
}

// keepalive refreshes the read deadline on pongs and sends transport-level
// pings. This is the socket heartbeat; the protocol-level ping/pong in the
// dispatch table is a separate, client-driven concern.
func (s *Server) keepalive(conn *Conn) (stop func()) {
	_ = conn.WS.SetReadDeadline(time.Now().Add(readWait))
	conn.WS.SetReadLimit(readLimit)
	conn.WS.SetPongHandler(func(string) error {
		return conn.WS.SetReadDeadline(time.Now().Add(readWait))
	})

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				deadline := time.Now().Add(s.mgr.WriteTimeout())
				if err := conn.WS.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (s *Server) logReadExit(conn *Conn, err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		logger.Infof("[ws] peer closed conn=%s", conn.ID)
	default:
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			logger.Infof("[ws] read timeout conn=%s", conn.ID)
			return
		}
		logger.Infof("[ws] read loop ended conn=%s: %v", conn.ID, err)
	}
}
