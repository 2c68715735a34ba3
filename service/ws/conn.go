package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// UserID and RoomName are distinct types on purpose: the maps below are the
// only shared mutable state in the subsystem and mixing up key spaces there
// must not compile.
type (
	UserID   int64
	RoomName string
)

// ConnState tracks the per-connection lifecycle. There is no resume state: a
// reconnect always starts over at StateConnecting.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateHandshaking
	StateActive
	StateClosing
	StateClosed
)

// Conn is one live WebSocket plus everything the manager needs to address it:
// the owning user and the session key its frames are sealed under. The key is
// derived during authentication and never changes for the connection's
// lifetime.
type Conn struct {
	ID        string
	UserID    UserID
	Superuser bool
	Key       []byte
	WS        *websocket.Conn

	writeWait time.Duration
	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
}

func NewConn(id string, userID UserID, superuser bool, key []byte, ws *websocket.Conn, writeWait time.Duration) *Conn {
	if writeWait <= 0 {
		writeWait = 5 * time.Second
	}
	c := &Conn{ID: id, UserID: userID, Superuser: superuser, Key: key, WS: ws, writeWait: writeWait}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Conn) State() ConnState      { return ConnState(c.state.Load()) }
func (c *Conn) setState(st ConnState) { c.state.Store(int32(st)) }

// WriteRaw serializes writes on this connection. Callers never hold the
// manager lock here, so a slow peer only ever stalls its own connection.
func (c *Conn) WriteRaw(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.WS.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.WS.WriteMessage(websocket.TextMessage, payload)
}

// CloseWithCode sends a close frame with an application close code and shuts
// the transport. Safe to call multiple times; only the first wins.
func (c *Conn) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		deadline := time.Now().Add(c.writeWait)
		_ = c.WS.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.WS.Close()
		c.setState(StateClosed)
	})
}

func (c *Conn) closeQuiet() {
	c.closeOnce.Do(func() {
		_ = c.WS.Close()
		c.setState(StateClosed)
	})
}
