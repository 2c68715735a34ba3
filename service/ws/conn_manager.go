package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"relaygate/logger"
	"relaygate/service/relay"
	"relaygate/tools/decode"
	"relaygate/tools/errs"
	"relaygate/tools/security"
)

// ManagerConf configures a ConnManager.
type ManagerConf struct {
	GatewayID    string
	WriteTimeout time.Duration // per-frame write deadline
	Relay        relay.Relay   // optional cross-instance fabric; nil = single instance
}

func (c *ManagerConf) norm() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.GatewayID == "" {
		c.GatewayID = "rg-1"
	}
}

// ConnManager owns every live connection. All mutation of the user and room
// maps goes through it; nothing else touches them. Network writes happen
// outside the lock, each connection serializing its own.
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[string]*Conn
	byUser map[UserID]map[string]*Conn
	rooms  map[RoomName]map[UserID]struct{}

	conf ManagerConf
}

func NewConnManager(conf ManagerConf) *ConnManager {
	conf.norm()
	return &ConnManager{
		byID:   make(map[string]*Conn),
		byUser: make(map[UserID]map[string]*Conn),
		rooms:  make(map[RoomName]map[UserID]struct{}),
		conf:   conf,
	}
}

func (m *ConnManager) GatewayID() string { return m.conf.GatewayID }

// WriteTimeout is exposed so the server can construct conns with a matching
// deadline.
func (m *ConnManager) WriteTimeout() time.Duration { return m.conf.WriteTimeout }

// Register enters an authenticated connection into the registry. A user may
// hold arbitrarily many connections at once.
func (m *ConnManager) Register(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	mm := m.byUser[c.UserID]
	if mm == nil {
		mm = make(map[string]*Conn)
		m.byUser[c.UserID] = mm
	}
	mm[c.ID] = c
}

// Unregister removes a connection and, when it was the user's last one, takes
// the user out of every room (destroying rooms left empty) and tells the
// remaining room members the user went offline. Idempotent: a read error and
// an explicit close racing both land here, only the first does work.
func (m *ConnManager) Unregister(c *Conn) {
	m.mu.Lock()
	if _, ok := m.byID[c.ID]; !ok {
		m.mu.Unlock()
		c.closeQuiet()
		return
	}
	delete(m.byID, c.ID)

	user := c.UserID
	var affected []RoomName
	if mm := m.byUser[user]; mm != nil {
		delete(mm, c.ID)
		if len(mm) == 0 {
			delete(m.byUser, user)
			for room, members := range m.rooms {
				if _, in := members[user]; !in {
					continue
				}
				delete(members, user)
				if len(members) == 0 {
					delete(m.rooms, room)
				} else {
					affected = append(affected, room)
				}
			}
		}
	}
	m.mu.Unlock()

	c.closeQuiet()
	for _, room := range affected {
		m.BroadcastRoom(room, NewPresence(string(room), int64(user), false), nil)
	}
}

// JoinRoom is an idempotent set add; the room comes into existence on first
// join. Every current member, the joiner included, gets a presence event.
func (m *ConnManager) JoinRoom(user UserID, room RoomName) {
	if room == "" {
		return
	}
	m.mu.Lock()
	members := m.rooms[room]
	if members == nil {
		members = make(map[UserID]struct{})
		m.rooms[room] = members
	}
	members[user] = struct{}{}
	m.mu.Unlock()

	m.BroadcastRoom(room, NewPresence(string(room), int64(user), true), nil)
}

// LeaveRoom removes the user; the last member out destroys the room. The
// leaver and the remaining members all see the presence event.
func (m *ConnManager) LeaveRoom(user UserID, room RoomName) {
	m.mu.Lock()
	members, ok := m.rooms[room]
	if ok {
		delete(members, user)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	msg := NewPresence(string(room), int64(user), false)
	m.BroadcastRoom(room, msg, nil)
	_ = m.SendPersonal(user, msg)
}

// SendToConn seals msg under this connection's own key and writes it.
func (m *ConnManager) SendToConn(c *Conn, msg *Message) error {
	if len(c.Key) == 0 {
		return errors.New("connection has no session key")
	}
	payload, err := SealFrame(msg, c.Key)
	if err != nil {
		return err
	}
	return c.WriteRaw(payload)
}

// SendPersonal delivers to every connection the user currently has, sealing
// once per connection since each holds its own key. A dead connection is
// pruned without aborting delivery to the rest.
func (m *ConnManager) SendPersonal(user UserID, msg *Message) error {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.byUser[user]))
	for _, c := range m.byUser[user] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	var lastErr error
	for _, c := range conns {
		payload, err := SealFrame(msg, c.Key)
		if err != nil {
			lastErr = err
			continue
		}
		if err := c.WriteRaw(payload); err != nil {
			lastErr = err
			logger.Warnf("[ws] prune dead conn id=%s user=%d: %v", c.ID, user, err)
			m.Unregister(c)
		}
	}
	return lastErr
}

// BroadcastRoom delivers to every member of the room except exclude (all of
// that user's devices), then offers the event to other instances via the
// relay.
func (m *ConnManager) BroadcastRoom(room RoomName, msg *Message, exclude *UserID) {
	m.broadcastRoomLocal(room, msg, exclude)
	m.publish(relay.KindRoom, room, msg, exclude)
}

func (m *ConnManager) broadcastRoomLocal(room RoomName, msg *Message, exclude *UserID) {
	m.mu.RLock()
	members := make([]UserID, 0, len(m.rooms[room]))
	for u := range m.rooms[room] {
		if exclude != nil && u == *exclude {
			continue
		}
		members = append(members, u)
	}
	m.mu.RUnlock()

	for _, u := range members {
		_ = m.SendPersonal(u, msg)
	}
}

// BroadcastAll delivers to every user connected to this instance and relays
// for the other instances to do the same.
func (m *ConnManager) BroadcastAll(msg *Message) {
	m.broadcastAllLocal(msg)
	m.publish(relay.KindAll, "", msg, nil)
}

func (m *ConnManager) broadcastAllLocal(msg *Message) {
	m.mu.RLock()
	users := make([]UserID, 0, len(m.byUser))
	for u := range m.byUser {
		users = append(users, u)
	}
	m.mu.RUnlock()

	for _, u := range users {
		_ = m.SendPersonal(u, msg)
	}
}

// ReceiveAndDecrypt blocks for the next data frame and opens it with the
// connection's key. Any failure to do so is fatal to the connection: the peer
// gets one plaintext error frame (it could not decrypt anything else) and the
// transport closes with 4003. The returned error terminates the caller's
// loop.
func (m *ConnManager) ReceiveAndDecrypt(c *Conn) (*Message, error) {
	for {
		mt, data, err := c.WS.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if len(c.Key) == 0 {
			m.failDecrypt(c, "no session key")
			return nil, errs.ErrDecryptFailed
		}
		msg, err := OpenFrame(data, c.Key)
		if err != nil {
			detail := "malformed frame"
			if errors.Is(err, security.ErrDecrypt) {
				detail = "decryption failed"
			}
			m.failDecrypt(c, detail)
			return nil, errs.ErrDecryptFailed.WithDetail(detail)
		}
		return msg, nil
	}
}

func (m *ConnManager) failDecrypt(c *Conn, detail string) {
	// Plaintext on purpose: the peer cannot decrypt a sealed error anymore.
	_ = c.WriteRaw(MarshalError(errs.CodeDecryptFailed, detail))
	c.CloseWithCode(errs.CodeDecryptFailed, detail)
}

// IsOnline reports whether the user holds at least one open connection here.
func (m *ConnManager) IsOnline(user UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[user]) > 0
}

// Stats is the read-only aggregate exposed over REST.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	Rooms            map[string]int `json:"rooms"`
	UsersOnline      []int64        `json:"users_online"`
}

func (m *ConnManager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		TotalConnections: len(m.byID),
		Rooms:            make(map[string]int, len(m.rooms)),
		UsersOnline:      make([]int64, 0, len(m.byUser)),
	}
	for room, members := range m.rooms {
		s.Rooms[string(room)] = len(members)
	}
	for u := range m.byUser {
		s.UsersOnline = append(s.UsersOnline, int64(u))
	}
	sort.Slice(s.UsersOnline, func(i, j int) bool { return s.UsersOnline[i] < s.UsersOnline[j] })
	return s
}

// PushEvent lets any other subsystem hand an application event to a specific
// user. Best effort: an offline user simply receives nothing, the event is
// neither queued nor persisted.
func (m *ConnManager) PushEvent(user UserID, event string, data any) {
	_ = m.SendPersonal(user, NewEvent(event, data))
}

// PushEventToRoom is the room-wide equivalent of PushEvent.
func (m *ConnManager) PushEventToRoom(room RoomName, event string, data any) {
	msg := NewEvent(event, data)
	msg.Room = string(room)
	m.BroadcastRoom(room, msg, nil)
}

// StartRelay subscribes to the cross-instance channel. A missing or failing
// backend degrades to single-instance delivery, never to an outage.
func (m *ConnManager) StartRelay(ctx context.Context) error {
	if m.conf.Relay == nil {
		return nil
	}
	return m.conf.Relay.Start(ctx, m.handleEnvelope)
}

func (m *ConnManager) handleEnvelope(env *relay.Envelope) {
	if env.Origin == m.conf.GatewayID {
		return
	}
	msg, err := decode.DecodeMap[Message](env.Message)
	if err != nil {
		logger.Warnf("[relay] drop undecodable message from %s: %v", env.Origin, err)
		return
	}
	var exclude *UserID
	if env.Exclude != nil {
		u := UserID(*env.Exclude)
		exclude = &u
	}
	switch env.Kind {
	case relay.KindRoom:
		m.broadcastRoomLocal(RoomName(env.Room), msg, exclude)
	case relay.KindAll:
		m.broadcastAllLocal(msg)
	default:
		logger.Warnf("[relay] drop envelope with kind %q from %s", env.Kind, env.Origin)
	}
}

func (m *ConnManager) publish(kind string, room RoomName, msg *Message, exclude *UserID) {
	if m.conf.Relay == nil {
		return
	}
	msg.Stamp()
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	env := &relay.Envelope{Origin: m.conf.GatewayID, Kind: kind, Room: string(room), Message: payload}
	if exclude != nil {
		v := int64(*exclude)
		env.Exclude = &v
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.conf.Relay.Publish(ctx, env); err != nil {
		logger.Warnf("[relay] publish failed, local delivery only: %v", err)
	}
}

// Close tears down every connection. Used on shutdown.
func (m *ConnManager) Close() {
	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.byID))
	for _, c := range m.byID {
		conns = append(conns, c)
	}
	m.byID = make(map[string]*Conn)
	m.byUser = make(map[UserID]map[string]*Conn)
	m.rooms = make(map[RoomName]map[UserID]struct{})
	m.mu.Unlock()

	for _, c := range conns {
		c.CloseWithCode(websocket.CloseGoingAway, "server shutdown")
	}
	if m.conf.Relay != nil {
		_ = m.conf.Relay.Close()
	}
}
