package ws

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"relaygate/tools/security"
)

// MessageType is the wire discriminator. The set is closed: anything else is
// rejected with error code 4004.
type MessageType string

const (
	TypeHandshake MessageType = "handshake"
	TypePing      MessageType = "ping"
	TypePong      MessageType = "pong"
	TypeJoinRoom  MessageType = "join_room"
	TypeLeaveRoom MessageType = "leave_room"
	TypeMessage   MessageType = "message"
	TypeBroadcast MessageType = "broadcast"
	TypeTyping    MessageType = "typing"
	TypeAck       MessageType = "ack"
	TypeError     MessageType = "error"
	TypePresence  MessageType = "presence"
	TypeSystem    MessageType = "system"
	TypeEvent     MessageType = "event"
)

var knownTypes = map[MessageType]struct{}{
	TypeHandshake: {}, TypePing: {}, TypePong: {}, TypeJoinRoom: {},
	TypeLeaveRoom: {}, TypeMessage: {}, TypeBroadcast: {}, TypeTyping: {},
	TypeAck: {}, TypeError: {}, TypePresence: {}, TypeSystem: {}, TypeEvent: {},
}

func KnownType(t MessageType) bool {
	_, ok := knownTypes[t]
	return ok
}

// Message is the inner plaintext of every post-handshake frame, in both
// directions. Which fields are meaningful depends on Type.
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id,omitempty"`  // client-assigned request id
	Ref       string      `json:"ref,omitempty"` // echoes ID in replies
	Room      string      `json:"room,omitempty"`
	Event     string      `json:"event,omitempty"`
	Data      any         `json:"data,omitempty"`
	Code      int         `json:"code,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	SenderID  int64       `json:"sender_id,omitempty"`
	UserID    int64       `json:"user_id,omitempty"`
	Online    *bool       `json:"online,omitempty"`
	IsTyping  *bool       `json:"is_typing,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// Stamp sets the construction timestamp unless the message already has one.
func (m *Message) Stamp() {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
}

// HandshakeFrame is the one plaintext frame the server sends, first, exactly
// once per connection.
type HandshakeFrame struct {
	Type       MessageType `json:"type"`
	SessionKey string      `json:"session_key"`
}

// EncryptedFrame wraps every frame after the handshake. Only the type
// discriminator stays in the clear.
type EncryptedFrame struct {
	Type MessageType `json:"type"`
	IV   string      `json:"iv"`
	Data string      `json:"data"`
}

// SealFrame stamps, serializes and encrypts msg under key and returns the
// envelope ready for the wire.
func SealFrame(msg *Message, key []byte) ([]byte, error) {
	msg.Stamp()
	pt, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message")
	}
	iv, data, err := security.Encrypt(key, pt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EncryptedFrame{Type: msg.Type, IV: iv, Data: data})
}

// OpenFrame parses an envelope and decrypts the inner message with key.
// security.ErrDecrypt comes through untouched so the caller can apply the
// 4003 close path.
func OpenFrame(raw []byte, key []byte) (*Message, error) {
	var f EncryptedFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parse frame")
	}
	if f.IV == "" || f.Data == "" {
		return nil, errors.New("frame missing iv or data")
	}
	pt, err := security.Decrypt(key, f.IV, f.Data)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(pt, &msg); err != nil {
		return nil, errors.Wrap(err, "parse inner message")
	}
	if msg.Type == "" {
		msg.Type = f.Type
	}
	return &msg, nil
}

// MarshalHandshake builds the plaintext handshake frame carrying the
// base64-encoded session key.
func MarshalHandshake(key []byte) ([]byte, error) {
	return json.Marshal(HandshakeFrame{
		Type:       TypeHandshake,
		SessionKey: encodeKey(key),
	})
}

// MarshalError builds a plaintext error frame. Used only when the session key
// cannot be trusted anymore (decryption failures); all other errors travel
// through the encrypted path.
func MarshalError(code int, detail string) []byte {
	m := Message{Type: TypeError, Code: code, Detail: detail}
	m.Stamp()
	b, _ := json.Marshal(m)
	return b
}

func encodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// ---- common server replies ----

func NewAck(ref, room string) *Message {
	return &Message{Type: TypeAck, Ref: ref, Room: room}
}

func NewPong(ref string) *Message {
	return &Message{Type: TypePong, Ref: ref}
}

func NewErrorMessage(code int, detail string) *Message {
	return &Message{Type: TypeError, Code: code, Detail: detail}
}

func NewPresence(room string, userID int64, online bool) *Message {
	return &Message{Type: TypePresence, Room: room, UserID: userID, Online: &online}
}

func NewEvent(event string, data any) *Message {
	return &Message{Type: TypeEvent, Event: event, Data: data}
}
