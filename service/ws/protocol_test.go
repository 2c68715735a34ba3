package ws

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaygate/tools/errs"
	"relaygate/tools/security"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return security.DeriveSessionKey([]byte("proto-test-secret"), "proto-jti")
}

func TestSealOpenFrameRoundTrip(t *testing.T) {
	key := testKey(t)
	in := &Message{Type: TypeMessage, ID: "m1", Room: "lobby", Data: map[string]any{"x": 1}}

	raw, err := SealFrame(in, key)
	require.NoError(t, err)

	// The envelope leaks only the type discriminator.
	var f EncryptedFrame
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, TypeMessage, f.Type)
	assert.NotContains(t, string(raw), "lobby")

	out, err := OpenFrame(raw, key)
	require.NoError(t, err)
	assert.Equal(t, TypeMessage, out.Type)
	assert.Equal(t, "m1", out.ID)
	assert.Equal(t, "lobby", out.Room)
	data, ok := out.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["x"])
}

func TestSealFrameStampsTimestamp(t *testing.T) {
	key := testKey(t)
	raw, err := SealFrame(&Message{Type: TypePing}, key)
	require.NoError(t, err)

	out, err := OpenFrame(raw, key)
	require.NoError(t, err)
	ts, err := time.Parse(time.RFC3339, out.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestOpenFrameWrongKey(t *testing.T) {
	key := testKey(t)
	other := security.DeriveSessionKey([]byte("proto-test-secret"), "other-jti")

	raw, err := SealFrame(&Message{Type: TypePing}, key)
	require.NoError(t, err)

	_, err = OpenFrame(raw, other)
	assert.ErrorIs(t, err, security.ErrDecrypt)
}

func TestOpenFrameMalformed(t *testing.T) {
	key := testKey(t)

	_, err := OpenFrame([]byte("not json"), key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, security.ErrDecrypt)

	_, err = OpenFrame([]byte(`{"type":"ping"}`), key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, security.ErrDecrypt)
}

func TestOpenFrameFallsBackToOuterType(t *testing.T) {
	key := testKey(t)
	iv, data, err := security.Encrypt(key, []byte(`{"id":"1"}`))
	require.NoError(t, err)
	raw, err := json.Marshal(EncryptedFrame{Type: TypePing, IV: iv, Data: data})
	require.NoError(t, err)

	out, err := OpenFrame(raw, key)
	require.NoError(t, err)
	assert.Equal(t, TypePing, out.Type)
}

func TestMarshalHandshake(t *testing.T) {
	key := testKey(t)
	raw, err := MarshalHandshake(key)
	require.NoError(t, err)

	var hs HandshakeFrame
	require.NoError(t, json.Unmarshal(raw, &hs))
	assert.Equal(t, TypeHandshake, hs.Type)
	decoded, err := base64.StdEncoding.DecodeString(hs.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestMarshalErrorIsPlaintext(t *testing.T) {
	raw := MarshalError(errs.CodeDecryptFailed, "decryption failed")

	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, errs.CodeDecryptFailed, m.Code)
	assert.NotEmpty(t, m.Timestamp)
}

func TestKnownType(t *testing.T) {
	assert.True(t, KnownType(TypePing))
	assert.True(t, KnownType(TypeBroadcast))
	assert.False(t, KnownType(MessageType("bogus")))
	assert.False(t, KnownType(MessageType("")))
}
