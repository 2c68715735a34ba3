package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-server-secret")

func TestDeriveSessionKeyDeterministic(t *testing.T) {
	k1 := DeriveSessionKey(testSecret, "token-a")
	k2 := DeriveSessionKey(testSecret, "token-a")
	k3 := DeriveSessionKey(testSecret, "token-b")

	require.Len(t, k1, SessionKeySize)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestDeriveSessionKeySecretRotation(t *testing.T) {
	k1 := DeriveSessionKey(testSecret, "token-a")
	k2 := DeriveSessionKey([]byte("rotated"), "token-a")
	assert.NotEqual(t, k1, k2)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveSessionKey(testSecret, "rt")
	plaintexts := [][]byte{
		[]byte(`{"type":"ping"}`),
		[]byte(""),
		[]byte("not json at all \x00\x01\x02"),
	}
	for _, pt := range plaintexts {
		iv, data, err := Encrypt(key, pt)
		require.NoError(t, err)
		out, err := Decrypt(key, iv, data)
		require.NoError(t, err)
		assert.Equal(t, pt, out)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key := DeriveSessionKey(testSecret, "k1")
	other := DeriveSessionKey(testSecret, "k2")

	iv, data, err := Encrypt(key, []byte("secret payload"))
	require.NoError(t, err)

	_, err = Decrypt(other, iv, data)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key := DeriveSessionKey(testSecret, "tamper")
	iv, data, err := Encrypt(key, []byte("secret payload"))
	require.NoError(t, err)

	// Flip the last character of the base64 ciphertext so the decoded bytes
	// change but stay decodable.
	b := []byte(data)
	last := len(b) - 1
	for b[last] == '=' {
		last--
	}
	if b[last] == 'A' {
		b[last] = 'B'
	} else {
		b[last] = 'A'
	}
	_, err = Decrypt(key, iv, string(b))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptDecodeErrorIsNotErrDecrypt(t *testing.T) {
	key := DeriveSessionKey(testSecret, "decode")
	_, err := Decrypt(key, "!!!not-base64!!!", "AAAA")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsBadKeyLength(t *testing.T) {
	_, _, err := Encrypt([]byte("short"), []byte("x"))
	assert.Error(t, err)
}

func TestNonceUniqueness(t *testing.T) {
	key := DeriveSessionKey(testSecret, "nonce")
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		iv, _, err := Encrypt(key, []byte("x"))
		require.NoError(t, err)
		if _, dup := seen[iv]; dup {
			t.Fatalf("nonce collision after %d encryptions", i)
		}
		seen[iv] = struct{}{}
	}
}
