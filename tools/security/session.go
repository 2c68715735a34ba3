package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionKeySize is the AES-256 key length.
	SessionKeySize = 32
	// NonceSize is the GCM nonce length; one fresh random nonce per Encrypt.
	NonceSize = 12

	keyContext = "relaygate.session.v1:"
)

// ErrDecrypt reports an AEAD authentication failure. Callers must treat it as
// fatal to the connection: a failed tag can mean tampering, never retry.
var ErrDecrypt = errors.New("ciphertext authentication failed")

// DeriveSessionKey derives the per-token AES-256-GCM key via HKDF-SHA256.
// The server secret is the salt and the context string plus tokenID is the
// input key material, so the same tokenID always yields the same key until
// the secret rotates.
func DeriveSessionKey(secret []byte, tokenID string) []byte {
	r := hkdf.New(sha256.New, []byte(keyContext+tokenID), secret, nil)
	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only errors past 255*32 bytes of output; unreachable here.
		panic(err)
	}
	return key
}

// Encrypt seals plaintext under key and returns base64 nonce and ciphertext.
// The ciphertext carries GCM's 16-byte authentication tag.
func Encrypt(key, plaintext []byte) (nonceB64, dataB64 string, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", errors.Wrap(err, "read nonce")
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(nonce), base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a sealed payload. Malformed base64 or a bad nonce length come
// back as decode errors; a failed authentication tag comes back as ErrDecrypt
// so callers can distinguish tampering from garbage input.
func Decrypt(key []byte, nonceB64, dataB64 string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, errors.Wrap(err, "decode nonce")
	}
	if len(nonce) != NonceSize {
		return nil, errors.Errorf("bad nonce length %d", len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, errors.Wrap(err, "decode ciphertext")
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != SessionKeySize {
		return nil, errors.Errorf("session key must be %d bytes, got %d", SessionKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "new cipher")
	}
	return cipher.NewGCM(block)
}
