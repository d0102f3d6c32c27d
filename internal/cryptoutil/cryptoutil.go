// Package cryptoutil seals and opens the encrypted request envelope
// `{"data":"v1:<base64(nonce||ciphertext)>"}` used for credential-bearing bodies.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PrefixV1 marks AES-256-GCM payloads. The version allows a future key or
// algorithm rotation without breaking old clients mid-deploy.
const PrefixV1 = "v1:"

// ErrMalformed is returned for payloads that are not a v1 envelope or fail authentication.
var ErrMalformed = errors.New("cryptoutil: malformed payload")

// Codec seals and opens payloads.
type Codec interface {
	Seal(plaintext []byte) (string, error)
	Open(payload string) ([]byte, error)
}

// AESGCM implements Codec with AES-256-GCM.
type AESGCM struct {
	aead cipher.AEAD
}

var _ Codec = (*AESGCM)(nil)

// NewAESGCM builds a codec from a 32-byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

// KeyFromString accepts a 64-character hex key as-is and hashes anything else
// to 32 bytes with SHA-256.
func KeyFromString(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("payload key is empty")
	}
	if decoded, err := hex.DecodeString(s); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	sum := sha256.Sum256([]byte(s))
	return sum[:], nil
}

// Seal encrypts plaintext under a random nonce.
func (c *AESGCM) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := c.aead.Seal(nonce, nonce, plaintext, nil)
	return PrefixV1 + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a payload produced by Seal.
func (c *AESGCM) Open(payload string) ([]byte, error) {
	b64, ok := strings.CutPrefix(payload, PrefixV1)
	if !ok {
		return nil, fmt.Errorf("%w: unknown version", ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	n := c.aead.NonceSize()
	if len(data) < n+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrMalformed)
	}
	pt, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return pt, nil
}
