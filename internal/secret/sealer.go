// Package secret seals account tokens before they are written to disk.
//
// Sealed values are "enc:v1:" followed by base64(nonce || ciphertext) using
// XChaCha20-Poly1305. Values without the prefix are treated as plaintext, so a
// database written before a key was configured stays readable.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "enc:v1:"

var ErrMalformed = errors.New("secret: malformed sealed value")

// Sealer encrypts and decrypts short secrets. The zero value is not usable;
// use New or Plaintext.
type Sealer struct {
	key []byte // nil means pass-through
}

// New builds a Sealer from a 64-character hex key.
func New(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("secret: decoding key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: key}, nil
}

// Plaintext returns a Sealer that stores values unchanged.
func Plaintext() *Sealer {
	return &Sealer{}
}

// Enabled reports whether values are actually encrypted.
func (s *Sealer) Enabled() bool {
	return s.key != nil
}

// Seal encrypts value. With no key it returns value unchanged.
func (s *Sealer) Seal(value string) (string, error) {
	if s.key == nil {
		return value, nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secret: creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(value), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// IsSealed reports whether value carries the sealed prefix. Plaintext stored
// without a key must never look like this, or Open would reject it.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Open reverses Seal. Unprefixed input is returned as-is.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if s.key == nil {
		return "", errors.New("secret: value is sealed but no key is configured")
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrMalformed
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secret: creating cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrMalformed
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secret: opening value: %w", err)
	}
	return string(plain), nil
}
