package keystore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

// Sealer encrypts stored keys with NaCl secretbox. The zero value passes
// values through unchanged.
type Sealer struct {
	key     *[32]byte
	entropy io.Reader
}

// NewSealer derives a sealing key from secret. An empty secret disables
// sealing.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return &Sealer{}
	}
	key := sha256.Sum256([]byte(secret))
	return &Sealer{key: &key, entropy: rand.Reader}
}

// Enabled reports whether values are sealed.
func (s *Sealer) Enabled() bool {
	return s != nil && s.key != nil
}

// Seal encrypts plaintext into a printable token.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if !s.Enabled() {
		return plaintext, nil
	}

	var nonce [24]byte
	if _, err := io.ReadFull(s.entropy, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open decrypts a sealed token. Values without the sealed prefix are
// returned as is, so keys written before sealing was enabled keep working.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !s.Enabled() {
		return "", errors.New("sealed key found but no sealing secret configured")
	}

	box, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(box) < 24+secretbox.Overhead {
		return "", errors.New("malformed sealed key")
	}

	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return "", errors.New("sealed key does not match the configured secret")
	}
	return string(plain), nil
}
