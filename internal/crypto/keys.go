// Package crypto derives session signing keys and compares secrets.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLen is the minimum length of a configured cookie secret.
const MinSecretLen = 32

// sessionKeyInfo binds derived keys to their single use.
const sessionKeyInfo = "todos session cookie v1"

// ErrShortSecret is returned for cookie secrets under MinSecretLen bytes.
var ErrShortSecret = errors.New("secret must be at least 32 bytes")

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveSessionKey expands a configured secret into a 32-byte HMAC key with HKDF-SHA256.
func DeriveSessionKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrShortSecret
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// SecretEqual compares two secrets in constant time (length is not hidden).
func SecretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
