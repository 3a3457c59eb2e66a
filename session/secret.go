package session

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSecret expands a single operator-supplied master key into
// independent, fixed-length secrets for different uses (session cookie
// signing, CSRF token signing, ...) via HKDF-SHA256, keyed by info so
// different info strings yield independent secrets from the same master key,
// while the same (masterKey, info) pair always yields the same secret. This keeps
// http1.SignCookieValue's HMAC-SHA256 wire format unchanged while letting an
// operator rotate a single master key instead of managing one per purpose.
func DeriveSecret(masterKey []byte, info string, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
