package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const tokenIDSize = 16

// NewTokenID returns a hex-encoded identifier with 16 bytes of entropy.
// It identifies one refresh-token ledger entry and is embedded in the
// signed refresh token.
func NewTokenID() (string, error) {
	var raw [tokenIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// NewNonce returns a base64url-encoded random nonce of n bytes.
func NewNonce(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid nonce size")
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// SignNonce computes an HMAC-SHA256 tag over a nonce with the given secret.
// Used for the double-submit CSRF token and the OAuth state parameter.
func SignNonce(secret []byte, nonce string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyNonce reports whether tag is a valid signature of nonce under secret.
// Comparison is constant time.
func VerifyNonce(secret []byte, nonce, tag string) bool {
	expected := SignNonce(secret, nonce)
	return hmac.Equal([]byte(expected), []byte(tag))
}
