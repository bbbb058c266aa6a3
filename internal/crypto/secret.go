package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
)

// URL-safe base64 alphabet used for opaque token strings.
const tokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// AccessKeyLen is the byte length of API/role access keys.
const AccessKeyLen = 32

// RandString returns n random characters from the url-safe base64 alphabet.
// Used for refresh secrets and auth-token group labels.
func RandString(n int) (string, error) {
	raw, err := RandBytes(n)
	if err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = tokenCharset[b&63]
	}
	return string(out), nil
}

// GenerateAccessKey returns fresh per-role/per-API signing key material.
func GenerateAccessKey() ([]byte, error) {
	return RandBytes(AccessKeyLen)
}

// GenerateKeypair returns a fresh ed25519 (private, public) pair.
func GenerateKeypair() (priv, pub []byte, err error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}
