// Package pkce implements the Proof Key for Code Exchange primitives
// used by the OAuth client: a random code verifier, its S256 challenge,
// and an independent anti-CSRF state value.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierBytes is the number of random bytes behind the code verifier.
// 64 raw bytes base64url-encode (no padding) to 86 characters.
const verifierBytes = 64

// stateBytes is the number of random bytes behind the anti-CSRF state
// value. 32 raw bytes base64url-encode (no padding) to 43 characters.
const stateBytes = 32

func randomBase64URL(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("pkce: read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateCodeVerifier returns a cryptographically random code verifier:
// 64 random bytes, base64url-encoded without padding (86 characters).
func GenerateCodeVerifier() (string, error) {
	return randomBase64URL(verifierBytes)
}

// GenerateCodeChallenge derives the S256 code challenge from a verifier:
// SHA-256 of the verifier's UTF-8 bytes, base64url-encoded without padding.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns a random anti-CSRF state value: 32 random bytes,
// base64url-encoded without padding (43 characters).
func GenerateState() (string, error) {
	return randomBase64URL(stateBytes)
}

// Pair bundles a verifier with its derived challenge and an independent
// state value, the three things the OAuth client needs to start a flow.
type Pair struct {
	Verifier  string
	Challenge string
	State     string
}

// New generates a fresh verifier/challenge/state triple.
func New() (*Pair, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	return &Pair{
		Verifier:  verifier,
		Challenge: GenerateCodeChallenge(verifier),
		State:     state,
	}, nil
}
