// Package auth resolves bearer tokens to owner identities. Every data-plane
// request is scoped to the owner its token resolves to.
package auth

import "errors"

// ErrInvalidToken is returned for a missing or unknown token.
var ErrInvalidToken = errors.New("invalid auth token")

// Verifier resolves a bearer token to an owner id.
type Verifier interface {
	Verify(token string) (ownerID string, err error)
}

// StaticVerifier verifies tokens against a fixed token-to-owner map loaded
// from configuration at startup.
type StaticVerifier struct {
	owners map[string]string
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier creates a verifier over the given token-to-owner map.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	owners := make(map[string]string, len(tokens))
	for token, owner := range tokens {
		owners[token] = owner
	}
	return &StaticVerifier{owners: owners}
}

// Verify returns the owner id for the token, or ErrInvalidToken.
func (v *StaticVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	owner, ok := v.owners[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return owner, nil
}
