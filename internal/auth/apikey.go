package auth

import (
	"fmt"
	"strings"
)

// APIKey is a configured machine credential. Presented keys have the form
// "<id>.<secret>"; only the hash of the secret is stored.
type APIKey struct {
	ID          string
	Hash        string
	Subject     string
	Permissions []Permission
}

// KeyVerifier checks presented API keys against the configured set.
type KeyVerifier struct {
	keys map[string]APIKey
}

// NewKeyVerifier indexes keys by id.
func NewKeyVerifier(keys []APIKey) *KeyVerifier {
	index := make(map[string]APIKey, len(keys))
	for _, k := range keys {
		index[k.ID] = k
	}
	return &KeyVerifier{keys: index}
}

// Verify returns the identity bound to presented.
func (v *KeyVerifier) Verify(presented string) (Identity, error) {
	if v == nil {
		return Identity{}, ErrInvalidCredentials
	}
	id, secret, ok := strings.Cut(presented, ".")
	if !ok || id == "" || secret == "" {
		return Identity{}, fmt.Errorf("%w: malformed api key", ErrInvalidCredentials)
	}
	key, found := v.keys[id]
	if !found {
		return Identity{}, fmt.Errorf("%w: unknown api key %s", ErrInvalidCredentials, id)
	}
	if err := VerifyKey(key.Hash, secret); err != nil {
		return Identity{}, fmt.Errorf("%w: api key %s: %v", ErrInvalidCredentials, id, err)
	}
	subject := key.Subject
	if subject == "" {
		subject = "apikey:" + key.ID
	}
	return Identity{Subject: subject, Permissions: key.Permissions}, nil
}
