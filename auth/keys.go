// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// BodyHashClaim is the private JWT claim holding the hex SHA-256 of the signed request body.
const BodyHashClaim = "request_body_sha256"

// DefaultTokenLifetime is the validity of tokens signed by a KeyManager.
const DefaultTokenLifetime = 5 * time.Minute

// KeyManager holds ES256 signing keys and publishes their public halves as a JWKS.
//
// The most recently generated key signs; older keys stay in the public set so receivers can
// still verify tokens issued before a rotation.
type KeyManager struct {
	issuer string

	mu      sync.RWMutex
	current jwk.Key
	public  jwk.Set
}

// NewKeyManager creates a key manager whose tokens carry issuer as "iss".
func NewKeyManager(issuer string) *KeyManager {
	return &KeyManager{
		issuer: issuer,
		public: jwk.NewSet(),
	}
}

// GenerateKey creates a P-256 key pair identified by kid and makes it the signing key.
// An empty kid is replaced by a random one.
func (m *KeyManager) GenerateKey(kid string) (string, error) {
	if kid == "" {
		kid = uuid.NewString()
	}

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate private key: %w", err)
	}
	key, err := jwk.Import(raw)
	if err != nil {
		return "", fmt.Errorf("failed to import private key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return "", err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return "", err
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return "", err
	}

	pub, err := key.PublicKey()
	if err != nil {
		return "", fmt.Errorf("failed to derive public key: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.public.AddKey(pub); err != nil {
		return "", fmt.Errorf("failed to publish key %s: %w", kid, err)
	}
	m.current = key
	return kid, nil
}

// PublicKeys returns the public key set.
func (m *KeyManager) PublicKeys() jwk.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.public
}

// Sign returns a compact JWT for audience binding the SHA-256 of body.
func (m *KeyManager) Sign(audience string, body []byte) (string, error) {
	m.mu.RLock()
	key := m.current
	m.mu.RUnlock()
	if key == nil {
		return "", fmt.Errorf("no signing key: call GenerateKey first")
	}

	sum := sha256.Sum256(body)
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(m.issuer).
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(now.Add(DefaultTokenLifetime)).
		JwtID(uuid.NewString()).
		Claim(BodyHashClaim, hex.EncodeToString(sum[:])).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks token against keys and that it was issued for body.
func Verify(keys jwk.Set, token string, body []byte) error {
	tok, err := jwt.ParseString(token, jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	var got string
	if err := tok.Get(BodyHashClaim, &got); err != nil {
		return fmt.Errorf("token has no %s claim: %w", BodyHashClaim, err)
	}
	sum := sha256.Sum256(body)
	if got != hex.EncodeToString(sum[:]) {
		return fmt.Errorf("token does not match request body")
	}
	return nil
}

// JWKSHandler serves the public key set.
func (m *KeyManager) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := json.Marshal(m.PublicKeys())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
}
