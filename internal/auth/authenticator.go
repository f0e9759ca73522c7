// Package auth verifies the bearer credentials presented by polling
// clients. Configured shared secrets are never compared in plaintext: each
// is digested with scrypt under a cached salt, and candidates are checked
// with constant-time comparison against every digest in the set.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"
)

const (
	scheme       = "Bearer"
	digestLen    = 32
	saltLen      = 32
	cacheKeyBase = "attempts:hashed-tokens:"
)

type Authenticator struct {
	clientID string
	tokens   []string
	cost     string
	ttl      time.Duration
	cache    *Cache
	cacheKey string
}

// NewAuthenticator builds an authenticator over the configured credential
// set. The digest cache key is derived from a content hash of the secrets
// themselves, so rotating a secret forces a cache miss instead of a stale
// hit.
func NewAuthenticator(clientID string, tokens []string, cost string, ttl time.Duration, cache *Cache) *Authenticator {
	hashes := make([]string, len(tokens))
	for i, token := range tokens {
		sum := sha256.Sum256([]byte(token))
		hashes[i] = hex.EncodeToString(sum[:])
	}
	keySum := sha256.Sum256([]byte(strings.Join(hashes, ",")))

	return &Authenticator{
		clientID: clientID,
		tokens:   tokens,
		cost:     cost,
		ttl:      ttl,
		cache:    cache,
		cacheKey: cacheKeyBase + hex.EncodeToString(keySum[:]),
	}
}

// Authenticate checks a raw Authorization header value. The header carries
// three space-separated parts: scheme, client identifier, credential; the
// credential may itself contain spaces, so the split is capped at three.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (bool, error) {
	parts := strings.SplitN(header, " ", 3)
	if len(parts) != 3 {
		return false, nil
	}
	if parts[0] != scheme || parts[1] != a.clientID {
		return false, nil
	}
	return a.verify(ctx, parts[2])
}

func (a *Authenticator) verify(ctx context.Context, credential string) (bool, error) {
	set, err := a.cache.GetOrCompute(ctx, a.cacheKey, a.ttl, a.computeDigests)
	if err != nil {
		return false, err
	}

	candidate, err := Digest(credential, set.Salt, set.Cost)
	if err != nil {
		return false, err
	}

	// Check every digest; any match authenticates. All entries are equally
	// valid secrets, so which index matches carries no information.
	match := 0
	for _, d := range set.Digests {
		match |= subtle.ConstantTimeCompare(candidate, d)
	}
	return match == 1, nil
}

func (a *Authenticator) computeDigests() (*DigestSet, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	digests := make([][]byte, len(a.tokens))
	for i, token := range a.tokens {
		d, err := Digest(token, saltHex, a.cost)
		if err != nil {
			return nil, err
		}
		digests[i] = d
	}

	return &DigestSet{Salt: saltHex, Cost: a.cost, Digests: digests}, nil
}

// Digest computes the scrypt digest of a credential. The effective scrypt
// salt is the cost string concatenated with the SHA-256 hex of the random
// salt, which ties every digest to both the work parameters and the salt.
func Digest(credential, salt, cost string) ([]byte, error) {
	n, r, p, err := parseCost(cost)
	if err != nil {
		return nil, err
	}

	saltSum := sha256.Sum256([]byte(salt))
	scryptSalt := cost + hex.EncodeToString(saltSum[:])

	return scrypt.Key([]byte(credential), []byte(scryptSalt), n, r, p, digestLen)
}

// parseCost parses a work-cost string of the form "N$r$p$".
func parseCost(cost string) (n, r, p int, err error) {
	parts := strings.Split(strings.TrimSuffix(cost, "$"), "$")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed scrypt cost %q", cost)
	}

	n, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed scrypt cost %q: %w", cost, err)
	}
	r, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed scrypt cost %q: %w", cost, err)
	}
	p, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("malformed scrypt cost %q: %w", cost, err)
	}
	return n, r, p, nil
}
