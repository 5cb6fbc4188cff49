// Package auth verifies inbound bearer tokens issued by Auth0. It keeps a
// process-wide cache of the issuer's published signing keys (JWKS) and
// validates RS256 signatures, issuer, audience, and lifetime claims.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/willcounter/internal/common"
)

// keyFreshnessWindow is how long a fetched key set may serve lookups
// before a refresh is forced, even for key IDs already present.
const keyFreshnessWindow = 12 * time.Hour

// SigningKey is one public RSA key from the issuer's JWKS document.
// Modulus and exponent are base64url-encoded big-endian integers.
type SigningKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

type keySet struct {
	Keys []SigningKey `json:"keys"`
}

// KeyCache holds the most recently fetched key set. Many verifications
// read it concurrently; a refresh replaces keys and fetchedAt in one
// write-locked swap, so readers never observe a partial set.
//
// Invariant: fetchedAt is zero iff keys is empty.
type KeyCache struct {
	mu        sync.RWMutex
	keys      []SigningKey
	fetchedAt time.Time
}

// Lookup returns the cached key for kid, but only while the cache is
// fresh. A stale cache always misses so that the caller refreshes before
// trusting a possibly-rotated key set.
func (c *KeyCache) Lookup(kid string) (SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) >= keyFreshnessWindow {
		return SigningKey{}, false
	}
	return c.find(kid)
}

// find scans the key set without checking freshness. The caller must hold
// at least a read lock.
func (c *KeyCache) find(kid string) (SigningKey, bool) {
	for _, k := range c.keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return SigningKey{}, false
}

// LookupAny returns the cached key for kid regardless of age. Used right
// after a refresh, when freshness is already established.
func (c *KeyCache) LookupAny(kid string) (SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.find(kid)
}

// Replace swaps in a newly fetched key set and stamps the fetch time.
func (c *KeyCache) Replace(keys []SigningKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = keys
	c.fetchedAt = time.Now()
}

// fetchKeySet downloads and decodes the issuer's JWKS document.
func fetchKeySet(ctx context.Context, client *http.Client, url string) ([]SigningKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("jwks request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch: unexpected status %s: %w", resp.Status, common.ErrorRemoteUnavailable)
	}

	set := &keySet{}
	if err := json.NewDecoder(resp.Body).Decode(set); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}

	return set.Keys, nil
}
