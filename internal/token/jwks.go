package token

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched key set is trusted without re-validation.
const DefaultTTL = time.Hour

// JWK is a single public key from an issuer's key set. Only the RSA fields
// the verifier needs are decoded.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet is the document served at {issuer}/.well-known/jwks.json.
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// Find returns the key matching the given key ID and key type, or nil.
// No fallback key is ever returned on a miss.
func (ks *KeySet) Find(kid, kty string) *JWK {
	for i := range ks.Keys {
		if ks.Keys[i].Kid == kid && ks.Keys[i].Kty == kty {
			return &ks.Keys[i]
		}
	}
	return nil
}

// PublicKey builds an *rsa.PublicKey from the JWK's modulus and exponent.
func (k *JWK) PublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(e.Int64()),
	}, nil
}

type cacheEntry struct {
	keys      *KeySet
	fetchedAt time.Time
}

// KeyCache is a process-wide read-through cache of issuer key sets. Within
// the TTL window the cached set is trusted without re-validation; past it,
// the next request re-fetches. Concurrent requests during expiry may each
// re-fetch; last write wins, which is fine because fetching is idempotent.
// A fetch failure is a hard failure, never a fallback to an expired entry.
type KeyCache struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewKeyCache creates a cache with the given TTL. A nil client uses a
// default with a 10s timeout.
func NewKeyCache(client *http.Client, ttl time.Duration) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KeyCache{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the issuer's key set, fetching it if the cached copy is
// missing or older than the TTL.
func (c *KeyCache) Get(ctx context.Context, issuer string) (*KeySet, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[issuer]
	c.mu.Unlock()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		return entry.keys, nil
	}

	keys, err := c.fetch(ctx, issuer)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[issuer] = cacheEntry{keys: keys, fetchedAt: now}
	c.mu.Unlock()
	return keys, nil
}

func (c *KeyCache) fetch(ctx context.Context, issuer string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/jwks.json", nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var ks KeySet
	if err := json.NewDecoder(resp.Body).Decode(&ks); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	return &ks, nil
}
