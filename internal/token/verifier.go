// Package token verifies externally-issued identity tokens against the
// issuer's published key set. Verification is done with crypto primitives
// directly, not a JWT library: the accepted algorithm is a fixed allowlist
// of exactly one entry, and nothing about the token is trusted before the
// signature checks out.
package token

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidToken is the single observable outcome for every rejection
// path. Handlers must not surface the wrapped detail across the trust
// boundary; it exists for server-side logs only.
var ErrInvalidToken = errors.New("invalid token")

// nbfSkew is the tolerated clock skew for the not-before claim.
const nbfSkew = 60 * time.Second

type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type tokenClaims struct {
	Iss string `json:"iss"`
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
	Nbf int64  `json:"nbf"`
}

// Verifier validates compact RS256 tokens against a single pinned issuer.
// The key cache is injected so tests can point it at a fake issuer.
type Verifier struct {
	keys   *KeyCache
	issuer string
	now    func() time.Time
}

// NewVerifier creates a Verifier that accepts tokens from exactly one
// issuer. Keys are always fetched from the pinned issuer's JWKS endpoint,
// never from a URL derived from the token itself.
func NewVerifier(keys *KeyCache, issuer string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, now: time.Now}
}

// Verify checks the token end to end and returns the subject claim. Any
// failure at any step returns an error wrapping ErrInvalidToken; no step
// is skipped or soft-failed.
func (v *Verifier) Verify(ctx context.Context, raw string) (string, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidToken, len(parts))
	}

	headerJSON, err := decodeSegment(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	payloadJSON, err := decodeSegment(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}

	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	var claims tokenClaims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return "", fmt.Errorf("%w: payload: %v", ErrInvalidToken, err)
	}

	// Fixed algorithm allowlist. Checking before anything else prevents
	// algorithm-confusion attacks (e.g. HS256 signed with the public key).
	if header.Alg != "RS256" {
		return "", fmt.Errorf("%w: algorithm %q not accepted", ErrInvalidToken, header.Alg)
	}

	now := v.now()
	if claims.Exp != 0 && now.Unix() >= claims.Exp {
		return "", fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if claims.Nbf != 0 && claims.Nbf > now.Add(nbfSkew).Unix() {
		return "", fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	}
	if claims.Iss != v.issuer {
		return "", fmt.Errorf("%w: untrusted issuer", ErrInvalidToken)
	}

	keySet, err := v.keys.Get(ctx, v.issuer)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	jwk := keySet.Find(header.Kid, "RSA")
	if jwk == nil {
		return "", fmt.Errorf("%w: no matching key %q", ErrInvalidToken, header.Kid)
	}

	pub, err := jwk.PublicKey()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sig, err := decodeSegment(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: signature: %v", ErrInvalidToken, err)
	}

	// Sign over the exact transmitted bytes, never a re-encoding.
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return "", fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	if claims.Sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Sub, nil
}

// decodeSegment base64url-decodes a token segment. The encoding omits
// padding; trailing padding is tolerated by stripping it first.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
