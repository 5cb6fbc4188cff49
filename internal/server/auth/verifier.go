package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/willcounter/internal/common"
	"github.com/dmitrijs2005/willcounter/internal/logging"
)

// Identity is the authenticated principal attached to a request after
// successful verification. It lives for the request only and is never
// persisted.
type Identity struct {
	// Subject is the token's "sub" claim, the Auth0 user identifier.
	Subject string
	// Email is the optional "email" claim; empty when absent.
	Email string
	// RawClaims is the full validated claim set.
	RawClaims map[string]any
}

// Verifier validates bearer tokens against the issuer's published keys.
// A single Verifier is shared by all requests; its only mutable state is
// the key cache.
type Verifier struct {
	issuer   string
	audience string
	jwksURL  string
	client   *http.Client
	cache    *KeyCache
	logger   logging.Logger
}

// NewVerifier builds a Verifier for the given issuer domain and expected
// audience and eagerly warms the key cache. The warm-up is best-effort:
// an unreachable issuer at startup leaves the cache empty and the first
// verification triggers a refresh instead.
func NewVerifier(domain, audience string, logger logging.Logger) *Verifier {
	domain = strings.TrimSuffix(domain, "/")
	v := &Verifier{
		issuer:   "https://" + domain + "/",
		audience: audience,
		jwksURL:  "https://" + domain + "/.well-known/jwks.json",
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    &KeyCache{},
		logger:   logger.With("module", "auth"),
	}

	if err := v.refreshKeys(context.Background()); err != nil {
		v.logger.Warn(context.Background(), "initial jwks fetch failed", "error", err)
	}

	return v
}

// refreshKeys fetches the key set and atomically replaces the cache.
func (v *Verifier) refreshKeys(ctx context.Context) error {
	keys, err := fetchKeySet(ctx, v.client, v.jwksURL)
	if err != nil {
		return err
	}
	v.cache.Replace(keys)
	return nil
}

// resolveKey returns the signing key for kid, refreshing the key set at
// most once when the cache misses or has gone stale.
func (v *Verifier) resolveKey(ctx context.Context, kid string) (SigningKey, error) {
	if key, ok := v.cache.Lookup(kid); ok {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		v.logger.Warn(ctx, "jwks refresh failed", "error", err)
		return SigningKey{}, common.ErrUnknownSigningKey
	}

	if key, ok := v.cache.LookupAny(kid); ok {
		return key, nil
	}
	return SigningKey{}, common.ErrUnknownSigningKey
}

// Verify authenticates the request's bearer token and returns the
// identity it asserts. Every failure maps to one of the sentinel errors
// in the common package; the caller is expected to reject the request
// with the sentinel's fixed message and nothing else.
func (v *Verifier) Verify(r *http.Request) (*Identity, error) {
	raw, err := extractBearer(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	kid, err := declaredKeyID(raw)
	if err != nil {
		return nil, err
	}

	key, err := v.resolveKey(r.Context(), kid)
	if err != nil {
		return nil, err
	}

	pub, err := buildPublicKey(key)
	if err != nil {
		return nil, common.ErrInvalidKeyMaterial
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}); err != nil {
		return nil, common.ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, common.ErrInvalidSubject
	}
	email, _ := claims["email"].(string)

	return &Identity{Subject: sub, Email: email, RawClaims: claims}, nil
}

// extractBearer pulls the token out of an Authorization header value.
// The scheme match is case-insensitive; an empty token after trimming is
// treated the same as a missing header.
func extractBearer(header string) (string, error) {
	if header == "" {
		return "", common.ErrMissingCredential
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", common.ErrMissingCredential
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", common.ErrMissingCredential
	}
	return token, nil
}

// declaredKeyID reads the "kid" from the token header without verifying
// the signature. The signature is checked later, against the key this ID
// selects.
func declaredKeyID(raw string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", common.ErrMalformedToken
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return "", common.ErrMalformedToken
	}
	return kid, nil
}

// buildPublicKey assembles an RSA public key from the JWK's base64url
// modulus and exponent.
func buildPublicKey(key SigningKey) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key.N, "="))
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key.E, "="))
	if err != nil {
		return nil, err
	}
	if len(nb) == 0 || len(eb) == 0 {
		return nil, errors.New("empty key material")
	}

	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, errors.New("invalid public exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
