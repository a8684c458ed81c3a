package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abgdnv/cartwish/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Verifier turns a bearer token into verified claims.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// HMACVerifier verifies tokens produced by Issuer.
type HMACVerifier struct {
	key    []byte
	issuer string
}

func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{key: []byte(secret), issuer: issuer}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (jwt.Token, error) {
	return parse(tokenString, jwt.WithKey(jwa.HS256(), v.key), jwt.WithIssuer(v.issuer))
}

// JWKSVerifier verifies tokens issued by an external IdP against its published key set.
// Only tokens whose authorized party is the configured client are accepted.
type JWKSVerifier struct {
	keys     *keySet
	issuer   string
	clientID string
}

// NewJWKSVerifier fetches the key set once so that a misconfigured IdP fails startup.
func NewJWKSVerifier(ctx context.Context, cfg config.IdP) (*JWKSVerifier, error) {
	v := &JWKSVerifier{
		keys:     newKeySet(cfg.JwksURL, cfg.MinInterval, fetchJWKS),
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
	}
	if _, err := v.keys.get(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keys.get(ctx)
	if err != nil {
		return nil, err
	}
	return parse(tokenString,
		jwt.WithKeySet(set),
		jwt.WithIssuer(v.issuer),
		jwt.WithClaimValue("azp", v.clientID),
	)
}

func parse(tokenString string, opts ...jwt.ParseOption) (jwt.Token, error) {
	token, err := jwt.Parse([]byte(tokenString), append(opts, jwt.WithValidate(true))...)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}

type fetchFunc func(ctx context.Context, url string) (jwk.Set, error)

func fetchJWKS(ctx context.Context, url string) (jwk.Set, error) {
	return jwk.Fetch(ctx, url)
}

// keySet caches a remote JWKS for ttl. A failed refresh keeps serving the last good set.
type keySet struct {
	mu        sync.RWMutex
	url       string
	ttl       time.Duration
	fetch     fetchFunc
	set       jwk.Set
	fetchedAt time.Time
	now       func() time.Time
}

func newKeySet(url string, ttl time.Duration, fetch fetchFunc) *keySet {
	return &keySet{url: url, ttl: ttl, fetch: fetch, now: time.Now}
}

// fresh must be called with mu held.
func (k *keySet) fresh() (jwk.Set, bool) {
	return k.set, k.set != nil && k.now().Sub(k.fetchedAt) < k.ttl
}

func (k *keySet) get(ctx context.Context) (jwk.Set, error) {
	k.mu.RLock()
	set, ok := k.fresh()
	k.mu.RUnlock()
	if ok {
		return set, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if set, ok := k.fresh(); ok {
		return set, nil
	}
	fetched, err := k.fetch(ctx, k.url)
	switch {
	case err == nil:
		k.set, k.fetchedAt = fetched, k.now()
		return fetched, nil
	case k.set != nil:
		return k.set, nil
	default:
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", k.url, err)
	}
}
