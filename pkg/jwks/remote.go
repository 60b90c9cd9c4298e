// Package jwks resolves verification keys from a remote JWKS endpoint with a
// shared cache in front of it.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/merigaumata/authplatform/pkg/apperr"
	"github.com/merigaumata/authplatform/pkg/jwtx"
	"github.com/merigaumata/authplatform/pkg/kvstore"
)

const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultFetchTimeout = 2 * time.Second

	cachePrefix = "jwks:"
)

// Fetcher loads the current key set from the issuing authority.
type Fetcher interface {
	FetchJWKS(ctx context.Context) (jwtx.JWKS, error)
}

// Options tunes a RemoteKeySet.
type Options struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// RemoteKeySet implements jwtx.KeyResolver. Keys are cached per kid; a miss
// triggers one fetch per kid no matter how many requests are waiting on it.
type RemoteKeySet struct {
	fetcher Fetcher
	cache   kvstore.Store
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

var _ jwtx.KeyResolver = (*RemoteKeySet)(nil)

func NewRemoteKeySet(fetcher Fetcher, cache kvstore.Store, opts Options) *RemoteKeySet {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RemoteKeySet{
		fetcher: fetcher,
		cache:   cache,
		ttl:     opts.CacheTTL,
		timeout: opts.FetchTimeout,
		logger:  opts.Logger,
	}
}

// Key returns the public key for kid, fetching the remote set on a cache
// miss. Unknown kids yield KEY_NOT_FOUND; fetch failures yield
// SERVICE_UNAVAILABLE.
func (r *RemoteKeySet) Key(ctx context.Context, kid string) (any, error) {
	if jwk, ok := r.cached(ctx, kid); ok {
		if key, err := jwk.PublicKey(); err == nil {
			return key, nil
		}
		r.logger.WarnContext(ctx, "discarding undecodable cached key", "kid", kid)
	}

	v, err, _ := r.group.Do(kid, func() (any, error) {
		return r.refresh(ctx, kid)
	})
	if err != nil {
		return nil, err
	}
	return v.(jwtx.JWK).PublicKey()
}

func (r *RemoteKeySet) cached(ctx context.Context, kid string) (jwtx.JWK, bool) {
	raw, err := r.cache.Get(ctx, cachePrefix+kid)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			r.logger.WarnContext(ctx, "jwks cache read failed", "kid", kid, "error", err)
		}
		return jwtx.JWK{}, false
	}

	var jwk jwtx.JWK
	if err := json.Unmarshal([]byte(raw), &jwk); err != nil {
		return jwtx.JWK{}, false
	}
	return jwk, true
}

// refresh fetches the whole set, caches every key in it and returns kid.
// The fetch outlives the caller that started it so waiting callers are not
// failed by one cancellation.
func (r *RemoteKeySet) refresh(ctx context.Context, kid string) (jwtx.JWK, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	set, err := r.fetcher.FetchJWKS(fetchCtx)
	if err != nil {
		r.logger.ErrorContext(ctx, "jwks fetch failed", "kid", kid, "error", err)
		return jwtx.JWK{}, apperr.Wrap(err, apperr.CodeUnavailable, "key set unavailable")
	}

	for _, k := range set.Keys {
		if k.Kid == "" {
			continue
		}
		data, err := json.Marshal(k)
		if err != nil {
			continue
		}
		if err := r.cache.Set(fetchCtx, cachePrefix+k.Kid, string(data), r.ttl); err != nil {
			r.logger.WarnContext(ctx, "jwks cache write failed", "kid", k.Kid, "error", err)
		}
	}

	jwk, ok := set.Find(kid)
	if !ok {
		return jwtx.JWK{}, apperr.Wrap(jwtx.ErrNoKey, apperr.CodeKeyNotFound, fmt.Sprintf("no key with kid %q", kid))
	}
	return jwk, nil
}
