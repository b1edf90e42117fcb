package moch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	resolveTimeout     = 2 * time.Minute
	resolveConcurrency = 20
)

var errResolveTimeout = errors.New("moch: resolve timed out")

// ResultCache stores successfully resolved URLs. GetOrCompute must return an
// already-stored value without invoking compute, and must not store anything
// when compute fails. Eviction and TTL are the implementation's business.
type ResultCache interface {
	GetOrCompute(key string, compute func() (string, error)) (string, error)
}

// ResolveRequest identifies one unrestrict operation. IP, ProviderKey,
// APIKey, InfoHash and FileIndex together form the deduplication key;
// Host only qualifies sentinel results.
type ResolveRequest struct {
	IP          string
	ProviderKey string
	APIKey      string
	InfoHash    string
	FileIndex   int
	Host        string
}

func (r ResolveRequest) dedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", r.IP, r.ProviderKey, r.APIKey, r.InfoHash, r.FileIndex)
}

type flight struct {
	done       chan struct{}
	url        string
	staticPath string
}

// result qualifies a sentinel outcome with the caller's own host, so a caller
// attached to someone else's flight never inherits the initiating host.
func (f *flight) result(host string) string {
	if f.staticPath != "" {
		return StaticURL(host, f.staticPath)
	}
	return f.url
}

// Resolver runs provider unrestrict calls with single-flight semantics per
// deduplication key: concurrent identical requests attach to one in-flight
// call, and distinct keys share a fixed-size semaphore.
type Resolver struct {
	registry *Registry
	guard    *CredentialGuard
	cache    ResultCache
	timeout  time.Duration

	semaphore chan struct{}
	mu        sync.Mutex
	inflight  map[string]*flight
}

func newResolver(registry *Registry, guard *CredentialGuard, cache ResultCache) *Resolver {
	return &Resolver{
		registry:  registry,
		guard:     guard,
		cache:     cache,
		timeout:   resolveTimeout,
		semaphore: make(chan struct{}, resolveConcurrency),
		inflight:  make(map[string]*flight),
	}
}

// Resolve returns a playable URL for the request. Malformed input is the only
// error condition; every provider-side failure degrades to a sentinel video
// URL so the caller always has something to redirect to.
func (r *Resolver) Resolve(req ResolveRequest) (string, error) {
	descriptor, ok := r.registry.Get(req.ProviderKey)
	if !ok {
		return "", fmt.Errorf("moch: unknown provider %q", req.ProviderKey)
	}

	if req.InfoHash == "" || req.APIKey == "" {
		return "", errors.New("moch: missing resolve parameters")
	}

	if !r.guard.IsValid(req.APIKey, req.ProviderKey) {
		return StaticURL(req.Host, FailedAccess), nil
	}

	key := req.dedupKey()

	r.mu.Lock()
	if f, exists := r.inflight[key]; exists {
		r.mu.Unlock()
		<-f.done
		return f.result(req.Host), nil
	}
	f := &flight{done: make(chan struct{})}
	r.inflight[key] = f
	r.mu.Unlock()

	r.semaphore <- struct{}{}
	f.url, f.staticPath = r.execute(descriptor, req, key)
	<-r.semaphore

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(f.done)

	return f.result(req.Host), nil
}

// execute returns either a playable URL or a relative sentinel path.
func (r *Resolver) execute(descriptor Descriptor, req ResolveRequest, key string) (string, string) {
	url, err := r.cache.GetOrCompute(key, func() (string, error) {
		return r.callProvider(descriptor, req)
	})
	if err != nil {
		return "", r.failurePath(err, req)
	}

	return url, ""
}

func (r *Resolver) callProvider(descriptor Descriptor, req ResolveRequest) (string, error) {
	type outcome struct {
		url string
		err error
	}

	// The provider call is abandoned on timeout, not aborted. Buffered so the
	// late writer never leaks.
	outcomeCh := make(chan outcome, 1)
	go func() {
		url, err := descriptor.New(req.APIKey, req.IP).Resolve(req.InfoHash, req.FileIndex)
		outcomeCh <- outcome{url: url, err: err}
	}()

	select {
	case out := <-outcomeCh:
		return out.url, out.err
	case <-time.After(r.timeout):
		return "", errResolveTimeout
	}
}

func (r *Resolver) failurePath(err error, req ResolveRequest) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		r.guard.Blacklist(req.APIKey, req.ProviderKey)
		return FailedAccess
	case errors.Is(err, ErrAccessDenied):
		return FailedAccess
	case errors.Is(err, ErrNotReady):
		return Downloading
	case errors.Is(err, ErrRarArchive):
		return FailedRar
	case errors.Is(err, errResolveTimeout):
		log.Warnf("Resolve timed out for %s on %s", req.InfoHash, req.ProviderKey)
		return FailedUnexpected
	default:
		log.Errorf("Failed to resolve %s on %s: %v", req.InfoHash, req.ProviderKey, err)
		return FailedUnexpected
	}
}
