// Package moch aggregates debrid-style cached-hosting providers ("mochs")
// behind a single engine: per-provider cached-availability lookups are folded
// into a candidate stream list, and unrestrict/resolve calls are deduplicated
// through a single-flight queue.
package moch

import (
	"fmt"
	"strings"

	"github.com/dbytex91/debridx/internal/model"
)

// CachedEntry is one provider's availability answer for a single infoHash.
// URL is a provider-local resolve path, relative to the resolve endpoint.
type CachedEntry struct {
	Cached bool
	URL    string
}

// Provider is the capability set every moch implements. A Provider instance
// is bound to one credential and one client address at construction.
type Provider interface {
	GetCachedStreams(streams []model.StreamItem) (map[string]CachedEntry, error)
	Resolve(infoHash string, fileIndex int) (string, error)
	GetCatalog(skip int) ([]model.MetaPreview, error)
	GetItemMeta(itemID string) (*model.MetaItem, error)
}

// Descriptor is the static registration record for one provider.
type Descriptor struct {
	Key       string
	Name      string
	ShortName string
	Catalog   bool

	New func(apiKey string, ipAddress string) Provider
}

// Registry holds the provider descriptors in declaration order. The order is
// significant: the aggregator folds providers in this order, so a later
// provider overwrites an earlier one for the same candidate slot.
type Registry struct {
	order []Descriptor
	byKey map[string]Descriptor
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{
		byKey: make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, exists := r.byKey[d.Key]; exists {
			continue
		}
		r.order = append(r.order, d)
		r.byKey[d.Key] = d
	}
	return r
}

func (r *Registry) Get(key string) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

func (r *Registry) All() []Descriptor {
	return r.order
}

// Config carries one request's provider credentials and link-building options.
type Config struct {
	Keys                 map[string]string
	Host                 string
	ClientIP             string
	Skip                 int
	IncludeTorrentLinks  bool
	ExcludeDownloadLinks bool
}

func (c Config) APIKey(providerKey string) string {
	return c.Keys[providerKey]
}

// Engine is the public surface of the aggregation-and-resolution core.
type Engine struct {
	registry *Registry
	guard    *CredentialGuard
	resolver *Resolver
}

func NewEngine(registry *Registry, guard *CredentialGuard, cache ResultCache) *Engine {
	return &Engine{
		registry: registry,
		guard:    guard,
		resolver: newResolver(registry, guard, cache),
	}
}

// HasProviderConfigured reports whether the config carries a credential for
// at least one registered provider.
func (e *Engine) HasProviderConfigured(cfg Config) bool {
	for _, d := range e.registry.All() {
		if cfg.APIKey(d.Key) != "" {
			return true
		}
	}
	return false
}

// Descriptors returns every registered provider descriptor in fold order.
func (e *Engine) Descriptors() []Descriptor {
	return e.registry.All()
}

// ConfiguredCatalogs returns the catalog-capable providers the given
// credential set can actually use, in registration order.
func (e *Engine) ConfiguredCatalogs(keys map[string]string) []Descriptor {
	var descriptors []Descriptor
	for _, d := range e.registry.All() {
		if d.Catalog && keys[d.Key] != "" {
			descriptors = append(descriptors, d)
		}
	}
	return descriptors
}

// Resolve routes a single (provider, credential, torrent, file) tuple through
// the single-flight resolver. It fails only on malformed input; provider
// failures degrade to a sentinel video URL.
func (e *Engine) Resolve(req ResolveRequest) (string, error) {
	return e.resolver.Resolve(req)
}

// GetCatalog lists the provider's own hosted items. Unlike aggregation, a
// direct provider operation surfaces every failure to the caller.
func (e *Engine) GetCatalog(providerKey string, cfg Config) ([]model.MetaPreview, error) {
	descriptor, ok := e.registry.Get(providerKey)
	if !ok {
		return nil, fmt.Errorf("moch: unknown provider %q", providerKey)
	}
	if !descriptor.Catalog {
		return nil, fmt.Errorf("moch: provider %q has no catalog", providerKey)
	}

	apiKey := cfg.APIKey(providerKey)
	if !e.guard.IsValid(apiKey, providerKey) {
		return nil, ErrInvalidCredentials
	}

	items, err := descriptor.New(apiKey, cfg.ClientIP).GetCatalog(cfg.Skip)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].ID = descriptor.Key + ":" + items[i].ID
	}
	return items, nil
}

// GetItemMeta fetches one hosted item's meta and rewrites its provider-local
// stream URLs into fully-qualified resolve endpoints.
func (e *Engine) GetItemMeta(providerKey string, itemID string, cfg Config) (*model.MetaItem, error) {
	descriptor, ok := e.registry.Get(providerKey)
	if !ok {
		return nil, fmt.Errorf("moch: unknown provider %q", providerKey)
	}

	apiKey := cfg.APIKey(providerKey)
	if !e.guard.IsValid(apiKey, providerKey) {
		return nil, ErrInvalidCredentials
	}

	item, err := descriptor.New(apiKey, cfg.ClientIP).GetItemMeta(itemID)
	if err != nil {
		return nil, err
	}

	item.ID = descriptor.Key + ":" + item.ID
	for vi := range item.Videos {
		for si := range item.Videos[vi].Streams {
			stream := &item.Videos[vi].Streams[si]
			if stream.URL != "" && !isAbsoluteURL(stream.URL) {
				stream.URL = resolveURL(cfg.Host, descriptor.Key, stream.URL)
			}
		}
	}
	return item, nil
}

func resolveURL(host string, providerKey string, localPath string) string {
	return fmt.Sprintf("%s/resolve/%s/%s", host, providerKey, localPath)
}

func isAbsoluteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
