package moch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbytex91/debridx/internal/cache"
	"github.com/dbytex91/debridx/internal/model"
)

const testAPIKey = "valid-key-0123456789"

type fakeProvider struct {
	entries      map[string]CachedEntry
	lookupErr    error
	resolved     string
	resolveErr   error
	resolveDelay time.Duration
	catalog      []model.MetaPreview
	meta         *model.MetaItem
	opErr        error

	lookupCalls  atomic.Int32
	resolveCalls atomic.Int32
}

func (p *fakeProvider) GetCachedStreams(streams []model.StreamItem) (map[string]CachedEntry, error) {
	p.lookupCalls.Add(1)
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	return p.entries, nil
}

func (p *fakeProvider) Resolve(infoHash string, fileIndex int) (string, error) {
	p.resolveCalls.Add(1)
	if p.resolveDelay > 0 {
		time.Sleep(p.resolveDelay)
	}
	return p.resolved, p.resolveErr
}

func (p *fakeProvider) GetCatalog(skip int) ([]model.MetaPreview, error) {
	return p.catalog, p.opErr
}

func (p *fakeProvider) GetItemMeta(itemID string) (*model.MetaItem, error) {
	return p.meta, p.opErr
}

func fakeDescriptor(key string, shortName string, provider Provider) Descriptor {
	return Descriptor{
		Key:       key,
		Name:      "FakeDebrid",
		ShortName: shortName,
		Catalog:   true,
		New: func(apiKey string, ipAddress string) Provider {
			return provider
		},
	}
}

func newTestEngine(descriptors ...Descriptor) *Engine {
	return NewEngine(NewRegistry(descriptors...), NewCredentialGuard(), cache.New(1024*1024, 60))
}

func TestRegistryKeepsDeclarationOrder(t *testing.T) {
	registry := NewRegistry(
		fakeDescriptor("first", "F1", &fakeProvider{}),
		fakeDescriptor("second", "S2", &fakeProvider{}),
		fakeDescriptor("first", "DUP", &fakeProvider{}),
	)

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Key)
	assert.Equal(t, "second", all[1].Key)
	assert.Equal(t, "F1", all[0].ShortName)

	_, found := registry.Get("second")
	assert.True(t, found)
	_, found = registry.Get("missing")
	assert.False(t, found)
}

func TestHasProviderConfigured(t *testing.T) {
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}))

	assert.False(t, engine.HasProviderConfigured(Config{}))
	assert.False(t, engine.HasProviderConfigured(Config{Keys: map[string]string{"other": testAPIKey}}))
	assert.True(t, engine.HasProviderConfigured(Config{Keys: map[string]string{"fake": testAPIKey}}))
}

func TestConfiguredCatalogs(t *testing.T) {
	noCatalog := fakeDescriptor("nocat", "NC", &fakeProvider{})
	noCatalog.Catalog = false
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}), noCatalog)

	descriptors := engine.ConfiguredCatalogs(map[string]string{
		"fake":  testAPIKey,
		"nocat": testAPIKey,
	})
	require.Len(t, descriptors, 1)
	assert.Equal(t, "fake", descriptors[0].Key)

	assert.Empty(t, engine.ConfiguredCatalogs(map[string]string{}))
}

func TestGetCatalogPrefixesItemIDs(t *testing.T) {
	provider := &fakeProvider{
		catalog: []model.MetaPreview{
			{ID: "abc123", Type: "other", Name: "Movie One"},
			{ID: "def456", Type: "other", Name: "Movie Two"},
		},
	}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))

	items, err := engine.GetCatalog("fake", Config{Keys: map[string]string{"fake": testAPIKey}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "fake:abc123", items[0].ID)
	assert.Equal(t, "fake:def456", items[1].ID)
}

func TestGetCatalogRejectsUnknownProvider(t *testing.T) {
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}))

	_, err := engine.GetCatalog("missing", Config{Keys: map[string]string{"missing": testAPIKey}})
	assert.Error(t, err)
}

func TestGetCatalogRejectsProviderWithoutCatalog(t *testing.T) {
	descriptor := fakeDescriptor("fake", "FK", &fakeProvider{})
	descriptor.Catalog = false
	engine := newTestEngine(descriptor)

	_, err := engine.GetCatalog("fake", Config{Keys: map[string]string{"fake": testAPIKey}})
	assert.Error(t, err)
}

func TestGetCatalogRejectsMalformedKey(t *testing.T) {
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}))

	_, err := engine.GetCatalog("fake", Config{Keys: map[string]string{"fake": "short"}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, isAbsoluteURL("http://x"))
	assert.True(t, isAbsoluteURL("https://cdn.example.com/file.mp4"))
	assert.False(t, isAbsoluteURL("apikey/deadbeef/1"))
	assert.False(t, isAbsoluteURL("httpfiles/deadbeef/1"))
}

func TestGetItemMetaRewritesRelativeStreamURLs(t *testing.T) {
	provider := &fakeProvider{
		meta: &model.MetaItem{
			ID:   "abc123",
			Type: "other",
			Name: "Movie One",
			Videos: []model.MetaVideo{{
				ID:    "abc123:1",
				Title: "Movie.One.mkv",
				Streams: []model.StreamItem{
					{URL: "apikey/deadbeef/1"},
					{URL: "https://cdn.example.com/direct.mp4"},
				},
			}},
		},
	}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))

	item, err := engine.GetItemMeta("fake", "abc123", Config{
		Keys: map[string]string{"fake": testAPIKey},
		Host: "https://addon.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "fake:abc123", item.ID)
	assert.Equal(t, "https://addon.example.com/resolve/fake/apikey/deadbeef/1", item.Videos[0].Streams[0].URL)
	assert.Equal(t, "https://cdn.example.com/direct.mp4", item.Videos[0].Streams[1].URL)
}
