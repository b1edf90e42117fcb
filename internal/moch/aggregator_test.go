package moch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbytex91/debridx/internal/model"
)

const (
	hashOne = "1111111111111111111111111111111111111111"
	hashTwo = "2222222222222222222222222222222222222222"
)

func testConfig(keys map[string]string) Config {
	return Config{
		Keys:     keys,
		Host:     testHost,
		ClientIP: "203.0.113.7",
	}
}

func torrentStream(infoHash string, name string, seeders int) model.StreamItem {
	return model.StreamItem{
		InfoHash: infoHash,
		Name:     name,
		Title:    fmt.Sprintf("Some.Movie.2019.1080p\n👤 %d | 💾 2 GB\n🔍 Indexer", seeders),
	}
}

func TestApplyProvidersWithoutConfigIsIdentity(t *testing.T) {
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}))
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(nil))

	assert.Equal(t, streams, result)
}

func TestApplyProvidersEmptyInput(t *testing.T) {
	engine := newTestEngine(fakeDescriptor("fake", "FK", &fakeProvider{}))

	result := engine.ApplyProviders([]model.StreamItem{}, testConfig(map[string]string{"fake": testAPIKey}))

	assert.Empty(t, result)
}

func TestApplyProvidersRebrandsCachedStreams(t *testing.T) {
	provider := &fakeProvider{
		entries: map[string]CachedEntry{
			hashOne: {Cached: true, URL: "apikey/" + hashOne + "/1"},
		},
	}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))

	require.Len(t, result, 1)
	assert.Equal(t, "[FK+] DebridX\n[1080p]", result[0].Name)
	assert.Equal(t, testHost+"/resolve/fake/apikey/"+hashOne+"/1", result[0].URL)
	assert.Empty(t, result[0].InfoHash)
	assert.Equal(t, streams[0].Title, result[0].Title)
}

func TestApplyProvidersLastProviderWinsPerSlot(t *testing.T) {
	entry := CachedEntry{Cached: true, URL: "apikey/" + hashOne + "/1"}
	first := &fakeProvider{entries: map[string]CachedEntry{hashOne: entry}}
	second := &fakeProvider{entries: map[string]CachedEntry{hashOne: entry}}
	engine := newTestEngine(
		fakeDescriptor("first", "P1", first),
		fakeDescriptor("second", "P2", second),
	)
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{
		"first":  testAPIKey,
		"second": testAPIKey,
	}))

	require.Len(t, result, 1)
	assert.Equal(t, "[P2+] DebridX\n[1080p]", result[0].Name)
	assert.Contains(t, result[0].URL, "/resolve/second/")
}

func TestApplyProvidersInvalidCredentialsShortCircuit(t *testing.T) {
	broken := &fakeProvider{lookupErr: fmt.Errorf("wrapped: %w", ErrInvalidCredentials)}
	healthy := &fakeProvider{
		entries: map[string]CachedEntry{
			hashOne: {Cached: true, URL: "apikey/" + hashOne + "/1"},
		},
	}
	engine := newTestEngine(
		fakeDescriptor("broken", "BR", broken),
		fakeDescriptor("healthy", "HL", healthy),
	)
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{
		"broken":  testAPIKey,
		"healthy": "another-valid-key-456",
	}))

	require.Len(t, result, 1)
	assert.Equal(t, "DebridX\nBR error", result[0].Name)
	assert.Equal(t, "Invalid FakeDebrid credential!", result[0].Title)
	assert.Equal(t, testHost+FailedAccess, result[0].URL)
}

func TestApplyProvidersInvalidCredentialsAreBlacklisted(t *testing.T) {
	provider := &fakeProvider{lookupErr: ErrInvalidCredentials}
	guard := NewCredentialGuard()
	engine := NewEngine(NewRegistry(fakeDescriptor("fake", "FK", provider)), guard, nil)
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))
	assert.False(t, guard.IsValid(testAPIKey, "fake"))

	// The second pass never reaches the provider.
	engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))
	assert.Equal(t, int32(1), provider.lookupCalls.Load())
}

func TestApplyProvidersAccessDeniedPlaceholder(t *testing.T) {
	provider := &fakeProvider{lookupErr: ErrAccessDenied}
	guard := NewCredentialGuard()
	engine := NewEngine(NewRegistry(fakeDescriptor("fake", "FK", provider)), guard, nil)
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))

	require.Len(t, result, 1)
	assert.Equal(t, "Expired/invalid FakeDebrid subscription!", result[0].Title)
	assert.True(t, guard.IsValid(testAPIKey, "fake"))
}

func TestApplyProvidersDropsUnclassifiedFailures(t *testing.T) {
	flaky := &fakeProvider{lookupErr: errors.New("connection reset")}
	healthy := &fakeProvider{
		entries: map[string]CachedEntry{
			hashOne: {Cached: true, URL: "apikey/" + hashOne + "/1"},
		},
	}
	engine := newTestEngine(
		fakeDescriptor("flaky", "FL", flaky),
		fakeDescriptor("healthy", "HL", healthy),
	)
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{
		"flaky":   testAPIKey,
		"healthy": "another-valid-key-456",
	}))

	require.Len(t, result, 1)
	assert.Equal(t, "[HL+] DebridX\n[1080p]", result[0].Name)
}

func TestApplyProvidersSynthesizesDownloadLinks(t *testing.T) {
	provider := &fakeProvider{entries: map[string]CachedEntry{}}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{
		torrentStream(hashOne, "DebridX\n[1080p]", 12),
		torrentStream(hashTwo, "DebridX\n[720p]", 5),
	}

	apiKey := "key with spaces 0123"
	result := engine.ApplyProviders(streams, testConfig(map[string]string{"fake": apiKey}))

	require.Len(t, result, 2)
	assert.Equal(t, "[FK download] DebridX\n[1080p]", result[0].Name)
	assert.Equal(t, testHost+"/resolve/fake/key%20with%20spaces%200123/"+hashOne, result[0].URL)
	assert.Empty(t, result[0].InfoHash)
	assert.Equal(t, "[FK download] DebridX\n[720p]", result[1].Name)
}

func TestApplyProvidersZeroSeedersDroppedFromLargePool(t *testing.T) {
	provider := &fakeProvider{entries: map[string]CachedEntry{}}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))

	streams := []model.StreamItem{
		torrentStream("aaa0000000000000000000000000000000000000", "DebridX\n[1080p] A", 0),
		torrentStream("bbb0000000000000000000000000000000000000", "DebridX\n[4K] B", 0),
	}
	for i := 0; i < 4; i++ {
		streams = append(streams, torrentStream(
			fmt.Sprintf("ccc000000000000000000000000000000000000%d", i),
			fmt.Sprintf("DebridX\n[720p] C%d", i), 3))
	}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))

	require.Len(t, result, 5)
	for _, stream := range result {
		assert.NotContains(t, stream.Name, "[1080p] A", "dead torrent should not get a download link")
	}
	assert.Equal(t, "[FK download] DebridX\n[4K] B", result[0].Name)
}

func TestApplyProvidersZeroSeedersKeptInSmallPool(t *testing.T) {
	provider := &fakeProvider{entries: map[string]CachedEntry{}}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{
		torrentStream(hashOne, "DebridX\n[1080p]", 0),
		torrentStream(hashTwo, "DebridX\n[720p]", 0),
	}

	result := engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))

	assert.Len(t, result, 2)
}

func TestApplyProvidersExcludeDownloadLinks(t *testing.T) {
	provider := &fakeProvider{entries: map[string]CachedEntry{}}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	cfg := testConfig(map[string]string{"fake": testAPIKey})
	cfg.ExcludeDownloadLinks = true
	result := engine.ApplyProviders(streams, cfg)

	assert.Empty(t, result)
}

func TestApplyProvidersIncludeTorrentLinksKeepsOriginals(t *testing.T) {
	provider := &fakeProvider{entries: map[string]CachedEntry{}}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	cfg := testConfig(map[string]string{"fake": testAPIKey})
	cfg.IncludeTorrentLinks = true
	cfg.ExcludeDownloadLinks = true
	result := engine.ApplyProviders(streams, cfg)

	require.Len(t, result, 1)
	assert.Equal(t, hashOne, result[0].InfoHash)
	assert.Empty(t, result[0].URL)
}

func TestApplyProvidersDoesNotMutateInput(t *testing.T) {
	provider := &fakeProvider{
		entries: map[string]CachedEntry{
			hashOne: {Cached: true, URL: "apikey/" + hashOne + "/1"},
		},
	}
	engine := newTestEngine(fakeDescriptor("fake", "FK", provider))
	streams := []model.StreamItem{torrentStream(hashOne, "DebridX\n[1080p]", 10)}

	engine.ApplyProviders(streams, testConfig(map[string]string{"fake": testAPIKey}))

	assert.Equal(t, hashOne, streams[0].InfoHash)
	assert.Equal(t, "DebridX\n[1080p]", streams[0].Name)
}
