package moch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dbytex91/debridx/internal/model"
	"github.com/gofiber/fiber/v2/log"
)

// smallPoolSize is the candidate count at or below which zero-seeder torrents
// are still offered as download targets. A short list should present
// low-confidence options rather than nothing.
const smallPoolSize = 5

var seedersPattern = regexp.MustCompile(`👤 (\d+)`)

type lookupOutcome struct {
	descriptor Descriptor
	entries    map[string]CachedEntry
	err        error
}

// ApplyProviders folds every configured provider's cached-availability data
// into the candidate list. Candidates a provider has cached are replaced with
// provider-hosted links, uncached-but-viable candidates gain download
// initiation links, and provider credential failures replace the whole list
// with placeholder streams.
func (e *Engine) ApplyProviders(streams []model.StreamItem, cfg Config) []model.StreamItem {
	if len(streams) == 0 || !e.HasProviderConfigured(cfg) {
		return streams
	}

	outcomes := e.fetchCachedStreams(streams, cfg)
	e.blacklistFailures(outcomes, cfg)

	if placeholders := e.classifyFailures(outcomes, cfg.Host); len(placeholders) > 0 {
		return placeholders
	}

	merged := make([]model.StreamItem, len(streams))
	copy(merged, streams)

	cached := map[string]bool{}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			continue
		}

		for i, stream := range streams {
			if stream.InfoHash == "" {
				continue
			}

			entry, found := outcome.entries[stream.InfoHash]
			if !found || !entry.Cached {
				continue
			}

			cached[stream.InfoHash] = true
			merged[i] = hostedStream(stream, outcome.descriptor, entry, cfg.Host)
		}
	}

	if !cfg.ExcludeDownloadLinks {
		merged = append(merged, e.downloadStreams(streams, outcomes, cached, cfg)...)
	}

	if cfg.IncludeTorrentLinks {
		return merged
	}

	playable := make([]model.StreamItem, 0, len(merged))
	for _, stream := range merged {
		if stream.URL != "" {
			playable = append(playable, stream)
		}
	}
	return playable
}

// fetchCachedStreams issues the availability lookups concurrently but returns
// the outcomes in registry declaration order, so the fold stays deterministic.
func (e *Engine) fetchCachedStreams(streams []model.StreamItem, cfg Config) []lookupOutcome {
	configured := make([]Descriptor, 0, len(e.registry.All()))
	for _, descriptor := range e.registry.All() {
		if cfg.APIKey(descriptor.Key) != "" {
			configured = append(configured, descriptor)
		}
	}

	outcomes := make([]lookupOutcome, len(configured))
	wg := &sync.WaitGroup{}
	for i, descriptor := range configured {
		wg.Add(1)
		go func(i int, descriptor Descriptor) {
			defer wg.Done()

			apiKey := cfg.APIKey(descriptor.Key)
			if !e.guard.IsValid(apiKey, descriptor.Key) {
				outcomes[i] = lookupOutcome{descriptor: descriptor, err: ErrInvalidCredentials}
				return
			}

			entries, err := descriptor.New(apiKey, cfg.ClientIP).GetCachedStreams(streams)
			outcomes[i] = lookupOutcome{descriptor: descriptor, entries: entries, err: err}
		}(i, descriptor)
	}
	wg.Wait()

	return outcomes
}

// classifyFailures turns credential failures into user-visible placeholder
// streams. Any classifiable failure discards the successful results: a list
// mixing real streams with a broken provider would read as if everything were
// fine. Unclassifiable failures only cost that provider's contribution.
func (e *Engine) classifyFailures(outcomes []lookupOutcome, host string) []model.StreamItem {
	placeholders := []model.StreamItem{}
	for _, outcome := range outcomes {
		if outcome.err == nil {
			continue
		}

		if placeholder, classified := classifyError(outcome.descriptor, outcome.err, host); classified {
			placeholders = append(placeholders, placeholder)
		} else {
			log.Errorf("Failed to load cached streams from %s: %v", outcome.descriptor.Name, outcome.err)
		}
	}
	return placeholders
}

func (e *Engine) downloadStreams(streams []model.StreamItem, outcomes []lookupOutcome, cached map[string]bool, cfg Config) []model.StreamItem {
	downloads := []model.StreamItem{}
	for _, stream := range streams {
		if stream.InfoHash == "" || cached[stream.InfoHash] {
			continue
		}

		if !downloadViable(stream, len(streams)) {
			continue
		}

		for _, outcome := range outcomes {
			if outcome.err != nil {
				continue
			}

			download := stream
			download.InfoHash = ""
			download.FileIndex = 0
			download.Name = fmt.Sprintf("[%s download] %s", outcome.descriptor.ShortName, stream.Name)
			download.URL = resolveURL(cfg.Host, outcome.descriptor.Key,
				fmt.Sprintf("%s/%s", url.PathEscape(cfg.APIKey(outcome.descriptor.Key)), stream.InfoHash))
			downloads = append(downloads, download)
		}
	}
	return downloads
}

func hostedStream(stream model.StreamItem, descriptor Descriptor, entry CachedEntry, host string) model.StreamItem {
	hosted := stream
	hosted.InfoHash = ""
	hosted.FileIndex = 0
	hosted.Name = fmt.Sprintf("[%s+] %s", descriptor.ShortName, stream.Name)
	hosted.URL = resolveURL(host, descriptor.Key, entry.URL)
	return hosted
}

// downloadViable excludes dead torrents from download synthesis. Zero-seeder
// entries stay in when they are 4K or the whole pool is small.
func downloadViable(stream model.StreamItem, poolSize int) bool {
	if seeders(stream) > 0 {
		return true
	}

	return strings.Contains(stream.Name, "4K") || poolSize <= smallPoolSize
}

func seeders(stream model.StreamItem) int {
	match := seedersPattern.FindStringSubmatch(stream.Title)
	if match == nil {
		return 0
	}

	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return count
}

// blacklistFailures records rejected credentials so later requests skip the
// provider without a network call.
func (e *Engine) blacklistFailures(outcomes []lookupOutcome, cfg Config) {
	for _, outcome := range outcomes {
		if errors.Is(outcome.err, ErrInvalidCredentials) {
			e.guard.Blacklist(cfg.APIKey(outcome.descriptor.Key), outcome.descriptor.Key)
		}
	}
}
