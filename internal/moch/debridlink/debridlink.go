// Package debridlink implements the moch capability set against the
// Debrid-Link v2 API.
package debridlink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/model"
)

var ErrNoFileFound = errors.New("debridlink: no file found")

func Descriptor() moch.Descriptor {
	return moch.Descriptor{
		Key:       "debridlink",
		Name:      "DebridLink",
		ShortName: "DL",
		Catalog:   true,
		New: func(apiKey string, ipAddress string) moch.Provider {
			return New(apiKey, ipAddress)
		},
	}
}

type DebridLink struct {
	client *resty.Client
	apiKey string
}

type envelope struct {
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

type seedboxFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        uint64 `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

type seedboxTorrent struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	HashString      string        `json:"hashString"`
	DownloadPercent float64       `json:"downloadPercent"`
	Files           []seedboxFile `json:"files"`
}

type cachedTorrent struct {
	Name  string `json:"name"`
	Files []struct {
		Name string `json:"name"`
		Size uint64 `json:"size"`
	} `json:"files"`
}

func New(apiKey string, ipAddress string) *DebridLink {
	client := resty.New().
		SetBaseURL("https://debrid-link.com/api/v2").
		SetAuthScheme("Bearer").
		SetAuthToken(apiKey)

	if ipAddress != "" {
		client.SetHeader("X-Forwarded-For", ipAddress)
	}

	return &DebridLink{
		client: client,
		apiKey: apiKey,
	}
}

func (dl *DebridLink) GetCachedStreams(streams []model.StreamItem) (map[string]moch.CachedEntry, error) {
	infoHashes := make([]string, 0, len(streams))
	for _, stream := range streams {
		if stream.InfoHash != "" {
			infoHashes = append(infoHashes, stream.InfoHash)
		}
	}
	if len(infoHashes) == 0 {
		return map[string]moch.CachedEntry{}, nil
	}

	result := struct {
		envelope
		Value map[string]cachedTorrent `json:"value"`
	}{}

	_, err := dl.client.R().
		SetQueryParam("url", strings.Join(infoHashes, ",")).
		SetResult(&result).
		Get("/seedbox/cached")
	if err != nil {
		return nil, err
	}
	if err := classify(result.envelope); err != nil {
		return nil, err
	}

	entries := map[string]moch.CachedEntry{}
	for infoHash := range result.Value {
		entries[infoHash] = moch.CachedEntry{
			Cached: true,
			URL:    fmt.Sprintf("%s/%s", url.PathEscape(dl.apiKey), infoHash),
		}
	}

	return entries, nil
}

func (dl *DebridLink) Resolve(infoHash string, fileIndex int) (string, error) {
	torrents, err := dl.seedboxList()
	if err != nil {
		return "", err
	}

	var target *seedboxTorrent
	for i, t := range torrents {
		if strings.EqualFold(t.HashString, infoHash) {
			target = &torrents[i]
			break
		}
	}

	if target == nil {
		if err := dl.addMagnet(infoHash); err != nil {
			return "", err
		}
		return "", moch.ErrNotReady
	}

	if target.DownloadPercent < 100 {
		return "", moch.ErrNotReady
	}

	file := pickFile(target.Files, fileIndex)
	if file == nil {
		return "", ErrNoFileFound
	}

	if moch.IsRarFile(file.Name) {
		return "", moch.ErrRarArchive
	}

	return file.DownloadURL, nil
}

func (dl *DebridLink) GetCatalog(skip int) ([]model.MetaPreview, error) {
	torrents, err := dl.seedboxList()
	if err != nil {
		return nil, err
	}

	items := make([]model.MetaPreview, 0, len(torrents))
	for _, t := range torrents {
		if t.DownloadPercent < 100 {
			continue
		}

		items = append(items, model.MetaPreview{
			ID:   t.ID,
			Type: "other",
			Name: t.Name,
		})
	}

	if skip >= len(items) {
		return []model.MetaPreview{}, nil
	}
	return items[skip:], nil
}

func (dl *DebridLink) GetItemMeta(itemID string) (*model.MetaItem, error) {
	torrents, err := dl.seedboxList()
	if err != nil {
		return nil, err
	}

	var target *seedboxTorrent
	for i, t := range torrents {
		if t.ID == itemID {
			target = &torrents[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("debridlink: unknown item %q", itemID)
	}

	item := &model.MetaItem{
		ID:   target.ID,
		Type: "other",
		Name: target.Name,
	}

	for i, f := range target.Files {
		if !moch.IsVideoFile(f.Name) {
			continue
		}

		item.Videos = append(item.Videos, model.MetaVideo{
			ID:    fmt.Sprintf("%s:%s", target.ID, f.ID),
			Title: f.Name,
			Streams: []model.StreamItem{{
				Title: f.Name,
				URL:   fmt.Sprintf("%s/%s/%d", url.PathEscape(dl.apiKey), target.HashString, i),
			}},
		})
	}

	return item, nil
}

func (dl *DebridLink) seedboxList() ([]seedboxTorrent, error) {
	result := struct {
		envelope
		Value []seedboxTorrent `json:"value"`
	}{}

	_, err := dl.client.R().
		SetResult(&result).
		Get("/seedbox/list")
	if err != nil {
		return nil, err
	}
	if err := classify(result.envelope); err != nil {
		return nil, err
	}

	return result.Value, nil
}

func (dl *DebridLink) addMagnet(infoHash string) error {
	result := struct {
		envelope
		Value seedboxTorrent `json:"value"`
	}{}

	_, err := dl.client.R().
		SetFormData(map[string]string{
			"url":   "magnet:?xt=urn:btih:" + infoHash,
			"async": "true",
		}).
		SetResult(&result).
		Post("/seedbox/add")
	if err != nil {
		return err
	}

	return classify(result.envelope)
}

func classify(env envelope) error {
	if env.Success {
		return nil
	}

	switch env.Err {
	case "badToken", "authorization":
		return fmt.Errorf("%w: %s", moch.ErrInvalidCredentials, env.Err)
	case "accountLocked", "maxTorrent", "floodDetected", "freeServerOverload":
		return fmt.Errorf("%w: %s", moch.ErrAccessDenied, env.Err)
	default:
		return fmt.Errorf("debridlink: %s", env.Err)
	}
}

func pickFile(files []seedboxFile, fileIndex int) *seedboxFile {
	if fileIndex >= 0 && fileIndex < len(files) {
		return &files[fileIndex]
	}

	var best *seedboxFile
	for i, f := range files {
		if !moch.IsVideoFile(f.Name) {
			continue
		}

		if best == nil || best.Size < f.Size {
			best = &files[i]
		}
	}
	return best
}
