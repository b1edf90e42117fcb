// Package alldebrid implements the moch capability set against the
// AllDebrid v4 API.
package alldebrid

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/model"
)

const agentName = "debridx"

var ErrNoLinkFound = errors.New("alldebrid: no link found")

func Descriptor() moch.Descriptor {
	return moch.Descriptor{
		Key:       "alldebrid",
		Name:      "AllDebrid",
		ShortName: "AD",
		Catalog:   true,
		New: func(apiKey string, ipAddress string) moch.Provider {
			return New(apiKey, ipAddress)
		},
	}
}

type AllDebrid struct {
	client *resty.Client
	apiKey string
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("alldebrid: [%s] %s", e.Code, e.Message)
}

type envelope struct {
	Status string    `json:"status"`
	Error  *apiError `json:"error"`
}

type magnetFile struct {
	Name string `json:"n"`
	Size uint64 `json:"s"`
}

type magnetLink struct {
	Link     string `json:"link"`
	FileName string `json:"filename"`
	Size     uint64 `json:"size"`
}

type magnet struct {
	ID       int64        `json:"id"`
	Hash     string       `json:"hash"`
	FileName string       `json:"filename"`
	Status   string       `json:"status"`
	Instant  bool         `json:"instant"`
	Files    []magnetFile `json:"files"`
	Links    []magnetLink `json:"links"`
}

func New(apiKey string, ipAddress string) *AllDebrid {
	client := resty.New().
		SetBaseURL("https://api.alldebrid.com/v4").
		SetQueryParam("agent", agentName).
		SetQueryParam("apikey", apiKey)

	if ipAddress != "" {
		client.SetQueryParam("ip", ipAddress)
	}

	return &AllDebrid{
		client: client,
		apiKey: apiKey,
	}
}

func (ad *AllDebrid) GetCachedStreams(streams []model.StreamItem) (map[string]moch.CachedEntry, error) {
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
		Data struct {
			Magnets []magnet `json:"magnets"`
		} `json:"data"`
	}{}

	params := url.Values{}
	for _, infoHash := range infoHashes {
		params.Add("magnets[]", infoHash)
	}

	request := ad.client.R().
		SetResult(&result).
		SetQueryParamsFromValues(params)
	if _, err := request.Get("/magnet/instant"); err != nil {
		return nil, err
	}
	if err := classify(result.envelope); err != nil {
		return nil, err
	}

	entries := map[string]moch.CachedEntry{}
	for _, m := range result.Data.Magnets {
		if !m.Instant {
			continue
		}

		entries[m.Hash] = moch.CachedEntry{
			Cached: true,
			URL:    fmt.Sprintf("%s/%s/%d", url.PathEscape(ad.apiKey), m.Hash, largestVideoIndex(m.Files)),
		}
	}

	return entries, nil
}

// Resolve uploads the magnet, waits for no one: if AllDebrid has not finished
// the torrent the not-ready outcome is reported and the caller retries later.
func (ad *AllDebrid) Resolve(infoHash string, fileIndex int) (string, error) {
	magnetID, err := ad.uploadMagnet(infoHash)
	if err != nil {
		return "", err
	}

	m, err := ad.magnetStatus(magnetID)
	if err != nil {
		return "", err
	}

	if m.Status != "Ready" {
		return "", moch.ErrNotReady
	}

	link := pickLink(m.Links, fileIndex)
	if link == nil {
		return "", ErrNoLinkFound
	}

	if moch.IsRarFile(link.FileName) {
		return "", moch.ErrRarArchive
	}

	return ad.unlock(link.Link)
}

func (ad *AllDebrid) GetCatalog(skip int) ([]model.MetaPreview, error) {
	magnets, err := ad.allMagnets()
	if err != nil {
		return nil, err
	}

	items := make([]model.MetaPreview, 0, len(magnets))
	for _, m := range magnets {
		if m.Status != "Ready" {
			continue
		}

		items = append(items, model.MetaPreview{
			ID:   strconv.FormatInt(m.ID, 10),
			Type: "other",
			Name: m.FileName,
		})
	}

	if skip >= len(items) {
		return []model.MetaPreview{}, nil
	}
	return items[skip:], nil
}

func (ad *AllDebrid) GetItemMeta(itemID string) (*model.MetaItem, error) {
	magnetID, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("alldebrid: invalid item id %q", itemID)
	}

	m, err := ad.magnetStatus(magnetID)
	if err != nil {
		return nil, err
	}

	item := &model.MetaItem{
		ID:   itemID,
		Type: "other",
		Name: m.FileName,
	}

	for i, link := range m.Links {
		if !moch.IsVideoFile(link.FileName) {
			continue
		}

		item.Videos = append(item.Videos, model.MetaVideo{
			ID:    fmt.Sprintf("%s:%d", itemID, i),
			Title: link.FileName,
			Streams: []model.StreamItem{{
				Title: link.FileName,
				URL:   fmt.Sprintf("%s/%s/%d", url.PathEscape(ad.apiKey), m.Hash, i),
			}},
		})
	}

	return item, nil
}

func (ad *AllDebrid) uploadMagnet(infoHash string) (int64, error) {
	result := struct {
		envelope
		Data struct {
			Magnets []magnet `json:"magnets"`
		} `json:"data"`
	}{}

	_, err := ad.client.R().
		SetQueryParamsFromValues(url.Values{"magnets[]": {"magnet:?xt=urn:btih:" + infoHash}}).
		SetResult(&result).
		Get("/magnet/upload")
	if err != nil {
		return 0, err
	}
	if err := classify(result.envelope); err != nil {
		return 0, err
	}

	if len(result.Data.Magnets) == 0 {
		return 0, errors.New("alldebrid: magnet upload returned nothing")
	}
	return result.Data.Magnets[0].ID, nil
}

func (ad *AllDebrid) magnetStatus(magnetID int64) (*magnet, error) {
	result := struct {
		envelope
		Data struct {
			Magnets magnet `json:"magnets"`
		} `json:"data"`
	}{}

	_, err := ad.client.R().
		SetQueryParam("id", strconv.FormatInt(magnetID, 10)).
		SetResult(&result).
		Get("/magnet/status")
	if err != nil {
		return nil, err
	}
	if err := classify(result.envelope); err != nil {
		return nil, err
	}

	return &result.Data.Magnets, nil
}

func (ad *AllDebrid) allMagnets() ([]magnet, error) {
	result := struct {
		envelope
		Data struct {
			Magnets []magnet `json:"magnets"`
		} `json:"data"`
	}{}

	_, err := ad.client.R().
		SetResult(&result).
		Get("/magnet/status")
	if err != nil {
		return nil, err
	}
	if err := classify(result.envelope); err != nil {
		return nil, err
	}

	return result.Data.Magnets, nil
}

func (ad *AllDebrid) unlock(hosterLink string) (string, error) {
	result := struct {
		envelope
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}{}

	_, err := ad.client.R().
		SetQueryParam("link", hosterLink).
		SetResult(&result).
		Get("/link/unlock")
	if err != nil {
		return "", err
	}
	if err := classify(result.envelope); err != nil {
		return "", err
	}

	return result.Data.Link, nil
}

func classify(env envelope) error {
	if env.Status != "error" || env.Error == nil {
		return nil
	}

	switch env.Error.Code {
	case "AUTH_MISSING_APIKEY", "AUTH_BAD_APIKEY", "AUTH_BLOCKED":
		return fmt.Errorf("%w: %s", moch.ErrInvalidCredentials, env.Error.Message)
	case "AUTH_USER_BANNED", "MUST_BE_PREMIUM", "FREE_TRIAL_LIMIT_REACHED":
		return fmt.Errorf("%w: %s", moch.ErrAccessDenied, env.Error.Message)
	default:
		return env.Error
	}
}

func pickLink(links []magnetLink, fileIndex int) *magnetLink {
	if fileIndex >= 0 && fileIndex < len(links) {
		return &links[fileIndex]
	}

	var best *magnetLink
	for i, link := range links {
		if !moch.IsVideoFile(link.FileName) {
			continue
		}

		if best == nil || best.Size < link.Size {
			best = &links[i]
		}
	}
	return best
}

func largestVideoIndex(files []magnetFile) int {
	index := 0
	var bestSize uint64
	for i, f := range files {
		if !moch.IsVideoFile(f.Name) {
			continue
		}

		if f.Size >= bestSize {
			bestSize = f.Size
			index = i
		}
	}
	return index
}
