// Package premiumize implements the moch capability set against the
// Premiumize.me API.
package premiumize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/model"
)

var ErrNoContent = errors.New("premiumize: no content found")

func Descriptor() moch.Descriptor {
	return moch.Descriptor{
		Key:       "premiumize",
		Name:      "Premiumize",
		ShortName: "PM",
		Catalog:   true,
		New: func(apiKey string, ipAddress string) moch.Provider {
			return New(apiKey, ipAddress)
		},
	}
}

type Premiumize struct {
	client *resty.Client
	apiKey string
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type cacheCheckResponse struct {
	statusResponse
	Response []bool   `json:"response"`
	Filename []string `json:"filename"`
}

type directDLResponse struct {
	statusResponse
	Content []contentFile `json:"content"`
}

type contentFile struct {
	Path       string `json:"path"`
	Size       uint64 `json:"size"`
	Link       string `json:"link"`
	StreamLink string `json:"stream_link"`
}

type transferListResponse struct {
	statusResponse
	Transfers []transfer `json:"transfers"`
}

type transfer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	FolderID string `json:"folder_id"`
}

type folderListResponse struct {
	statusResponse
	Name    string       `json:"name"`
	Content []folderItem `json:"content"`
}

type folderItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       uint64 `json:"size"`
	Link       string `json:"link"`
	StreamLink string `json:"stream_link"`
}

func New(apiKey string, ipAddress string) *Premiumize {
	client := resty.New().
		SetBaseURL("https://www.premiumize.me/api").
		SetQueryParam("apikey", apiKey)

	if ipAddress != "" {
		client.SetHeader("X-Forwarded-For", ipAddress)
	}

	return &Premiumize{
		client: client,
		apiKey: apiKey,
	}
}

func (pm *Premiumize) GetCachedStreams(streams []model.StreamItem) (map[string]moch.CachedEntry, error) {
	infoHashes := make([]string, 0, len(streams))
	for _, stream := range streams {
		if stream.InfoHash != "" {
			infoHashes = append(infoHashes, stream.InfoHash)
		}
	}
	if len(infoHashes) == 0 {
		return map[string]moch.CachedEntry{}, nil
	}

	params := url.Values{}
	for _, infoHash := range infoHashes {
		params.Add("items[]", infoHash)
	}

	result := &cacheCheckResponse{}
	_, err := pm.client.R().
		SetQueryParamsFromValues(params).
		SetResult(result).
		Get("/cache/check")
	if err != nil {
		return nil, err
	}
	if err := classify(result.statusResponse); err != nil {
		return nil, err
	}

	entries := map[string]moch.CachedEntry{}
	for i, cached := range result.Response {
		if !cached || i >= len(infoHashes) {
			continue
		}

		infoHash := infoHashes[i]
		entries[infoHash] = moch.CachedEntry{
			Cached: true,
			URL:    fmt.Sprintf("%s/%s", url.PathEscape(pm.apiKey), infoHash),
		}
	}

	return entries, nil
}

// Resolve asks for a direct download of the magnet. Premiumize serves cached
// content immediately; anything else is queued as a transfer and reported as
// not ready.
func (pm *Premiumize) Resolve(infoHash string, fileIndex int) (string, error) {
	result := &directDLResponse{}
	_, err := pm.client.R().
		SetFormData(map[string]string{
			"src": "magnet:?xt=urn:btih:" + infoHash,
		}).
		SetResult(result).
		Post("/transfer/directdl")
	if err != nil {
		return "", err
	}
	if err := classify(result.statusResponse); err != nil {
		return "", err
	}

	if len(result.Content) == 0 {
		if err := pm.createTransfer(infoHash); err != nil {
			return "", err
		}
		return "", moch.ErrNotReady
	}

	file := pickContent(result.Content, fileIndex)
	if file == nil {
		return "", ErrNoContent
	}

	if moch.IsRarFile(file.Path) {
		return "", moch.ErrRarArchive
	}

	if file.StreamLink != "" {
		return file.StreamLink, nil
	}
	return file.Link, nil
}

func (pm *Premiumize) GetCatalog(skip int) ([]model.MetaPreview, error) {
	transfers, err := pm.transferList()
	if err != nil {
		return nil, err
	}

	items := make([]model.MetaPreview, 0, len(transfers))
	for _, t := range transfers {
		if t.Status != "finished" {
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

func (pm *Premiumize) GetItemMeta(itemID string) (*model.MetaItem, error) {
	transfers, err := pm.transferList()
	if err != nil {
		return nil, err
	}

	var target *transfer
	for i, t := range transfers {
		if t.ID == itemID {
			target = &transfers[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("premiumize: unknown item %q", itemID)
	}

	item := &model.MetaItem{
		ID:   target.ID,
		Type: "other",
		Name: target.Name,
	}

	if target.FolderID == "" {
		return item, nil
	}

	folder, err := pm.folderList(target.FolderID)
	if err != nil {
		return nil, err
	}

	for _, f := range folder.Content {
		if f.Type != "file" || !moch.IsVideoFile(f.Name) {
			continue
		}

		streamURL := f.StreamLink
		if streamURL == "" {
			streamURL = f.Link
		}

		item.Videos = append(item.Videos, model.MetaVideo{
			ID:    fmt.Sprintf("%s:%s", target.ID, f.ID),
			Title: f.Name,
			Streams: []model.StreamItem{{
				Title: f.Name,
				URL:   streamURL,
			}},
		})
	}

	return item, nil
}

func (pm *Premiumize) createTransfer(infoHash string) error {
	result := &statusResponse{}
	_, err := pm.client.R().
		SetFormData(map[string]string{
			"src": "magnet:?xt=urn:btih:" + infoHash,
		}).
		SetResult(result).
		Post("/transfer/create")
	if err != nil {
		return err
	}

	return classify(*result)
}

func (pm *Premiumize) transferList() ([]transfer, error) {
	result := &transferListResponse{}
	_, err := pm.client.R().
		SetResult(result).
		Get("/transfer/list")
	if err != nil {
		return nil, err
	}
	if err := classify(result.statusResponse); err != nil {
		return nil, err
	}

	return result.Transfers, nil
}

func (pm *Premiumize) folderList(folderID string) (*folderListResponse, error) {
	result := &folderListResponse{}
	_, err := pm.client.R().
		SetQueryParam("id", folderID).
		SetResult(result).
		Get("/folder/list")
	if err != nil {
		return nil, err
	}
	if err := classify(result.statusResponse); err != nil {
		return nil, err
	}

	return result, nil
}

func classify(status statusResponse) error {
	if status.Status != "error" {
		return nil
	}

	message := strings.ToLower(status.Message)
	switch {
	case strings.Contains(message, "not logged in"), strings.Contains(message, "invalid apikey"):
		return fmt.Errorf("%w: %s", moch.ErrInvalidCredentials, status.Message)
	case strings.Contains(message, "premium membership"), strings.Contains(message, "fair use"):
		return fmt.Errorf("%w: %s", moch.ErrAccessDenied, status.Message)
	default:
		return fmt.Errorf("premiumize: %s", status.Message)
	}
}

func pickContent(files []contentFile, fileIndex int) *contentFile {
	if fileIndex >= 0 && fileIndex < len(files) {
		return &files[fileIndex]
	}

	var best *contentFile
	for i, f := range files {
		if !moch.IsVideoFile(f.Path) {
			continue
		}

		if best == nil || best.Size < f.Size {
			best = &files[i]
		}
	}
	return best
}
