// Package realdebrid implements the moch capability set against the
// Real-Debrid REST API.
package realdebrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/model"
)

var (
	ErrNoTorrentFound = errors.New("realdebrid: no torrent found")
	ErrNoFileFound    = errors.New("realdebrid: no file found")
)

const (
	errCodeBadToken         = 8
	errCodePermissionDenied = 9
	errCodeAccountLocked    = 14
)

func Descriptor() moch.Descriptor {
	return moch.Descriptor{
		Key:       "realdebrid",
		Name:      "RealDebrid",
		ShortName: "RD",
		Catalog:   true,
		New: func(apiKey string, ipAddress string) moch.Provider {
			return New(apiKey, ipAddress)
		},
	}
}

type RealDebrid struct {
	client *resty.Client
	apiKey string
}

type File struct {
	ID       string
	FileName string `json:"filename"`
	FileSize uint64 `json:"filesize"`
}

type AddMagnetResponse struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// instantAvailability nests hoster variants three levels deep; broken
// entries are tolerated and skipped.
type safeCachedTorrentResponse map[string][]map[string]*File

func (c *safeCachedTorrentResponse) UnmarshalJSON(data []byte) error {
	mapStruct := map[string][]map[string]*File(*c)
	_ = json.Unmarshal(data, &mapStruct)
	*c = mapStruct
	return nil
}

func New(apiKey string, ipAddress string) *RealDebrid {
	client := resty.New().
		SetBaseURL("https://api.real-debrid.com/rest/1.0").
		SetHeader("Accept", "application/json").
		SetAuthScheme("Bearer").
		SetError(ErrorResponse{}).
		SetAuthToken(apiKey)

	if ipAddress != "" {
		client.SetFormData(map[string]string{
			"ip": ipAddress,
		})
	}

	return &RealDebrid{
		client: client,
		apiKey: apiKey,
	}
}

func (rd *RealDebrid) GetCachedStreams(streams []model.StreamItem) (map[string]moch.CachedEntry, error) {
	infoHashes := make([]string, 0, len(streams))
	for _, stream := range streams {
		if stream.InfoHash != "" {
			infoHashes = append(infoHashes, stream.InfoHash)
		}
	}
	if len(infoHashes) == 0 {
		return map[string]moch.CachedEntry{}, nil
	}

	result := map[string]safeCachedTorrentResponse{}
	resp, err := rd.client.R().
		SetResult(&result).
		Get("/torrents/instantAvailability/" + strings.Join(infoHashes, "/"))
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, rd.classifyResponse(resp)
	}

	entries := map[string]moch.CachedEntry{}
	for infoHash, hosterFiles := range result {
		file := largestVideoFile(hosterFiles)
		if file == nil {
			continue
		}

		entries[infoHash] = moch.CachedEntry{
			Cached: true,
			URL:    fmt.Sprintf("%s/%s/%s", url.PathEscape(rd.apiKey), infoHash, file.ID),
		}
	}

	return entries, nil
}

// Resolve unrestricts one file of the torrent. A negative file index means
// no specific file was requested: the torrent is added for download and the
// not-ready outcome is reported until Real-Debrid finishes it.
func (rd *RealDebrid) Resolve(infoHash string, fileIndex int) (string, error) {
	fileID := ""
	if fileIndex >= 0 {
		fileID = strconv.Itoa(fileIndex)
	}

	download, err := rd.downloadByInfoHash(infoHash, fileID)
	if err == nil {
		return download, nil
	}

	if !errors.Is(err, ErrNoTorrentFound) {
		return "", err
	}

	torrentID, err := rd.addMagnet("magnet:?xt=urn:btih:" + infoHash)
	if err != nil {
		return "", err
	}

	torrent, err := rd.getTorrent(torrentID)
	if err != nil {
		return "", err
	}

	return rd.download(torrent, fileID)
}

func (rd *RealDebrid) GetCatalog(skip int) ([]model.MetaPreview, error) {
	torrents, err := rd.getTorrents(skip)
	if err != nil {
		return nil, err
	}

	items := make([]model.MetaPreview, 0, len(torrents))
	for _, torrent := range torrents {
		if torrent.Status != "downloaded" {
			continue
		}

		items = append(items, model.MetaPreview{
			ID:   torrent.ID,
			Type: "other",
			Name: torrent.FileName,
		})
	}

	return items, nil
}

func (rd *RealDebrid) GetItemMeta(itemID string) (*model.MetaItem, error) {
	torrent, err := rd.getTorrent(itemID)
	if err != nil {
		return nil, err
	}

	item := &model.MetaItem{
		ID:   torrent.ID,
		Type: "other",
		Name: torrent.FileName,
	}

	for _, file := range torrent.Files {
		if file.Selected == 0 || !moch.IsVideoFile(file.Path) {
			continue
		}

		item.Videos = append(item.Videos, model.MetaVideo{
			ID:    fmt.Sprintf("%s:%d", torrent.ID, file.ID),
			Title: file.Path,
			Streams: []model.StreamItem{{
				Title: file.Path,
				URL:   fmt.Sprintf("%s/%s/%d", url.PathEscape(rd.apiKey), torrent.Hash, file.ID),
			}},
		})
	}

	return item, nil
}

func (rd *RealDebrid) downloadByInfoHash(infoHash string, fileID string) (string, error) {
	torrents, err := rd.getTorrents(0)
	if err != nil {
		return "", err
	}

	for _, torrent := range torrents {
		if torrent.Hash != infoHash {
			continue
		}

		download, err := rd.download(&torrent, fileID)
		if err == nil {
			return download, nil
		}

		if !errors.Is(err, ErrNoFileFound) {
			return "", err
		}
	}

	return "", ErrNoTorrentFound
}

func (rd *RealDebrid) addMagnet(magnetURI string) (string, error) {
	result := &AddMagnetResponse{}
	resp, err := rd.client.R().
		SetFormData(map[string]string{
			"magnet": magnetURI,
		}).
		SetResult(result).
		Post("/torrents/addMagnet")
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", rd.classifyResponse(resp)
	}

	return result.ID, nil
}

func (rd *RealDebrid) getTorrent(torrentID string) (*Torrent, error) {
	result := &Torrent{}
	resp, err := rd.client.R().
		SetResult(result).
		Get("/torrents/info/" + torrentID)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, rd.classifyResponse(resp)
	}

	return result, nil
}

func (rd *RealDebrid) getTorrents(offset int) ([]Torrent, error) {
	request := rd.client.R().
		SetQueryParam("limit", "100")
	if offset > 0 {
		request.SetQueryParam("offset", strconv.Itoa(offset))
	}

	result := []Torrent{}
	resp, err := request.SetResult(&result).Get("/torrents")
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, rd.classifyResponse(resp)
	}

	return result, nil
}

func (rd *RealDebrid) download(torrent *Torrent, fileID string) (string, error) {
	linkIndex := linkIndexForFile(torrent, fileID)
	if torrent.Status == "waiting_files_selection" || linkIndex == -1 {
		if err := rd.selectFiles(torrent.ID); err != nil {
			return "", err
		}

		var err error
		torrent, err = rd.getTorrent(torrent.ID)
		if err != nil {
			return "", err
		}
	}

	if torrent.Status != "downloaded" {
		log.Infof("Torrent %s status is still %s", torrent.Hash, torrent.Status)
		return "", moch.ErrNotReady
	}

	linkIndex = linkIndexForFile(torrent, fileID)
	if linkIndex == -1 || linkIndex >= len(torrent.Links) {
		return "", ErrNoFileFound
	}

	return rd.unrestrict(torrent.Links[linkIndex])
}

func (rd *RealDebrid) unrestrict(hosterLink string) (string, error) {
	result := &UnrestrictedLinkResponse{}
	resp, err := rd.client.R().
		SetResult(&result).
		SetFormData(map[string]string{
			"link": hosterLink,
		}).
		Post("/unrestrict/link")
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", rd.classifyResponse(resp)
	}

	if moch.IsRarFile(result.Download) {
		return "", moch.ErrRarArchive
	}

	return result.Download, nil
}

func (rd *RealDebrid) selectFiles(torrentID string) error {
	resp, err := rd.client.R().
		SetFormData(map[string]string{
			"files": "all",
		}).
		Post("/torrents/selectFiles/" + torrentID)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return rd.classifyResponse(resp)
	}

	return nil
}

func (rd *RealDebrid) classifyResponse(resp *resty.Response) error {
	apiError, ok := resp.Error().(*ErrorResponse)
	if !ok {
		return fmt.Errorf("realdebrid: unexpected response %d", resp.StatusCode())
	}

	switch apiError.ErrorCode {
	case errCodeBadToken:
		return fmt.Errorf("%w: %s", moch.ErrInvalidCredentials, apiError.ErrTxt)
	case errCodePermissionDenied, errCodeAccountLocked:
		return fmt.Errorf("%w: %s", moch.ErrAccessDenied, apiError.ErrTxt)
	default:
		return apiError
	}
}

// linkIndexForFile maps a file ID to its position among the selected files,
// which is the index Real-Debrid uses in the links array. An empty ID picks
// the largest selected video file.
func linkIndexForFile(torrent *Torrent, fileID string) int {
	if fileID == "" {
		fileID = largestSelectedVideoFileID(torrent)
	}

	index := 0
	for _, f := range torrent.Files {
		if fmt.Sprint(f.ID) == fileID {
			if f.Selected > 0 {
				return index
			}

			return -1
		}

		if f.Selected > 0 {
			index++
		}
	}

	return -1
}

func largestSelectedVideoFileID(torrent *Torrent) string {
	var best *TorrentFile
	for i, f := range torrent.Files {
		if f.Selected == 0 || !moch.IsVideoFile(f.Path) {
			continue
		}

		if best == nil || best.Bytes < f.Bytes {
			best = &torrent.Files[i]
		}
	}

	if best == nil {
		return ""
	}
	return fmt.Sprint(best.ID)
}

func largestVideoFile(hosterFiles safeCachedTorrentResponse) *File {
	var best *File
	for _, variants := range hosterFiles {
		for _, variant := range variants {
			for id, f := range variant {
				if f == nil || !moch.IsVideoFile(f.FileName) {
					continue
				}

				if best == nil || best.FileSize < f.FileSize {
					newFile := *f
					newFile.ID = id
					best = &newFile
				}
			}
		}
	}

	return best
}

type Torrent struct {
	ID          string        `json:"id"`
	Hash        string        `json:"hash"`
	Status      string        `json:"status"`
	Progress    float64       `json:"progress"`
	FileName    string        `json:"filename"`
	OrgFileName string        `json:"original_filename"`
	Files       []TorrentFile `json:"files"`
	Links       []string      `json:"links"`
}

type TorrentFile struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Selected int    `json:"selected"`
	Bytes    int    `json:"bytes"`
}

type UnrestrictedLinkResponse struct {
	Download string `json:"download"`
}

type ErrorResponse struct {
	ErrTxt    string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

func (er ErrorResponse) Error() string {
	return fmt.Sprintf("realdebrid: [%s,%d]", er.ErrTxt, er.ErrorCode)
}
