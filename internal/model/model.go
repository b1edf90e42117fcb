package model

// MetaInfo is the normalized movie/series metadata used to match torrents
// against the requested content.
type MetaInfo struct {
	Name     string
	IMDBID   uint
	FromYear int
	ToYear   int
}

// StreamItem refers to https://github.com/Stremio/stremio-addon-sdk/blob/master/docs/api/responses/stream.md
type StreamItem struct {
	URL           string               `json:"url,omitempty"`
	YoutubeID     string               `json:"ytId,omitempty"`
	InfoHash      string               `json:"infoHash,omitempty"`
	ExternalURL   string               `json:"externalUrl,omitempty"`
	Name          string               `json:"name,omitempty"`
	Description   string               `json:"description,omitempty"`
	Title         string               `json:"title,omitempty"`
	FileIndex     int                  `json:"fileIdx,omitempty"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`
}

type StreamBehaviorHints struct {
	FileName    string `json:"filename,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
	VideoSize   uint64 `json:"videoSize,omitempty"`
	NotWebReady bool   `json:"notWebReady,omitempty"`
}

// MetaPreview is a catalog entry.
type MetaPreview struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster,omitempty"`
}

// MetaItem is a full meta object with its playable videos.
type MetaItem struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster,omitempty"`
	Description string      `json:"description,omitempty"`
	Videos      []MetaVideo `json:"videos,omitempty"`
}

type MetaVideo struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Released string       `json:"released,omitempty"`
	Streams  []StreamItem `json:"streams,omitempty"`
}
