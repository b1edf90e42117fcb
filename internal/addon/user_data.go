package addon

import "github.com/dbytex91/debridx/internal/moch"

// UserData is the per-user configuration carried in the addon install URL.
// All values arrive as strings from the configure form.
type UserData struct {
	ProwlarrURL    string `json:"pUrl"`
	ProwlarrAPIKey string `json:"pKey"`

	RealDebridKey string `json:"realdebrid"`
	AllDebridKey  string `json:"alldebrid"`
	PremiumizeKey string `json:"premiumize"`
	DebridLinkKey string `json:"debridlink"`

	IncludeTorrentLinks  string `json:"torrentLinks"`
	ExcludeDownloadLinks string `json:"noDownloads"`

	MinResolution     string `json:"minRes"`
	MaxResolution     string `json:"maxRes"`
	MinSize           string `json:"minSize"`
	MaxSize           string `json:"maxSize"`
	MinSeeders        string `json:"minSeeders"`
	ExcludedQualities string `json:"excludedQualities"`
	SearchTimeout     string `json:"searchTimeout"`
	SortMethod        string `json:"sortMethod"`
}

// NewUserDataWithDefaults creates UserData with sensible defaults
func NewUserDataWithDefaults() *UserData {
	return &UserData{
		MinResolution:     "480",
		MaxResolution:     "2160",
		MinSize:           "0.1",
		MaxSize:           "30",
		MinSeeders:        "1",
		ExcludedQualities: "cam,camrip,telesync,tsrip,hdcam,tc,ppvrip,r5,vhsscr",
		SearchTimeout:     "60",
		SortMethod:        "quality",
	}
}

// ApplyDefaults fills in any missing values with defaults
func (u *UserData) ApplyDefaults() {
	defaults := NewUserDataWithDefaults()

	if u.MinResolution == "" {
		u.MinResolution = defaults.MinResolution
	}
	if u.MaxResolution == "" {
		u.MaxResolution = defaults.MaxResolution
	}
	if u.MinSize == "" {
		u.MinSize = defaults.MinSize
	}
	if u.MaxSize == "" {
		u.MaxSize = defaults.MaxSize
	}
	if u.MinSeeders == "" {
		u.MinSeeders = defaults.MinSeeders
	}
	if u.ExcludedQualities == "" {
		u.ExcludedQualities = defaults.ExcludedQualities
	}
	if u.SearchTimeout == "" {
		u.SearchTimeout = defaults.SearchTimeout
	}
	if u.SortMethod == "" {
		u.SortMethod = defaults.SortMethod
	}
}

// MochKeys maps registered provider keys to the user's credentials. Empty
// credentials are left out so configured-provider checks stay simple.
func (u *UserData) MochKeys() map[string]string {
	keys := map[string]string{}
	for providerKey, apiKey := range map[string]string{
		"realdebrid": u.RealDebridKey,
		"alldebrid":  u.AllDebridKey,
		"premiumize": u.PremiumizeKey,
		"debridlink": u.DebridLinkKey,
	} {
		if apiKey != "" {
			keys[providerKey] = apiKey
		}
	}
	return keys
}

// MochConfig assembles the aggregation config for one request.
func (u *UserData) MochConfig(host string, clientIP string, skip int) moch.Config {
	return moch.Config{
		Keys:                 u.MochKeys(),
		Host:                 host,
		ClientIP:             clientIP,
		Skip:                 skip,
		IncludeTorrentLinks:  u.IncludeTorrentLinks == "true",
		ExcludeDownloadLinks: u.ExcludeDownloadLinks == "true",
	}
}
