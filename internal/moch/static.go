package moch

// Static sentinel videos. Providers and the resolver return these relative
// paths for outcomes that must stay renderable in a player instead of
// surfacing as errors; StaticURL qualifies them at the external boundary.
const (
	FailedAccess     = "/videos/failed_access.mp4"
	FailedRar        = "/videos/failed_rar.mp4"
	FailedUnexpected = "/videos/failed_unexpected.mp4"
	Downloading      = "/videos/downloading.mp4"
)

var staticPaths = map[string]bool{
	FailedAccess:     true,
	FailedRar:        true,
	FailedUnexpected: true,
	Downloading:      true,
}

func IsStaticPath(url string) bool {
	return staticPaths[url]
}

func StaticURL(host string, path string) string {
	return host + path
}
