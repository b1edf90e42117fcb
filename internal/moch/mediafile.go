package moch

import "strings"

var mediaContainerExtensions = []string{
	".mkv",
	".mk3d",
	".mp4",
	".m4v",
	".mov",
	".avi",
}

// IsVideoFile reports whether the file name carries a streamable media
// container extension. Providers use it to pick the playable file out of a
// torrent's file list.
func IsVideoFile(fileName string) bool {
	fileName = strings.ToLower(fileName)
	for _, extension := range mediaContainerExtensions {
		if strings.HasSuffix(fileName, extension) {
			return true
		}
	}

	return false
}

// IsRarFile reports whether the file name is a rar archive, which no provider
// can stream directly.
func IsRarFile(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(fileName), ".rar")
}
