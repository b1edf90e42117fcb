package moch

import "errors"

var (
	// ErrInvalidCredentials marks a credential the provider rejected outright,
	// or one the guard pre-filtered. The pair is blacklisted for the process
	// lifetime.
	ErrInvalidCredentials = errors.New("moch: invalid credentials")

	// ErrAccessDenied marks a credential that authenticates but has no usable
	// subscription. Not blacklisted, it may self-resolve.
	ErrAccessDenied = errors.New("moch: access denied")

	// ErrNotReady means the provider accepted the torrent but has not finished
	// downloading it. The resolver degrades this to the Downloading sentinel.
	ErrNotReady = errors.New("moch: torrent is not ready yet")

	// ErrRarArchive means the only hosted content is a rar archive that cannot
	// be streamed.
	ErrRarArchive = errors.New("moch: content is a rar archive")
)
