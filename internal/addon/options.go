package addon

import (
	"github.com/dbytex91/debridx/internal/prowlarr"
)

func WithID(id string) Option {
	return func(a *Addon) {
		a.id = id
	}
}

func WithName(name string) Option {
	return func(a *Addon) {
		a.name = name
	}
}

func WithVersion(version string) Option {
	return func(a *Addon) {
		a.version = version
	}
}

func WithProwlarr(prowlarrURL string, prowlarrAPIKey string) Option {
	return func(a *Addon) {
		a.prowlarrClient = prowlarr.New(prowlarrURL, prowlarrAPIKey)
		a.prowlarrURL = prowlarrURL
		a.prowlarrAPIKey = prowlarrAPIKey
	}
}
