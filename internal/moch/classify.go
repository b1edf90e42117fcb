package moch

import (
	"errors"
	"fmt"

	"github.com/dbytex91/debridx/internal/model"
)

const productName = "DebridX"

// classifyError maps a provider failure to a user-visible placeholder stream.
// Only credential-shaped failures classify; everything else reports false and
// is dropped from the aggregation.
func classifyError(descriptor Descriptor, err error, host string) (model.StreamItem, bool) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return placeholderStream(descriptor, fmt.Sprintf("Invalid %s credential!", descriptor.Name), host), true
	case errors.Is(err, ErrAccessDenied):
		return placeholderStream(descriptor, fmt.Sprintf("Expired/invalid %s subscription!", descriptor.Name), host), true
	default:
		return model.StreamItem{}, false
	}
}

func placeholderStream(descriptor Descriptor, title string, host string) model.StreamItem {
	return model.StreamItem{
		Name:  fmt.Sprintf("%s\n%s error", productName, descriptor.ShortName),
		Title: title,
		URL:   StaticURL(host, FailedAccess),
	}
}
