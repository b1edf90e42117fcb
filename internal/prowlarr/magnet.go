package prowlarr

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/multiformats/go-multihash"
)

// Magnet is a parsed magnet URI. Only the v1 btih form is generated; both
// btih and the v2 btmh form are accepted when parsing.
type Magnet struct {
	InfoHash [20]byte
	Name     string
	Trackers [][]string
	Peers    []string
}

func (m *Magnet) String() string {
	var sb strings.Builder
	sb.WriteString("magnet:?xt=urn:btih:")
	sb.WriteString(m.InfoHashStr())

	if m.Name != "" {
		sb.WriteString("&dn=")
		sb.WriteString(url.QueryEscape(m.Name))
	}

	for _, tier := range m.Trackers {
		for _, tracker := range tier {
			sb.WriteString("&tr=")
			sb.WriteString(url.QueryEscape(tracker))
		}
	}

	return sb.String()
}

func (m *Magnet) InfoHashStr() string {
	return hex.EncodeToString(m.InfoHash[:])
}

func ParseMagnetUri(uri string) (*Magnet, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid magnet uri: %w", err)
	}

	if u.Scheme != "magnet" {
		return nil, errors.New("not a magnet uri")
	}

	params := u.Query()
	magnet := &Magnet{
		Name:  params.Get("dn"),
		Peers: params["x.pe"],
	}

	hashFound := false
	for _, xt := range params["xt"] {
		switch {
		case strings.HasPrefix(xt, "urn:btih:"):
			if err := parseInfoHash(xt[len("urn:btih:"):], &magnet.InfoHash); err != nil {
				return nil, err
			}
			hashFound = true
		case strings.HasPrefix(xt, "urn:btmh:"):
			if err := parseMultihash(xt[len("urn:btmh:"):], &magnet.InfoHash); err != nil {
				return nil, err
			}
			hashFound = true
		}
	}

	if !hashFound {
		return nil, errors.New("no infohash in magnet uri")
	}

	for _, tracker := range params["tr"] {
		magnet.Trackers = append(magnet.Trackers, []string{tracker})
	}

	return magnet, nil
}

func parseInfoHash(encoded string, target *[20]byte) error {
	switch len(encoded) {
	case 40:
		raw, err := hex.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("invalid infohash: %w", err)
		}
		copy(target[:], raw)
	case 32:
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(encoded))
		if err != nil {
			return fmt.Errorf("invalid infohash: %w", err)
		}
		copy(target[:], raw)
	default:
		return errors.New("invalid infohash length")
	}

	return nil
}

// parseMultihash handles BEP 52 v2 hashes. The sha-256 digest is truncated to
// 20 bytes, the compatibility form trackers and debrid services accept.
func parseMultihash(encoded string, target *[20]byte) error {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid btmh hash: %w", err)
	}

	mh, err := multihash.Decode(raw)
	if err != nil {
		return fmt.Errorf("invalid btmh multihash: %w", err)
	}

	if mh.Code != multihash.SHA2_256 || len(mh.Digest) < len(target) {
		return errors.New("unsupported btmh hash function")
	}

	copy(target[:], mh.Digest[:len(target)])
	return nil
}
