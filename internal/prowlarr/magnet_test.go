package prowlarr

import (
	"encoding/base32"
	"encoding/hex"
	"testing"

	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInfoHashHex = "0123456789abcdef0123456789abcdef01234567"

func testInfoHash(t *testing.T) [20]byte {
	raw, err := hex.DecodeString(testInfoHashHex)
	require.NoError(t, err)

	var infoHash [20]byte
	copy(infoHash[:], raw)
	return infoHash
}

func TestMagnetStringRoundTrip(t *testing.T) {
	magnet := &Magnet{
		InfoHash: testInfoHash(t),
		Name:     "Some Movie 2019",
		Trackers: [][]string{{"udp://tracker.example.com:6969/announce"}},
	}

	parsed, err := ParseMagnetUri(magnet.String())
	require.NoError(t, err)

	assert.Equal(t, testInfoHashHex, parsed.InfoHashStr())
	assert.Equal(t, "Some Movie 2019", parsed.Name)
	require.Len(t, parsed.Trackers, 1)
	assert.Equal(t, []string{"udp://tracker.example.com:6969/announce"}, parsed.Trackers[0])
}

func TestParseMagnetUriHexHash(t *testing.T) {
	parsed, err := ParseMagnetUri("magnet:?xt=urn:btih:" + testInfoHashHex)
	require.NoError(t, err)

	assert.Equal(t, testInfoHashHex, parsed.InfoHashStr())
}

func TestParseMagnetUriBase32Hash(t *testing.T) {
	infoHash := testInfoHash(t)
	encoded := base32.StdEncoding.EncodeToString(infoHash[:])

	parsed, err := ParseMagnetUri("magnet:?xt=urn:btih:" + encoded)
	require.NoError(t, err)

	assert.Equal(t, testInfoHashHex, parsed.InfoHashStr())
}

func TestParseMagnetUriV2Hash(t *testing.T) {
	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	encoded, err := multihash.Encode(digest, multihash.SHA2_256)
	require.NoError(t, err)

	parsed, err := ParseMagnetUri("magnet:?xt=urn:btmh:" + hex.EncodeToString(encoded))
	require.NoError(t, err)

	assert.Equal(t, hex.EncodeToString(digest[:20]), parsed.InfoHashStr())
}

func TestParseMagnetUriRejectsInvalidInput(t *testing.T) {
	cases := []string{
		"https://example.com/file.torrent",
		"magnet:?dn=no-hash-here",
		"magnet:?xt=urn:btih:tooshort",
		"magnet:?xt=urn:btih:zz23456789abcdef0123456789abcdef01234567",
	}

	for _, uri := range cases {
		_, err := ParseMagnetUri(uri)
		assert.Error(t, err, "uri %s", uri)
	}
}
