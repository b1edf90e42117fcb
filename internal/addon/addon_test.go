package addon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbytex91/debridx/internal/model"
	"github.com/dbytex91/debridx/internal/prowlarr"
	"github.com/dbytex91/debridx/internal/titleparser"
)

func TestParseSkip(t *testing.T) {
	assert.Equal(t, 0, parseSkip(""))
	assert.Equal(t, 0, parseSkip("skip=abc"))
	assert.Equal(t, 0, parseSkip("skip=-5"))
	assert.Equal(t, 100, parseSkip("skip=100"))
	assert.Equal(t, 40, parseSkip("genre=Action&skip=40"))
}

func TestBytesConvert(t *testing.T) {
	assert.Equal(t, "?", bytesConvert(0))
	assert.Equal(t, "512 B", bytesConvert(512))
	assert.Equal(t, "1.50 KB", bytesConvert(1536))
	assert.Equal(t, "2 GB", bytesConvert(2*GIBIBYTE))
}

func TestCheckTitleSimilarity(t *testing.T) {
	assert.Equal(t, 0, checkTitleSimilarity("The Matrix", "The.Matrix."))
	assert.Less(t, checkTitleSimilarity("Dune Part Two", "Dune.Part.Two.2024"), maxTitleDistance+5)
	assert.GreaterOrEqual(t, checkTitleSimilarity("The Matrix", "Completely Different Film"), maxTitleDistance)
}

func TestFormatStreamName(t *testing.T) {
	name := formatStreamName(&titleparser.MetaInfo{Resolution: 1080, Codec: "x264"})
	assert.Equal(t, "DebridX\n[1080p]\n[X264]", name)

	name = formatStreamName(&titleparser.MetaInfo{Resolution: 2160})
	assert.Equal(t, "DebridX\n[4K]", name)

	name = formatStreamName(&titleparser.MetaInfo{})
	assert.Equal(t, "DebridX\n[Unknown]", name)
}

func TestFormatStreamTitle(t *testing.T) {
	title := formatStreamTitle(&titleparser.MetaInfo{
		Title:   "The.Matrix.",
		Year:    1999,
		Quality: "bluray",
	}, 2*GIBIBYTE, 10, "RARBG")

	assert.Equal(t, "The Matrix (1999)\n👤 10 | 💾 2 GB | [BLURAY]\n🔍 RARBG", title)
}

func TestFormatStreamTitleSeriesEpisode(t *testing.T) {
	title := formatStreamTitle(&titleparser.MetaInfo{
		Title:      "Show Name",
		FromSeason: 2,
		ToSeason:   2,
		Episode:    5,
	}, 0, 3, "EZTV")

	assert.Contains(t, title, "Show Name S02E05")
	assert.Contains(t, title, "👤 3 | 💾 ?")
}

func TestStreamItemFromRecord(t *testing.T) {
	r := &streamRecord{
		TitleInfo: &titleparser.MetaInfo{Title: "The.Matrix.", Resolution: 1080, Year: 1999},
		Torrent: &prowlarr.Torrent{
			InfoHash: "0123456789abcdef0123456789abcdef01234567",
			FileName: "The.Matrix.1999.1080p.mkv",
			Size:     uint(2 * GIBIBYTE),
			Seeders:  42,
		},
		Indexer: &prowlarr.Indexer{Name: "RARBG"},
	}

	stream := streamItemFromRecord(r)

	assert.Equal(t, "DebridX\n[1080p]", stream.Name)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", stream.InfoHash)
	assert.Contains(t, stream.Title, "👤 42")
	require.NotNil(t, stream.BehaviorHints)
	assert.Equal(t, "The.Matrix.1999.1080p.mkv", stream.BehaviorHints.FileName)
}

func matchingRecord() *streamRecord {
	return &streamRecord{
		ContentType: ContentTypeMovie,
		UserData:    NewUserDataWithDefaults(),
		MetaInfo:    &model.MetaInfo{Name: "The Matrix", IMDBID: 133093, FromYear: 1999, ToYear: 1999},
		TitleInfo: &titleparser.MetaInfo{
			Title:      "The.Matrix.",
			Year:       1999,
			Resolution: 1080,
			Quality:    "bluray",
		},
		Torrent: &prowlarr.Torrent{
			Title:   "The.Matrix.1999.1080p.BluRay.x264",
			Imdb:    133093,
			Size:    uint(2 * GIBIBYTE),
			Seeders: 10,
		},
	}
}

func TestExcludeTorrentKeepsMatchingTorrent(t *testing.T) {
	assert.False(t, excludeTorrent(matchingRecord()))
}

func TestExcludeTorrentRejectsBadQuality(t *testing.T) {
	r := matchingRecord()
	r.TitleInfo.Quality = "cam"
	assert.True(t, excludeTorrent(r))
}

func TestExcludeTorrentRejects3D(t *testing.T) {
	r := matchingRecord()
	r.TitleInfo.ThreeD = true
	assert.True(t, excludeTorrent(r))
}

func TestExcludeTorrentRejectsWrongIMDB(t *testing.T) {
	r := matchingRecord()
	r.Torrent.Imdb = 99999
	assert.True(t, excludeTorrent(r))
}

func TestExcludeTorrentRejectsTooFewSeeders(t *testing.T) {
	r := matchingRecord()
	r.Torrent.Seeders = 0
	assert.True(t, excludeTorrent(r))
}

func TestExcludeTorrentRejectsDissimilarTitleWithoutIMDB(t *testing.T) {
	r := matchingRecord()
	r.Torrent.Imdb = 0
	r.TitleInfo.Title = "Completely Different Film"
	assert.True(t, excludeTorrent(r))
}

func TestExcludeTorrentAcceptsSimilarTitleWithoutIMDB(t *testing.T) {
	r := matchingRecord()
	r.Torrent.Imdb = 0
	assert.False(t, excludeTorrent(r))
}

func TestExcludeTorrentRejectsWrongEpisode(t *testing.T) {
	r := matchingRecord()
	r.ContentType = ContentTypeSeries
	r.Season = 2
	r.Episode = 5
	r.TitleInfo.FromSeason = 2
	r.TitleInfo.ToSeason = 2
	r.TitleInfo.Episode = 7
	assert.True(t, excludeTorrent(r))
}

func TestSortByQualityScorePrefersHealthyHighRes(t *testing.T) {
	better := matchingRecord()
	worse := matchingRecord()
	worse.TitleInfo.Resolution = 480
	worse.TitleInfo.Quality = "dvdrip"
	worse.Torrent.Seeders = 1

	sorted := sortByQualityScore([]*streamRecord{worse, better})

	assert.Same(t, better, sorted[0])
}

func TestGroupByResolutionLimitsGroupSize(t *testing.T) {
	records := []*streamRecord{}
	for i := 0; i < 5; i++ {
		r := matchingRecord()
		r.TitleInfo.Resolution = 1080
		records = append(records, r)
	}
	hd := matchingRecord()
	hd.TitleInfo.Resolution = 720
	records = append(records, hd)

	grouped := groupByResolution(records, 3)

	require.Len(t, grouped, 4)
	assert.Equal(t, 720, grouped[0].TitleInfo.Resolution)
}

func TestUserDataMochKeysOmitsEmpty(t *testing.T) {
	userData := &UserData{
		RealDebridKey: "rd-key-0123456789",
		PremiumizeKey: "pm-key-0123456789",
	}

	keys := userData.MochKeys()

	assert.Equal(t, map[string]string{
		"realdebrid": "rd-key-0123456789",
		"premiumize": "pm-key-0123456789",
	}, keys)
}

func TestUserDataMochConfig(t *testing.T) {
	userData := &UserData{
		AllDebridKey:         "ad-key-0123456789",
		IncludeTorrentLinks:  "true",
		ExcludeDownloadLinks: "false",
	}

	cfg := userData.MochConfig("https://addon.example.com", "203.0.113.7", 20)

	assert.Equal(t, "ad-key-0123456789", cfg.APIKey("alldebrid"))
	assert.Equal(t, "https://addon.example.com", cfg.Host)
	assert.Equal(t, "203.0.113.7", cfg.ClientIP)
	assert.Equal(t, 20, cfg.Skip)
	assert.True(t, cfg.IncludeTorrentLinks)
	assert.False(t, cfg.ExcludeDownloadLinks)
}

func TestUserDataApplyDefaults(t *testing.T) {
	userData := &UserData{MinResolution: "720"}
	userData.ApplyDefaults()

	assert.Equal(t, "720", userData.MinResolution)
	assert.Equal(t, "2160", userData.MaxResolution)
	assert.Equal(t, "quality", userData.SortMethod)
}
