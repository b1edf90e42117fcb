package titleparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMovieTitle(t *testing.T) {
	m := Parse("The.Movie.2019.1080p.BluRay.x264-GROUP")

	assert.Equal(t, "The.Movie.", m.Title)
	assert.Equal(t, 2019, m.Year)
	assert.Equal(t, 1080, m.Resolution)
	assert.Equal(t, "bluray", m.Quality)
	assert.Equal(t, "x264", m.Codec)
	assert.False(t, m.ThreeD)
}

func TestParseSeriesEpisode(t *testing.T) {
	m := Parse("Show.Name.S02E05.720p.WEB-DL.AAC.H264")

	assert.Equal(t, "Show.Name.", m.Title)
	assert.Equal(t, 2, m.FromSeason)
	assert.Equal(t, 2, m.ToSeason)
	assert.Equal(t, 5, m.Episode)
	assert.Equal(t, 720, m.Resolution)
	assert.Equal(t, "web-dl", m.Quality)
	assert.Equal(t, "aac", m.Audio)
}

func TestParseSeasonRange(t *testing.T) {
	m := Parse("Series Name S01-S05 1080p Complete")

	assert.Equal(t, 1, m.FromSeason)
	assert.Equal(t, 5, m.ToSeason)
	assert.Equal(t, 0, m.Episode)
}

func TestParseSingleSeasonWord(t *testing.T) {
	m := Parse("Series Name Season 3 720p HDTV")

	assert.Equal(t, 3, m.FromSeason)
	assert.Equal(t, 3, m.ToSeason)
}

func TestParse4K(t *testing.T) {
	m := Parse("Movie.Title.4K.HDR.BDREMUX")

	assert.Equal(t, 2160, m.Resolution)
	assert.Equal(t, "bdremux", m.Quality)
}

func TestParseCamQuality(t *testing.T) {
	m := Parse("New.Movie.2024.HDCAM.XviD")

	assert.Equal(t, "cam", m.Quality)
}

func TestParseTelesync(t *testing.T) {
	m := Parse("New.Movie.2024.HD-TS.x264")

	assert.Equal(t, "telesync", m.Quality)
}

func TestParse3D(t *testing.T) {
	m := Parse("Movie.2013.3D.1080p.BluRay")

	assert.True(t, m.ThreeD)
}

func TestParseContainer(t *testing.T) {
	m := Parse("Movie.2019.1080p.WEBRip.MKV")

	assert.Equal(t, "mkv", m.Container)
	assert.Equal(t, "webrip", m.Quality)
}

func TestParseFrenchLanguage(t *testing.T) {
	m := Parse("Le.Film.2020.FRENCH.1080p.BluRay")

	assert.Equal(t, "french", m.Language)
}

func TestParsePlainTitle(t *testing.T) {
	m := Parse("Some random release")

	assert.Equal(t, "Some random release", m.Title)
	assert.Equal(t, 0, m.Resolution)
	assert.Empty(t, m.Quality)
}
