package moch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyInvalidCredentials(t *testing.T) {
	descriptor := fakeDescriptor("fake", "FK", &fakeProvider{})

	placeholder, classified := classifyError(descriptor, fmt.Errorf("wrapped: %w", ErrInvalidCredentials), testHost)

	require.True(t, classified)
	assert.Equal(t, "DebridX\nFK error", placeholder.Name)
	assert.Equal(t, "Invalid FakeDebrid credential!", placeholder.Title)
	assert.Equal(t, testHost+FailedAccess, placeholder.URL)
}

func TestClassifyAccessDenied(t *testing.T) {
	descriptor := fakeDescriptor("fake", "FK", &fakeProvider{})

	placeholder, classified := classifyError(descriptor, ErrAccessDenied, testHost)

	require.True(t, classified)
	assert.Equal(t, "Expired/invalid FakeDebrid subscription!", placeholder.Title)
}

func TestClassifyUnknownErrorsAreNotClassified(t *testing.T) {
	descriptor := fakeDescriptor("fake", "FK", &fakeProvider{})

	for _, err := range []error{errors.New("boom"), ErrNotReady, ErrRarArchive} {
		_, classified := classifyError(descriptor, err, testHost)
		assert.False(t, classified, "error %v", err)
	}
}

func TestStaticPaths(t *testing.T) {
	for _, path := range []string{FailedAccess, FailedRar, FailedUnexpected, Downloading} {
		assert.True(t, IsStaticPath(path))
	}
	assert.False(t, IsStaticPath("/videos/other.mp4"))

	assert.Equal(t, testHost+Downloading, StaticURL(testHost, Downloading))
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("Some.Movie.2019.MKV"))
	assert.True(t, IsVideoFile("movie.mp4"))
	assert.False(t, IsVideoFile("movie.srt"))
	assert.False(t, IsVideoFile("sample.rar"))
}

func TestIsRarFile(t *testing.T) {
	assert.True(t, IsRarFile("archive.RAR"))
	assert.False(t, IsRarFile("movie.mkv"))
}
