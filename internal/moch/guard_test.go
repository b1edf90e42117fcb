package moch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardRejectsMalformedKeys(t *testing.T) {
	guard := NewCredentialGuard()

	assert.False(t, guard.IsValid("", "realdebrid"))
	assert.False(t, guard.IsValid("short", "realdebrid"))
	assert.True(t, guard.IsValid(testAPIKey, "realdebrid"))
}

func TestGuardBlacklistIsPerProviderPair(t *testing.T) {
	guard := NewCredentialGuard()

	guard.Blacklist(testAPIKey, "realdebrid")

	assert.False(t, guard.IsValid(testAPIKey, "realdebrid"))
	assert.True(t, guard.IsValid(testAPIKey, "alldebrid"))
	assert.True(t, guard.IsValid("another-valid-key-456", "realdebrid"))
}

func TestGuardBlacklistIsIdempotent(t *testing.T) {
	guard := NewCredentialGuard()

	guard.Blacklist(testAPIKey, "realdebrid")
	guard.Blacklist(testAPIKey, "realdebrid")

	assert.False(t, guard.IsValid(testAPIKey, "realdebrid"))
}
