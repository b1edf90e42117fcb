package moch

import "sync"

const minAPIKeyLength = 10

// CredentialGuard pre-filters provider credentials: obviously malformed keys
// and keys a provider already rejected never trigger another network call.
// This is a cost saver, not a security boundary; a valid-looking credential
// is always attempted at least once.
type CredentialGuard struct {
	mu        sync.RWMutex
	blacklist map[string]struct{}
}

func NewCredentialGuard() *CredentialGuard {
	return &CredentialGuard{
		blacklist: make(map[string]struct{}),
	}
}

func (g *CredentialGuard) IsValid(apiKey string, providerKey string) bool {
	if len(apiKey) < minAPIKeyLength {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	_, blacklisted := g.blacklist[providerKey+"|"+apiKey]
	return !blacklisted
}

// Blacklist records the pair until process restart. Re-adding is harmless.
func (g *CredentialGuard) Blacklist(apiKey string, providerKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blacklist[providerKey+"|"+apiKey] = struct{}{}
}
