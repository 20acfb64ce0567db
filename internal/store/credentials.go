package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetCredential returns the key/secret pair for a provider, if one has
// been written. Serves from the in-memory cache when warm.
func (s *Store) GetCredential(provider string) (key, secret string, ok bool, err error) {
	s.cacheMu.RLock()
	if entry, found := s.credCache[provider]; found {
		s.cacheMu.RUnlock()
		return entry.Key, entry.Secret, true, nil
	}
	s.cacheMu.RUnlock()

	row := s.conn().QueryRow("SELECT api_key, api_secret FROM credentials WHERE provider = ?", provider)
	err = row.Scan(&key, &secret)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("failed to get credential for %s: %w", provider, err)
	}

	s.cacheMu.Lock()
	s.credCache[provider] = credentialEntry{Key: key, Secret: secret}
	s.cacheMu.Unlock()
	return key, secret, true, nil
}

// PutCredential writes (or replaces) the active credential for a provider.
// At most one active credential is kept per provider; writes are operator-
// initiated only, never derived from upstream responses.
func (s *Store) PutCredential(provider, key, secret string) error {
	now := time.Now().Unix()
	_, err := s.conn().Exec(`
		INSERT INTO credentials (provider, api_key, api_secret, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			api_key = excluded.api_key,
			api_secret = excluded.api_secret,
			updated_at = excluded.updated_at
	`, provider, key, secret, now)
	if err != nil {
		return fmt.Errorf("failed to put credential for %s: %w", provider, err)
	}

	s.cacheMu.Lock()
	s.credCache[provider] = credentialEntry{Key: key, Secret: secret}
	s.cacheMu.Unlock()
	return nil
}

// HasCredential reports whether a credential is present for a provider,
// without returning the secret itself — used by GET /credentials/status.
func (s *Store) HasCredential(provider string) (bool, error) {
	var count int
	err := s.conn().QueryRow("SELECT COUNT(1) FROM credentials WHERE provider = ?", provider).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check credential for %s: %w", provider, err)
	}
	return count > 0, nil
}
