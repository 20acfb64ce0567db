package store

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tickertronix/hub/internal/domain"
)

// warmCacheSnapshot is the on-disk shape of the Store's in-memory read
// cache. It mirrors credCache/settingsCache exactly, so loading one back
// in is a straight map assignment rather than a re-derivation from SQLite.
type warmCacheSnapshot struct {
	Credentials map[string]credentialEntry       `msgpack:"credentials"`
	Settings    map[string]domain.DeviceSettings `msgpack:"settings"`
}

// SaveWarmCache snapshots the current in-memory cache to path, encoded as
// msgpack rather than JSON since this is an internal binary artifact with
// no external consumer — there's no reason to pay JSON's size or parsing
// cost for a file only this process ever reads. Safe to call with an
// empty cache; it just writes an empty snapshot.
func (s *Store) SaveWarmCache(path string) error {
	s.cacheMu.RLock()
	snap := warmCacheSnapshot{
		Credentials: make(map[string]credentialEntry, len(s.credCache)),
		Settings:    make(map[string]domain.DeviceSettings, len(s.settingsCache)),
	}
	for k, v := range s.credCache {
		snap.Credentials[k] = v
	}
	for k, v := range s.settingsCache {
		snap.Settings[k] = v
	}
	s.cacheMu.RUnlock()

	b, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode warm cache: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write warm cache to %s: %w", path, err)
	}
	return nil
}

// LoadWarmCache populates the in-memory cache from a prior SaveWarmCache
// snapshot. A missing file is not an error — the cache simply starts cold
// and fills itself from SQLite on first read, same as any other boot.
// Stale entries are harmless: every write path invalidates or overwrites
// its own cache entry, so a snapshot that predates a later SQLite change
// made outside this process would only serve stale data until the next
// write, never corrupt one.
func (s *Store) LoadWarmCache(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read warm cache from %s: %w", path, err)
	}

	var snap warmCacheSnapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("failed to decode warm cache from %s: %w", path, err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for k, v := range snap.Credentials {
		s.credCache[k] = v
	}
	for k, v := range snap.Settings {
		s.settingsCache[k] = v
	}
	return nil
}
