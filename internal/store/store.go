// Package store is the hub's durable-state layer: credentials, watchlist,
// latest prices, devices, and per-device settings. It exposes typed
// operations and hides the SQLite engine underneath, per the hub's design
// notes against thread-level shared mutable store handles — callers get a
// *Store value injected at construction time, never a global.
package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tickertronix/hub/internal/database"
	"github.com/tickertronix/hub/internal/domain"
)

// credentialEntry is the cached form of one provider's key/secret pair.
type credentialEntry struct {
	Key    string
	Secret string
}

// Store aggregates the hub's repositories over a single SQLite connection,
// each repository following the same table-wrapped {db, log} shape. A small
// in-memory read cache sits in front of the two hottest, smallest tables —
// credentials and per-device settings — since both are read on nearly
// every request but written rarely. The cache can be snapshotted to disk
// and reloaded warm on the next boot; see warmcache.go.
type Store struct {
	db  *database.DB
	log zerolog.Logger

	cacheMu       sync.RWMutex
	credCache     map[string]credentialEntry
	settingsCache map[string]domain.DeviceSettings
}

// New wraps an already-opened database.DB.
func New(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:            db,
		log:           log.With().Str("component", "store").Logger(),
		credCache:     make(map[string]credentialEntry),
		settingsCache: make(map[string]domain.DeviceSettings),
	}
}

func (s *Store) conn() *sql.DB { return s.db.Conn() }

// HealthCheck probes the underlying storage engine.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
