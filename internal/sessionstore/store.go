// Package sessionstore is a durable, pebble-backed registry for established
// sessions. It is not part of the core protocol surface — spec.md keeps
// session bookkeeping a caller responsibility — but a demo or production
// deployment needs somewhere to persist session records across restarts and
// sweep expired ones, the same role portal/lease.go's in-memory LeaseManager
// plays for the teacher's relay leases.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Record is the payload stored alongside a session id. Put overwrites
// ExpireAt and stamps AuditID when it is empty, Sweep reads ExpireAt, and
// Get returns the decoded Record; the other fields are not interpreted.
type Record struct {
	SessionID  string    `json:"session_id"`
	RemoteID   string    `json:"remote_id"`
	EstablishedAt time.Time `json:"established_at"`
	ExpireAt   time.Time `json:"expire_at"`
	AuditID    string    `json:"audit_id"`
}

// Store is a durable session registry backed by a pebble KV store. Keys are
// the 32-byte session id (the client's ephemeral public key, see
// cryptoops.EstablishedSession.Id); values are JSON-encoded Records.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a pebble database at dir for session storage.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rec under id, stamping a fresh audit id if one is not already
// set. Writes are synced so a crash cannot silently lose a session record.
func (s *Store) Put(id [32]byte, rec Record, expireAt time.Time) error {
	if rec.AuditID == "" {
		rec.AuditID = uuid.NewString()
	}
	rec.ExpireAt = expireAt

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sessionstore: encode record: %w", err)
	}

	start := time.Now()
	if err := s.db.Set(id[:], encoded, pebble.Sync); err != nil {
		return fmt.Errorf("sessionstore: put: %w", err)
	}
	log.Debug().Str("audit_id", rec.AuditID).Dur("took", time.Since(start)).Msg("sessionstore: put")
	return nil
}

// Get looks up the record stored for id. The second return value is false
// if no record exists for id.
func (s *Store) Get(id [32]byte) (Record, bool, error) {
	value, closer, err := s.db.Get(id[:])
	if err == pebble.ErrNotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("sessionstore: get: %w", err)
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return Record{}, false, fmt.Errorf("sessionstore: decode record: %w", err)
	}
	return rec, true, nil
}

// Delete removes the record stored for id, if any.
func (s *Store) Delete(id [32]byte) error {
	if err := s.db.Delete(id[:], pebble.Sync); err != nil {
		return fmt.Errorf("sessionstore: delete: %w", err)
	}
	return nil
}

// Sweep scans every stored record and deletes those that have expired as of
// now, mirroring the ttlWorker sweep in portal/lease.go but against durable
// storage instead of an in-memory map. It returns the number of records
// removed. The caller is expected to run this periodically; Sweep itself
// does no scheduling.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("sessionstore: new iterator: %w", err)
	}
	defer iter.Close()

	var expired [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			log.Warn().Err(err).Msg("sessionstore: skipping corrupt record during sweep")
			continue
		}
		if !now.Before(rec.ExpireAt) {
			key := append([]byte(nil), iter.Key()...)
			expired = append(expired, key)
		}
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("sessionstore: iterate: %w", err)
	}

	batch := s.db.NewBatch()
	for _, key := range expired {
		if err := batch.Delete(key, nil); err != nil {
			return 0, fmt.Errorf("sessionstore: batch delete: %w", err)
		}
	}
	if len(expired) > 0 {
		if err := batch.Commit(pebble.Sync); err != nil {
			return 0, fmt.Errorf("sessionstore: commit sweep: %w", err)
		}
	}

	log.Debug().Int("removed", len(expired)).Msg("sessionstore: swept expired records")
	return len(expired), nil
}
