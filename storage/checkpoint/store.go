package checkpoint

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schemaVersion guards the CBOR payload layout below. Bumping it without
// a migration path is deliberate: an old reader hitting a newer schema
// should fail loudly, not silently misinterpret bytes.
const schemaVersion = 1

// Snapshot is the persisted state of one soup at one point in its run.
type Snapshot struct {
	Epoch      float64
	RegionSize int
	Seed1      uint64
	Seed2      uint64
	Buf        []byte
}

// Store is a SQLite-backed checkpoint table, opened once per process.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a checkpoint database at path and
// verifies its schema_version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id     TEXT NOT NULL,
	epoch      REAL NOT NULL,
	payload    BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, created_at)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("checkpoint: migrate: %w", err)
	}

	row := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	var version int
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("checkpoint: stamp schema_version: %w", err)
		}
	case nil:
		if version != schemaVersion {
			return fmt.Errorf("checkpoint: database has schema_version %d, this build expects %d", version, schemaVersion)
		}
	default:
		return fmt.Errorf("checkpoint: read schema_version: %w", err)
	}
	return nil
}

// NewRunID generates a fresh run identifier for a new simulation.
func NewRunID() string {
	return uuid.NewString()
}

// Save CBOR-encodes snap and appends it as the latest checkpoint for
// runID.
func (s *Store) Save(runID string, snap Snapshot) error {
	payload, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO checkpoints (run_id, epoch, payload, created_at) VALUES (?, ?, ?, ?)`,
		runID, snap.Epoch, payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("checkpoint: save: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot for runID, or an error
// wrapping sql.ErrNoRows if none exists.
func (s *Store) Latest(runID string) (Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT payload FROM checkpoints WHERE run_id = ? ORDER BY created_at DESC LIMIT 1`,
		runID,
	)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: latest: %w", err)
	}

	var snap Snapshot
	if err := cbor.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: decode: %w", err)
	}
	return snap, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
