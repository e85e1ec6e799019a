package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/lcrh/turingsoup/soup"
)

// Store is a DuckDB-backed append-only log of per-batch counters, opened
// once per process and written to from the driver's own goroutine
// between ticks.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
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
CREATE TABLE IF NOT EXISTS batch_history (
	run_id        VARCHAR NOT NULL,
	epoch         DOUBLE NOT NULL,
	head0         UBIGINT NOT NULL,
	head1         UBIGINT NOT NULL,
	math_count    UBIGINT NOT NULL,
	copy_count    UBIGINT NOT NULL,
	loop_count    UBIGINT NOT NULL,
	pair_count    UBIGINT NOT NULL,
	halt_end      UBIGINT NOT NULL,
	halt_maxsteps UBIGINT NOT NULL,
	halt_unmatched UBIGINT NOT NULL,
	halt_noinstr  UBIGINT NOT NULL,
	recorded_at   TIMESTAMP NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Append records one batch's aggregated counters for runID at the given
// epoch.
func (s *Store) Append(runID string, epoch float64, c soup.Counters) error {
	_, err := s.db.Exec(
		`INSERT INTO batch_history
			(run_id, epoch, head0, head1, math_count, copy_count, loop_count, pair_count,
			 halt_end, halt_maxsteps, halt_unmatched, halt_noinstr, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, epoch, c.Head0, c.Head1, c.Math, c.Copy, c.Loop, c.Count,
		c.Halts[0], c.Halts[1], c.Halts[2], c.Halts[3], time.Now(),
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// TrendPoint is one row of a counter's history over epochs.
type TrendPoint struct {
	Epoch float64
	Value uint64
}

// MathCountTrend returns the math-count trend for runID, ordered by
// epoch, for a caller building an after-the-fact chart.
func (s *Store) MathCountTrend(runID string) ([]TrendPoint, error) {
	rows, err := s.db.Query(
		`SELECT epoch, math_count FROM batch_history WHERE run_id = ? ORDER BY epoch ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: math count trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Epoch, &p.Value); err != nil {
			return nil, fmt.Errorf("history: scan trend row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
