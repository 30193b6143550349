package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createRunsTableSQL = `CREATE TABLE IF NOT EXISTS aggregation_runs (
        id               UUID PRIMARY KEY,
        address          TEXT        NOT NULL,
        year             INTEGER     NOT NULL,
        started_at       TIMESTAMPTZ NOT NULL,
        duration_ms      BIGINT      NOT NULL,
        raw_count        INTEGER     NOT NULL,
        dedup_count      INTEGER     NOT NULL,
        total_volume_usd NUMERIC     NOT NULL,
        user_class       TEXT        NOT NULL,
        providers        JSONB       NOT NULL,
        created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS aggregation_runs_address_idx ON aggregation_runs (address, year);`

	insertRunSQL = `INSERT INTO aggregation_runs (
        id,
        address,
        year,
        started_at,
        duration_ms,
        raw_count,
        dedup_count,
        total_volume_usd,
        user_class,
        providers
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (id) DO NOTHING;`

	listRecentRunsSQL = `SELECT
        id,
        address,
        year,
        started_at,
        duration_ms,
        raw_count,
        dedup_count,
        total_volume_usd::text,
        user_class,
        providers,
        created_at
    FROM aggregation_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	listRunsForAddressSQL = `SELECT
        id,
        address,
        year,
        started_at,
        duration_ms,
        raw_count,
        dedup_count,
        total_volume_usd::text,
        user_class,
        providers,
        created_at
    FROM aggregation_runs
    WHERE address = $1
    ORDER BY started_at DESC
    LIMIT $2;`

	deleteRunsBeforeSQL = `DELETE FROM aggregation_runs WHERE started_at < $1;`
)

// RunStore persists aggregation runs.
type RunStore interface {
	InsertRun(ctx context.Context, run RunRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListRunsForAddress(ctx context.Context, address string, limit int) ([]RunRecord, error)
	DeleteRunsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

var _ RunStore = (*Store)(nil)

// Store is the PostgreSQL-backed RunStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the run table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createRunsTableSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}

// InsertRun persists one aggregation run. Re-inserting the same id is a no-op.
func (s *Store) InsertRun(ctx context.Context, run RunRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	providers, err := json.Marshal(run.Providers)
	if err != nil {
		return fmt.Errorf("encode providers: %w", err)
	}

	if _, execErr := pool.Exec(ctx, insertRunSQL,
		run.ID,
		run.Address,
		run.Year,
		run.StartedAt,
		run.Duration.Milliseconds(),
		run.RawCount,
		run.DedupCount,
		run.TotalVolumeUSD.String(),
		run.UserClass,
		providers,
	); execErr != nil {
		return fmt.Errorf("insert run: %w", execErr)
	}
	return nil
}

// ListRecentRuns lists the most recent runs across all addresses.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	return collectRuns(rows, limit)
}

// ListRunsForAddress lists the most recent runs of one lowercase address.
func (s *Store) ListRunsForAddress(ctx context.Context, address string, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRunsForAddressSQL, address, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list runs for address: %w", queryErr)
	}
	return collectRuns(rows, limit)
}

// DeleteRunsBefore prunes old runs and returns how many were removed.
func (s *Store) DeleteRunsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteRunsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete runs before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func collectRuns(rows pgx.Rows, limit int) ([]RunRecord, error) {
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

func scanRun(rows pgx.Rows) (RunRecord, error) {
	var (
		run        RunRecord
		durationMS int64
		volumeStr  string
		providers  []byte
	)

	if err := rows.Scan(
		&run.ID,
		&run.Address,
		&run.Year,
		&run.StartedAt,
		&durationMS,
		&run.RawCount,
		&run.DedupCount,
		&volumeStr,
		&run.UserClass,
		&providers,
		&run.CreatedAt,
	); err != nil {
		return RunRecord{}, err
	}

	volume, err := decimal.NewFromString(volumeStr)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse total volume: %w", err)
	}
	run.TotalVolumeUSD = volume
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &run.Providers); err != nil {
			return RunRecord{}, fmt.Errorf("decode providers: %w", err)
		}
	}
	return run, nil
}
