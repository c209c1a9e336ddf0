package clickhouse

import (
	"context"
	"fmt"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk adds ticks. Fails the entire batch on any duplicate
// (experiment_id, token_address, timestamp_ms).
func (s *TickStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		experimentID string
		tokenAddress string
		timestampMs  int64
	}
	seen := make(map[key]struct{})
	for _, t := range ticks {
		if t == nil || t.ExperimentID == "" || t.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		k := key{t.ExperimentID, t.TokenAddress, t.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows. MergeTree doesn't enforce
	// uniqueness at insert time.
	for _, t := range ticks {
		exists, err := s.exists(ctx, t.ExperimentID, t.TokenAddress, t.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (
			experiment_id, token_address, timestamp_ms, price,
			volume, holder_count, tvl, market_cap
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		m := t.Measurement
		err = batch.Append(
			t.ExperimentID, t.TokenAddress, uint64(t.TimestampMs), t.Price,
			m.Volume, m.HolderCount, m.TVL, m.MarketCap,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetPage retrieves up to limit ticks strictly after afterMs, ordered by
// timestamp ASC. An empty page signals end-of-series.
func (s *TickStore) GetPage(ctx context.Context, experimentID, tokenAddress string, afterMs int64, limit int) ([]*domain.Tick, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT experiment_id, token_address, timestamp_ms, price,
		       volume, holder_count, tvl, market_cap
		FROM ticks
		WHERE experiment_id = ? AND token_address = ? AND timestamp_ms > ?
		ORDER BY timestamp_ms ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, experimentID, tokenAddress, uint64(afterMs), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query tick page: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// GetByToken retrieves all ticks for a token, ordered by timestamp ASC.
func (s *TickStore) GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.Tick, error) {
	query := `
		SELECT experiment_id, token_address, timestamp_ms, price,
		       volume, holder_count, tvl, market_cap
		FROM ticks
		WHERE experiment_id = ? AND token_address = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, experimentID, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query ticks by token: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// exists checks if a tick with the given key exists.
func (s *TickStore) exists(ctx context.Context, experimentID, tokenAddress string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM ticks
		WHERE experiment_id = ? AND token_address = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, experimentID, tokenAddress, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTicks scans multiple rows into a slice.
func scanTicks(rows chRows) ([]*domain.Tick, error) {
	var ticks []*domain.Tick

	for rows.Next() {
		var t domain.Tick
		var timestampMs uint64

		err := rows.Scan(
			&t.ExperimentID, &t.TokenAddress, &timestampMs, &t.Price,
			&t.Measurement.Volume, &t.Measurement.HolderCount,
			&t.Measurement.TVL, &t.Measurement.MarketCap,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}

		t.TimestampMs = int64(timestampMs)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
