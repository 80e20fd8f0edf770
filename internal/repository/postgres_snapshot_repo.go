package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pricepulse/internal/model"
)

// PostgresSnapshotRepo はPostgreSQLを使用した価格スナップショットリポジトリ。
type PostgresSnapshotRepo struct {
	db *sql.DB
}

// NewPostgresSnapshotRepo はPostgresSnapshotRepoを生成する。
func NewPostgresSnapshotRepo(db *sql.DB) *PostgresSnapshotRepo {
	return &PostgresSnapshotRepo{db: db}
}

// Create はスナップショット1行を作成する。
func (r *PostgresSnapshotRepo) Create(ctx context.Context, snapshot *model.PriceSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO price_snapshots (id, watchlist_id, platform, price, title, url, collected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snapshot.ID, snapshot.WatchlistID, snapshot.Platform, snapshot.Price,
		snapshot.Title, snapshot.URL, snapshot.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// ListByWatchlistSince は指定ウォッチリストのsince以降のスナップショットを
// collected_at昇順で返す。
func (r *PostgresSnapshotRepo) ListByWatchlistSince(ctx context.Context, watchlistID string, since time.Time) ([]*model.PriceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, watchlist_id, platform, price, title, url, collected_at
		 FROM price_snapshots
		 WHERE watchlist_id = $1 AND collected_at >= $2
		 ORDER BY collected_at ASC`,
		watchlistID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.PriceSnapshot
	for rows.Next() {
		s := &model.PriceSnapshot{}
		if err := rows.Scan(&s.ID, &s.WatchlistID, &s.Platform, &s.Price, &s.Title, &s.URL, &s.CollectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// DeleteOlderThan はcutoffより古いスナップショットを削除し、削除件数を返す。
func (r *PostgresSnapshotRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM price_snapshots WHERE collected_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ SnapshotRepository = (*PostgresSnapshotRepo)(nil)
