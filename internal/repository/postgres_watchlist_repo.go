package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pricepulse/internal/model"
)

// PostgresWatchlistRepo はPostgreSQLを使用したウォッチリストリポジトリ。
type PostgresWatchlistRepo struct {
	db *sql.DB
}

// NewPostgresWatchlistRepo はPostgresWatchlistRepoを生成する。
func NewPostgresWatchlistRepo(db *sql.DB) *PostgresWatchlistRepo {
	return &PostgresWatchlistRepo{db: db}
}

// FindByID は指定IDのウォッチリストを取得する。見つからない場合はnilを返す。
func (r *PostgresWatchlistRepo) FindByID(ctx context.Context, id string) (*model.WatchlistItem, error) {
	item := &model.WatchlistItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, query, min_price, max_price, created_at
		 FROM watchlist_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.UserID, &item.Query, &item.MinPrice, &item.MaxPrice, &item.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watchlist item: %w", err)
	}

	return item, nil
}

// ListByUserID はユーザーのウォッチリスト一覧を作成日時降順で返す。
func (r *PostgresWatchlistRepo) ListByUserID(ctx context.Context, userID string) ([]*model.WatchlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, query, min_price, max_price, created_at
		 FROM watchlist_items
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist items: %w", err)
	}
	defer rows.Close()

	return scanWatchlistRows(rows)
}

// ListAll は全ウォッチリストを作成日時昇順で返す。ワーカーの定期収集用。
func (r *PostgresWatchlistRepo) ListAll(ctx context.Context) ([]*model.WatchlistItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, query, min_price, max_price, created_at
		 FROM watchlist_items
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list all watchlist items: %w", err)
	}
	defer rows.Close()

	return scanWatchlistRows(rows)
}

// Upsert は(user_id, query)をキーにウォッチリストを作成または更新する。
// 既存エントリの場合は価格帯のみ上書きし、保存後の行を返す。
func (r *PostgresWatchlistRepo) Upsert(ctx context.Context, item *model.WatchlistItem) (*model.WatchlistItem, error) {
	saved := &model.WatchlistItem{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO watchlist_items (id, user_id, query, min_price, max_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, query)
		 DO UPDATE SET min_price = EXCLUDED.min_price, max_price = EXCLUDED.max_price
		 RETURNING id, user_id, query, min_price, max_price, created_at`,
		item.ID, item.UserID, item.Query, item.MinPrice, item.MaxPrice, item.CreatedAt,
	).Scan(&saved.ID, &saved.UserID, &saved.Query, &saved.MinPrice, &saved.MaxPrice, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert watchlist item: %w", err)
	}

	return saved, nil
}

// Delete は指定IDのウォッチリストを削除する。
// 関連するprice_snapshots、price_alertsはCASCADE削除される。
func (r *PostgresWatchlistRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("watchlist item not found: %s", id)
	}
	return nil
}

// scanWatchlistRows は結果セットをWatchlistItemスライスに読み出す。
func scanWatchlistRows(rows *sql.Rows) ([]*model.WatchlistItem, error) {
	var items []*model.WatchlistItem
	for rows.Next() {
		item := &model.WatchlistItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Query, &item.MinPrice, &item.MaxPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist items: %w", err)
	}
	return items, nil
}

// compile-time interface check
var _ WatchlistRepository = (*PostgresWatchlistRepo)(nil)
