package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pricepulse/internal/model"
)

// PostgresAlertRepo はPostgreSQLを使用した価格アラートリポジトリ。
type PostgresAlertRepo struct {
	db *sql.DB
}

// NewPostgresAlertRepo はPostgresAlertRepoを生成する。
func NewPostgresAlertRepo(db *sql.DB) *PostgresAlertRepo {
	return &PostgresAlertRepo{db: db}
}

// FindByID は指定IDのアラートを取得する。見つからない場合はnilを返す。
func (r *PostgresAlertRepo) FindByID(ctx context.Context, id string) (*model.PriceAlert, error) {
	alert := &model.PriceAlert{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, watchlist_id, platform, target_price, is_active, last_triggered, created_at
		 FROM price_alerts WHERE id = $1`,
		id,
	).Scan(&alert.ID, &alert.WatchlistID, &alert.Platform, &alert.TargetPrice,
		&alert.IsActive, &alert.LastTriggered, &alert.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert: %w", err)
	}

	return alert, nil
}

// ListByWatchlistID は指定ウォッチリストのアラート一覧を作成日時昇順で返す。
func (r *PostgresAlertRepo) ListByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
	return r.listByWatchlist(ctx, watchlistID, false)
}

// ListActiveByWatchlistID は指定ウォッチリストの有効なアラートのみ返す。
func (r *PostgresAlertRepo) ListActiveByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
	return r.listByWatchlist(ctx, watchlistID, true)
}

func (r *PostgresAlertRepo) listByWatchlist(ctx context.Context, watchlistID string, activeOnly bool) ([]*model.PriceAlert, error) {
	query := `SELECT id, watchlist_id, platform, target_price, is_active, last_triggered, created_at
		 FROM price_alerts
		 WHERE watchlist_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.PriceAlert
	for rows.Next() {
		alert := &model.PriceAlert{}
		if err := rows.Scan(&alert.ID, &alert.WatchlistID, &alert.Platform, &alert.TargetPrice,
			&alert.IsActive, &alert.LastTriggered, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// Upsert は(watchlist_id, platform)をキーにアラートを作成または更新する。
// 既存エントリの場合は目標価格を上書きして再有効化し、保存後の行を返す。
func (r *PostgresAlertRepo) Upsert(ctx context.Context, alert *model.PriceAlert) (*model.PriceAlert, error) {
	saved := &model.PriceAlert{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO price_alerts (id, watchlist_id, platform, target_price, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (watchlist_id, platform)
		 DO UPDATE SET target_price = EXCLUDED.target_price, is_active = TRUE
		 RETURNING id, watchlist_id, platform, target_price, is_active, last_triggered, created_at`,
		alert.ID, alert.WatchlistID, alert.Platform, alert.TargetPrice, alert.IsActive, alert.CreatedAt,
	).Scan(&saved.ID, &saved.WatchlistID, &saved.Platform, &saved.TargetPrice,
		&saved.IsActive, &saved.LastTriggered, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert alert: %w", err)
	}

	return saved, nil
}

// UpdateLastTriggered はアラートの最終発火時刻を更新する。
func (r *PostgresAlertRepo) UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE price_alerts SET last_triggered = $2 WHERE id = $1`,
		id, triggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update last_triggered: %w", err)
	}
	return nil
}

// Delete は指定IDのアラートを削除する。
func (r *PostgresAlertRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM price_alerts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

// ListTriggeredByUserID はユーザーの全ウォッチリストを対象に、
// since以降に発火したアラートをウォッチリストのキーワード付きで
// 発火時刻降順で返す。
func (r *PostgresAlertRepo) ListTriggeredByUserID(ctx context.Context, userID string, since time.Time) ([]*model.TriggeredAlert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.platform, a.target_price, a.last_triggered, w.query
		 FROM price_alerts a
		 JOIN watchlist_items w ON w.id = a.watchlist_id
		 WHERE w.user_id = $1 AND a.last_triggered IS NOT NULL AND a.last_triggered >= $2
		 ORDER BY a.last_triggered DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggered alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.TriggeredAlert
	for rows.Next() {
		ta := &model.TriggeredAlert{}
		if err := rows.Scan(&ta.ID, &ta.Platform, &ta.TargetPrice, &ta.LastTriggered, &ta.Query); err != nil {
			return nil, fmt.Errorf("failed to scan triggered alert: %w", err)
		}
		alerts = append(alerts, ta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate triggered alerts: %w", err)
	}

	return alerts, nil
}

// compile-time interface check
var _ AlertRepository = (*PostgresAlertRepo)(nil)
