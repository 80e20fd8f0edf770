// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/pricepulse/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
// 同時登録のレースもDB制約で検出してこのエラーに正規化する。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みメールアドレスでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// WatchlistRepository はウォッチリストの永続化インターフェース。
type WatchlistRepository interface {
	// FindByID は指定IDのウォッチリストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.WatchlistItem, error)

	// ListByUserID はユーザーのウォッチリスト一覧を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.WatchlistItem, error)

	// ListAll は全ウォッチリストを作成日時昇順で返す。ワーカーの定期収集用。
	ListAll(ctx context.Context) ([]*model.WatchlistItem, error)

	// Upsert は(user_id, query)をキーにウォッチリストを作成または更新する。
	// 既存エントリがある場合は価格帯のみ更新し、保存後の行を返す。
	Upsert(ctx context.Context, item *model.WatchlistItem) (*model.WatchlistItem, error)

	// Delete は指定IDのウォッチリストを削除する。
	// 関連するprice_snapshots、price_alertsはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// SnapshotRepository は価格スナップショットの永続化インターフェース。
// スナップショットは追記専用で更新されない。
type SnapshotRepository interface {
	// Create はスナップショット1行を作成する。
	Create(ctx context.Context, snapshot *model.PriceSnapshot) error

	// ListByWatchlistSince は指定ウォッチリストのsince以降のスナップショットを
	// collected_at昇順で返す。
	ListByWatchlistSince(ctx context.Context, watchlistID string, since time.Time) ([]*model.PriceSnapshot, error)

	// DeleteOlderThan はcutoffより古いスナップショットを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRepository は価格アラートの永続化インターフェース。
type AlertRepository interface {
	// FindByID は指定IDのアラートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PriceAlert, error)

	// ListByWatchlistID は指定ウォッチリストのアラート一覧を作成日時昇順で返す。
	ListByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error)

	// ListActiveByWatchlistID は指定ウォッチリストの有効なアラートのみ返す。
	ListActiveByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error)

	// Upsert は(watchlist_id, platform)をキーにアラートを作成または更新する。
	// 既存エントリがある場合は目標価格を更新して再有効化し、保存後の行を返す。
	Upsert(ctx context.Context, alert *model.PriceAlert) (*model.PriceAlert, error)

	// UpdateLastTriggered はアラートの最終発火時刻を更新する。
	UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error

	// Delete は指定IDのアラートを削除する。
	Delete(ctx context.Context, id string) error

	// ListTriggeredByUserID はユーザーの全ウォッチリストを対象に、
	// since以降に発火したアラートを発火時刻降順で返す。
	ListTriggeredByUserID(ctx context.Context, userID string, since time.Time) ([]*model.TriggeredAlert, error)
}
