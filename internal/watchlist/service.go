// Package watchlist はウォッチリスト管理のドメインロジックを提供する。
package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pricepulse/internal/model"
	"github.com/hitoshi/pricepulse/internal/repository"
)

const (
	queryMaxLength = 200
	priceMin       = 0
	priceMax       = 999999

	historyDaysMin     = 1
	historyDaysMax     = 90
	historyDaysDefault = 30
)

// Service はウォッチリスト管理のサービス層。
// 登録・一覧・削除と価格履歴取得のビジネスロジックを提供する。
type Service struct {
	watchlistRepo repository.WatchlistRepository
	snapshotRepo  repository.SnapshotRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	watchlistRepo repository.WatchlistRepository,
	snapshotRepo repository.SnapshotRepository,
) *Service {
	return &Service{
		watchlistRepo: watchlistRepo,
		snapshotRepo:  snapshotRepo,
	}
}

// ValidateQuery は検索キーワードを正規化して検証する。
// 前後の空白を除去し、1〜200文字であることを確認する。
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", model.NewInvalidQueryError("キーワードが空です")
	}
	if len([]rune(query)) > queryMaxLength {
		return "", model.NewInvalidQueryError("キーワードが長すぎます")
	}
	return query, nil
}

// ValidatePriceBound は価格指定値が許容範囲内か検証する。
// nilは「指定なし」として許可する。
func ValidatePriceBound(price *int) error {
	if price == nil {
		return nil
	}
	if *price < priceMin || *price > priceMax {
		return model.NewInvalidPriceRangeError()
	}
	return nil
}

// Add はウォッチリストに項目を追加する。
// 同一ユーザー・同一キーワードの既存項目がある場合は価格帯のみ更新する。
// 価格帯の逆転（min > max）は検索時に補正されるためここでは拒否しない。
func (s *Service) Add(ctx context.Context, userID, query string, minPrice, maxPrice *int) (*model.WatchlistItem, error) {
	query, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if err := ValidatePriceBound(minPrice); err != nil {
		return nil, err
	}
	if err := ValidatePriceBound(maxPrice); err != nil {
		return nil, err
	}

	item := &model.WatchlistItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		Query:     query,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		CreatedAt: time.Now(),
	}

	saved, err := s.watchlistRepo.Upsert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの保存に失敗しました: %w", err)
	}

	slog.Info("watchlist item saved",
		slog.String("user_id", userID),
		slog.String("watchlist_id", saved.ID),
		slog.String("query", saved.Query),
	)

	return saved, nil
}

// List はユーザーのウォッチリスト一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.WatchlistItem, error) {
	items, err := s.watchlistRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// Delete はウォッチリスト項目を削除する。
// 他ユーザーの項目は存在自体を明かさずWATCHLIST_NOT_FOUNDを返す。
// 関連するスナップショットとアラートもCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID, watchlistID string) error {
	item, err := s.findOwned(ctx, userID, watchlistID)
	if err != nil {
		return err
	}

	if err := s.watchlistRepo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("ウォッチリストの削除に失敗しました: %w", err)
	}

	slog.Info("watchlist item deleted",
		slog.String("user_id", userID),
		slog.String("watchlist_id", watchlistID),
	)

	return nil
}

// HistoryEntry は価格履歴の1エントリ。
type HistoryEntry struct {
	Platform    model.Platform
	Price       int
	CollectedAt time.Time
}

// History は指定ウォッチリストの価格履歴を収集時刻昇順で返す。
// daysが0の場合はデフォルトの30日、1〜90の範囲外はエラー。
func (s *Service) History(ctx context.Context, userID, watchlistID string, days int) (string, []HistoryEntry, error) {
	if days == 0 {
		days = historyDaysDefault
	}
	if days < historyDaysMin || days > historyDaysMax {
		return "", nil, model.NewInvalidHistoryDaysError(days)
	}

	item, err := s.findOwned(ctx, userID, watchlistID)
	if err != nil {
		return "", nil, err
	}

	since := time.Now().AddDate(0, 0, -days)
	snapshots, err := s.snapshotRepo.ListByWatchlistSince(ctx, item.ID, since)
	if err != nil {
		return "", nil, fmt.Errorf("価格履歴の取得に失敗しました: %w", err)
	}

	entries := make([]HistoryEntry, len(snapshots))
	for i, snap := range snapshots {
		entries[i] = HistoryEntry{
			Platform:    snap.Platform,
			Price:       snap.Price,
			CollectedAt: snap.CollectedAt,
		}
	}

	return item.Query, entries, nil
}

// findOwned は所有権を検証してウォッチリスト項目を返す。
func (s *Service) findOwned(ctx context.Context, userID, watchlistID string) (*model.WatchlistItem, error) {
	item, err := s.watchlistRepo.FindByID(ctx, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	if item == nil || item.UserID != userID {
		return nil, model.NewWatchlistNotFoundError(watchlistID)
	}
	return item, nil
}
