// Package snapshot はオファー取得と価格スナップショットの収集を提供する。
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pricepulse/internal/model"
	"github.com/hitoshi/pricepulse/internal/pricing"
	"github.com/hitoshi/pricepulse/internal/repository"
	"github.com/hitoshi/pricepulse/internal/watchlist"
)

// AlertChecker はスナップショット収集後のアラート発火判定インターフェース。
type AlertChecker interface {
	// CheckAlerts はオファーをアラートと突き合わせ、発火数を返す。
	CheckAlerts(ctx context.Context, watchlistID string, offers []model.Offer, now time.Time) (int, error)
}

// Service はスナップショット収集のサービス層。
type Service struct {
	watchlistRepo repository.WatchlistRepository
	snapshotRepo  repository.SnapshotRepository
	alertChecker  AlertChecker
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	watchlistRepo repository.WatchlistRepository,
	snapshotRepo repository.SnapshotRepository,
	alertChecker AlertChecker,
) *Service {
	return &Service{
		watchlistRepo: watchlistRepo,
		snapshotRepo:  snapshotRepo,
		alertChecker:  alertChecker,
	}
}

// Search はキーワードに対するオファー一覧を生成して返す。
// 空キーワードは空リストを返す。永続化は行わない。
func (s *Service) Search(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
	if err := watchlist.ValidatePriceBound(minPrice); err != nil {
		return nil, err
	}
	if err := watchlist.ValidatePriceBound(maxPrice); err != nil {
		return nil, err
	}

	// 空キーワードは検索結果なしとして扱う
	if strings.TrimSpace(query) == "" {
		return []model.Offer{}, nil
	}

	query, err := watchlist.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	return pricing.Generate(query, minPrice, maxPrice), nil
}

// CollectResult はスナップショット収集1回の結果。
type CollectResult struct {
	WatchlistID string
	Query       string
	Count       int
	Triggered   int
	CollectedAt time.Time
}

// Collect は指定ウォッチリストのオファーを取得し、スナップショットとして永続化する。
// 全行が同一のcollected_atを共有する。永続化後にアラートの発火判定を行う。
// 途中の永続化エラーはその時点で中断する（部分的な書き込みは許容）。
func (s *Service) Collect(ctx context.Context, userID, watchlistID string) (*CollectResult, error) {
	item, err := s.watchlistRepo.FindByID(ctx, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	if item == nil || item.UserID != userID {
		return nil, model.NewWatchlistNotFoundError(watchlistID)
	}

	return s.CollectItem(ctx, item)
}

// CollectItem は所有権検証済みのウォッチリスト項目に対して収集を実行する。
// ワーカーの定期収集からも利用される。
func (s *Service) CollectItem(ctx context.Context, item *model.WatchlistItem) (*CollectResult, error) {
	collectedAt := time.Now()

	// 収集ごとに価格が揺らぐよう、収集時刻をシードにノイズを加える
	offers := pricing.Generate(item.Query, item.MinPrice, item.MaxPrice,
		pricing.WithNow(func() time.Time { return collectedAt }),
		pricing.WithJitter(collectedAt.Unix()),
	)

	for _, offer := range offers {
		snap := &model.PriceSnapshot{
			ID:          uuid.New().String(),
			WatchlistID: item.ID,
			Platform:    offer.Platform,
			Price:       offer.Price,
			Title:       offer.Title,
			URL:         offer.URL,
			CollectedAt: collectedAt,
		}
		if err := s.snapshotRepo.Create(ctx, snap); err != nil {
			return nil, fmt.Errorf("スナップショットの保存に失敗しました: %w", err)
		}
	}

	triggered, err := s.alertChecker.CheckAlerts(ctx, item.ID, offers, collectedAt)
	if err != nil {
		return nil, err
	}

	slog.Info("snapshot collected",
		slog.String("watchlist_id", item.ID),
		slog.String("query", item.Query),
		slog.Int("offers_count", len(offers)),
		slog.Int("alerts_triggered", triggered),
	)

	return &CollectResult{
		WatchlistID: item.ID,
		Query:       item.Query,
		Count:       len(offers),
		Triggered:   triggered,
		CollectedAt: collectedAt,
	}, nil
}

// CollectAll はユーザーの全ウォッチリスト項目を順次収集する。
// 1件でも失敗した場合はその時点で中断しエラーを返す（項目間の失敗分離はしない）。
func (s *Service) CollectAll(ctx context.Context, userID string) ([]*CollectResult, error) {
	items, err := s.watchlistRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリスト一覧の取得に失敗しました: %w", err)
	}

	results := make([]*CollectResult, 0, len(items))
	for _, item := range items {
		result, err := s.CollectItem(ctx, item)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}
