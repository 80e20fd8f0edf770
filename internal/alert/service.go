// Package alert は価格アラートの管理と発火判定を提供する。
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pricepulse/internal/model"
	"github.com/hitoshi/pricepulse/internal/repository"
)

const (
	targetPriceMin = 0
	targetPriceMax = 999999

	// triggeredWindow は発火済みアラート一覧の参照期間。
	triggeredWindow = 7 * 24 * time.Hour
)

// Service は価格アラートのサービス層。
type Service struct {
	watchlistRepo repository.WatchlistRepository
	alertRepo     repository.AlertRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	watchlistRepo repository.WatchlistRepository,
	alertRepo repository.AlertRepository,
) *Service {
	return &Service{
		watchlistRepo: watchlistRepo,
		alertRepo:     alertRepo,
	}
}

// Upsert は指定ウォッチリストにアラートを設定する。
// 同一プラットフォームの既存アラートがある場合は目標価格を更新して再有効化する。
func (s *Service) Upsert(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error) {
	if !model.ValidPlatform(model.Platform(platform)) {
		return nil, model.NewInvalidPlatformError(platform)
	}
	if targetPrice < targetPriceMin || targetPrice > targetPriceMax {
		return nil, model.NewInvalidPriceRangeError()
	}

	if _, err := s.findOwnedWatchlist(ctx, userID, watchlistID); err != nil {
		return nil, err
	}

	alert := &model.PriceAlert{
		ID:          uuid.New().String(),
		WatchlistID: watchlistID,
		Platform:    model.Platform(platform),
		TargetPrice: targetPrice,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	saved, err := s.alertRepo.Upsert(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("アラートの保存に失敗しました: %w", err)
	}

	slog.Info("price alert saved",
		slog.String("user_id", userID),
		slog.String("watchlist_id", watchlistID),
		slog.String("platform", platform),
		slog.Int("target_price", targetPrice),
	)

	return saved, nil
}

// List は指定ウォッチリストのアラート一覧を返す。
func (s *Service) List(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error) {
	if _, err := s.findOwnedWatchlist(ctx, userID, watchlistID); err != nil {
		return nil, err
	}

	alerts, err := s.alertRepo.ListByWatchlistID(ctx, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("アラート一覧の取得に失敗しました: %w", err)
	}
	return alerts, nil
}

// Delete は指定アラートを削除する。
// ウォッチリストの所有権とアラートの所属を両方検証する。
func (s *Service) Delete(ctx context.Context, userID, watchlistID, alertID string) error {
	if _, err := s.findOwnedWatchlist(ctx, userID, watchlistID); err != nil {
		return err
	}

	alert, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("アラートの取得に失敗しました: %w", err)
	}
	if alert == nil || alert.WatchlistID != watchlistID {
		return model.NewAlertNotFoundError(alertID)
	}

	if err := s.alertRepo.Delete(ctx, alert.ID); err != nil {
		return fmt.Errorf("アラートの削除に失敗しました: %w", err)
	}

	slog.Info("price alert deleted",
		slog.String("user_id", userID),
		slog.String("alert_id", alertID),
	)

	return nil
}

// Triggered はユーザーの全ウォッチリストを対象に、
// 直近7日以内に発火したアラートを発火時刻降順で返す。
func (s *Service) Triggered(ctx context.Context, userID string) ([]*model.TriggeredAlert, error) {
	since := time.Now().Add(-triggeredWindow)
	alerts, err := s.alertRepo.ListTriggeredByUserID(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("発火済みアラートの取得に失敗しました: %w", err)
	}
	return alerts, nil
}

// CheckAlerts は取得済みオファーを有効なアラートと突き合わせ、
// 目標価格以下のオファーがあればアラートを発火させる。
// 発火したアラート数を返す。
func (s *Service) CheckAlerts(ctx context.Context, watchlistID string, offers []model.Offer, now time.Time) (int, error) {
	alerts, err := s.alertRepo.ListActiveByWatchlistID(ctx, watchlistID)
	if err != nil {
		return 0, fmt.Errorf("アラートの取得に失敗しました: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	byPlatform := make(map[model.Platform]model.Offer, len(offers))
	for _, offer := range offers {
		byPlatform[offer.Platform] = offer
	}

	triggered := 0
	for _, a := range alerts {
		offer, ok := byPlatform[a.Platform]
		if !ok || offer.Price > a.TargetPrice {
			continue
		}

		if err := s.alertRepo.UpdateLastTriggered(ctx, a.ID, now); err != nil {
			return triggered, fmt.Errorf("アラート発火時刻の更新に失敗しました: %w", err)
		}
		triggered++

		slog.Info("price alert triggered",
			slog.String("alert_id", a.ID),
			slog.String("watchlist_id", watchlistID),
			slog.String("platform", string(a.Platform)),
			slog.Int("target_price", a.TargetPrice),
			slog.Int("offer_price", offer.Price),
		)
	}

	return triggered, nil
}

// findOwnedWatchlist は所有権を検証してウォッチリスト項目を返す。
func (s *Service) findOwnedWatchlist(ctx context.Context, userID, watchlistID string) (*model.WatchlistItem, error) {
	item, err := s.watchlistRepo.FindByID(ctx, watchlistID)
	if err != nil {
		return nil, fmt.Errorf("ウォッチリストの取得に失敗しました: %w", err)
	}
	if item == nil || item.UserID != userID {
		return nil, model.NewWatchlistNotFoundError(watchlistID)
	}
	return item, nil
}
