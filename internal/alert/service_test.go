package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/pricepulse/internal/model"
)

// --- モック ---

type mockWatchlistRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.WatchlistItem, error)
}

func (m *mockWatchlistRepo) FindByID(ctx context.Context, id string) (*model.WatchlistItem, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockWatchlistRepo) ListByUserID(ctx context.Context, userID string) ([]*model.WatchlistItem, error) {
	return nil, nil
}
func (m *mockWatchlistRepo) ListAll(ctx context.Context) ([]*model.WatchlistItem, error) {
	return nil, nil
}
func (m *mockWatchlistRepo) Upsert(ctx context.Context, item *model.WatchlistItem) (*model.WatchlistItem, error) {
	return item, nil
}
func (m *mockWatchlistRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type mockAlertRepo struct {
	findByIDFn              func(ctx context.Context, id string) (*model.PriceAlert, error)
	listByWatchlistIDFn     func(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error)
	listActiveFn            func(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error)
	upsertFn                func(ctx context.Context, alert *model.PriceAlert) (*model.PriceAlert, error)
	updateLastTriggeredFn   func(ctx context.Context, id string, triggeredAt time.Time) error
	deleteFn                func(ctx context.Context, id string) error
	listTriggeredByUserIDFn func(ctx context.Context, userID string, since time.Time) ([]*model.TriggeredAlert, error)
}

func (m *mockAlertRepo) FindByID(ctx context.Context, id string) (*model.PriceAlert, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockAlertRepo) ListByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
	if m.listByWatchlistIDFn != nil {
		return m.listByWatchlistIDFn(ctx, watchlistID)
	}
	return nil, nil
}
func (m *mockAlertRepo) ListActiveByWatchlistID(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, watchlistID)
	}
	return nil, nil
}
func (m *mockAlertRepo) Upsert(ctx context.Context, alert *model.PriceAlert) (*model.PriceAlert, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, alert)
	}
	return alert, nil
}
func (m *mockAlertRepo) UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	if m.updateLastTriggeredFn != nil {
		return m.updateLastTriggeredFn(ctx, id, triggeredAt)
	}
	return nil
}
func (m *mockAlertRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockAlertRepo) ListTriggeredByUserID(ctx context.Context, userID string, since time.Time) ([]*model.TriggeredAlert, error) {
	if m.listTriggeredByUserIDFn != nil {
		return m.listTriggeredByUserIDFn(ctx, userID, since)
	}
	return nil, nil
}

func ownedWatchlistRepo(userID string) *mockWatchlistRepo {
	return &mockWatchlistRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.WatchlistItem, error) {
			return &model.WatchlistItem{ID: id, UserID: userID, Query: "mouse"}, nil
		},
	}
}

// --- Upsert ---

func TestUpsert_Success(t *testing.T) {
	var saved *model.PriceAlert
	alertRepo := &mockAlertRepo{
		upsertFn: func(ctx context.Context, alert *model.PriceAlert) (*model.PriceAlert, error) {
			saved = alert
			return alert, nil
		},
	}
	svc := NewService(ownedWatchlistRepo("u-1"), alertRepo)

	alert, err := svc.Upsert(context.Background(), "u-1", "w-1", "shopee", 1500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if saved == nil {
		t.Fatal("alert was not persisted")
	}
	if alert.Platform != model.PlatformShopee {
		t.Errorf("Platform = %q, want %q", alert.Platform, model.PlatformShopee)
	}
	if alert.TargetPrice != 1500 {
		t.Errorf("TargetPrice = %d, want 1500", alert.TargetPrice)
	}
	if !alert.IsActive {
		t.Error("new alert should be active")
	}
}

func TestUpsert_InvalidPlatform(t *testing.T) {
	svc := NewService(ownedWatchlistRepo("u-1"), &mockAlertRepo{})

	_, err := svc.Upsert(context.Background(), "u-1", "w-1", "amazon", 1500)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidPlatform {
		t.Errorf("error = %v, want INVALID_PLATFORM", err)
	}
}

func TestUpsert_InvalidTargetPrice(t *testing.T) {
	tests := []struct {
		name    string
		price   int
		wantErr bool
	}{
		{"0は許可", 0, false},
		{"999999は許可", 999999, false},
		{"負数は拒否", -1, true},
		{"上限超過は拒否", 1000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(ownedWatchlistRepo("u-1"), &mockAlertRepo{})
			_, err := svc.Upsert(context.Background(), "u-1", "w-1", "pchome", tt.price)

			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidPriceRange {
					t.Errorf("error = %v, want INVALID_PRICE_RANGE", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestUpsert_WatchlistNotOwned(t *testing.T) {
	svc := NewService(ownedWatchlistRepo("other-user"), &mockAlertRepo{})

	_, err := svc.Upsert(context.Background(), "u-1", "w-1", "pchome", 1500)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeWatchlistNotFound {
		t.Errorf("error = %v, want WATCHLIST_NOT_FOUND", err)
	}
}

// --- List ---

func TestList_ReturnsAlerts(t *testing.T) {
	alertRepo := &mockAlertRepo{
		listByWatchlistIDFn: func(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
			return []*model.PriceAlert{
				{ID: "a-1", WatchlistID: watchlistID, Platform: model.PlatformPChome, TargetPrice: 1000},
				{ID: "a-2", WatchlistID: watchlistID, Platform: model.PlatformMomo, TargetPrice: 2000, IsActive: true},
			}, nil
		},
	}
	svc := NewService(ownedWatchlistRepo("u-1"), alertRepo)

	alerts, err := svc.List(context.Background(), "u-1", "w-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("len(alerts) = %d, want 2", len(alerts))
	}
}

// --- Delete ---

func TestDelete_Success(t *testing.T) {
	var deletedID string
	alertRepo := &mockAlertRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.PriceAlert, error) {
			return &model.PriceAlert{ID: id, WatchlistID: "w-1"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(ownedWatchlistRepo("u-1"), alertRepo)

	if err := svc.Delete(context.Background(), "u-1", "w-1", "a-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deletedID != "a-1" {
		t.Errorf("deleted ID = %q, want %q", deletedID, "a-1")
	}
}

func TestDelete_AlertNotInWatchlist(t *testing.T) {
	alertRepo := &mockAlertRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.PriceAlert, error) {
			// 別のウォッチリストに属するアラート
			return &model.PriceAlert{ID: id, WatchlistID: "w-other"}, nil
		},
	}
	svc := NewService(ownedWatchlistRepo("u-1"), alertRepo)

	err := svc.Delete(context.Background(), "u-1", "w-1", "a-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAlertNotFound {
		t.Errorf("error = %v, want ALERT_NOT_FOUND", err)
	}
}

func TestDelete_AlertNotFound(t *testing.T) {
	svc := NewService(ownedWatchlistRepo("u-1"), &mockAlertRepo{})

	err := svc.Delete(context.Background(), "u-1", "w-1", "a-missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAlertNotFound {
		t.Errorf("error = %v, want ALERT_NOT_FOUND", err)
	}
}

// --- Triggered ---

func TestTriggered_UsesSevenDayWindow(t *testing.T) {
	var gotSince time.Time
	alertRepo := &mockAlertRepo{
		listTriggeredByUserIDFn: func(ctx context.Context, userID string, since time.Time) ([]*model.TriggeredAlert, error) {
			gotSince = since
			return []*model.TriggeredAlert{
				{ID: "a-1", Platform: model.PlatformPChome, TargetPrice: 1000, Query: "mouse"},
			}, nil
		},
	}
	svc := NewService(&mockWatchlistRepo{}, alertRepo)

	alerts, err := svc.Triggered(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("len(alerts) = %d, want 1", len(alerts))
	}

	want := time.Now().Add(-7 * 24 * time.Hour)
	if diff := gotSince.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("since = %v, want ~%v", gotSince, want)
	}
}

// --- CheckAlerts ---

func TestCheckAlerts_TriggersAtOrBelowTarget(t *testing.T) {
	now := time.Now()
	triggeredIDs := map[string]time.Time{}

	alertRepo := &mockAlertRepo{
		listActiveFn: func(ctx context.Context, watchlistID string) ([]*model.PriceAlert, error) {
			return []*model.PriceAlert{
				{ID: "a-pchome", WatchlistID: watchlistID, Platform: model.PlatformPChome, TargetPrice: 1200, IsActive: true},
				{ID: "a-shopee", WatchlistID: watchlistID, Platform: model.PlatformShopee, TargetPrice: 1000, IsActive: true},
				{ID: "a-momo", WatchlistID: watchlistID, Platform: model.PlatformMomo, TargetPrice: 2000, IsActive: true},
			}, nil
		},
		updateLastTriggeredFn: func(ctx context.Context, id string, triggeredAt time.Time) error {
			triggeredIDs[id] = triggeredAt
			return nil
		},
	}
	svc := NewService(&mockWatchlistRepo{}, alertRepo)

	offers := []model.Offer{
		{Platform: model.PlatformPChome, Price: 1200}, // 目標価格ちょうど → 発火
		{Platform: model.PlatformShopee, Price: 1100}, // 目標超過 → 発火しない
		{Platform: model.PlatformMomo, Price: 1500},   // 目標以下 → 発火
	}

	count, err := svc.CheckAlerts(context.Background(), "w-1", offers, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if count != 2 {
		t.Errorf("triggered count = %d, want 2", count)
	}
	if _, ok := triggeredIDs["a-pchome"]; !ok {
		t.Error("a-pchome should have been triggered (price == target)")
	}
	if _, ok := triggeredIDs["a-shopee"]; ok {
		t.Error("a-shopee should not have been triggered (price > target)")
	}
	if at, ok := triggeredIDs["a-momo"]; !ok || !at.Equal(now) {
		t.Errorf("a-momo triggered at %v, want %v", at, now)
	}
}

func TestCheckAlerts_NoActiveAlerts(t *testing.T) {
	svc := NewService(&mockWatchlistRepo{}, &mockAlertRepo{})

	count, err := svc.CheckAlerts(context.Background(), "w-1", []model.Offer{
		{Platform: model.PlatformPChome, Price: 100},
	}, time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if count != 0 {
		t.Errorf("triggered count = %d, want 0", count)
	}
}
