package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/pricepulse/internal/model"
)

// --- モック定義 ---

// mockAlertService はAlertServiceInterfaceのモック実装。
type mockAlertService struct {
	upsertFn    func(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error)
	listFn      func(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error)
	deleteFn    func(ctx context.Context, userID, watchlistID, alertID string) error
	triggeredFn func(ctx context.Context, userID string) ([]*model.TriggeredAlert, error)
}

func (m *mockAlertService) Upsert(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, watchlistID, platform, targetPrice)
	}
	return nil, nil
}

func (m *mockAlertService) List(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, watchlistID)
	}
	return nil, nil
}

func (m *mockAlertService) Delete(ctx context.Context, userID, watchlistID, alertID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, watchlistID, alertID)
	}
	return nil
}

func (m *mockAlertService) Triggered(ctx context.Context, userID string) ([]*model.TriggeredAlert, error) {
	if m.triggeredFn != nil {
		return m.triggeredFn(ctx, userID)
	}
	return nil, nil
}

// --- GET /api/watchlist/:id/alerts テスト ---

func TestAlertHandler_List_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockAlertService{
		listFn: func(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error) {
			if watchlistID != "w-1" {
				t.Errorf("watchlistID = %q, want %q", watchlistID, "w-1")
			}
			return []*model.PriceAlert{
				{
					ID:          "a-1",
					WatchlistID: "w-1",
					Platform:    model.PlatformPChome,
					TargetPrice: 1000,
					IsActive:    true,
					CreatedAt:   now,
				},
			}, nil
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/watchlist/w-1/alerts", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result struct {
		Alerts []map[string]interface{} `json:"alerts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("alerts length = %d, want 1", len(result.Alerts))
	}
	if result.Alerts[0]["platform"] != "pchome" {
		t.Errorf("platform = %v, want %q", result.Alerts[0]["platform"], "pchome")
	}
	if int(result.Alerts[0]["target_price"].(float64)) != 1000 {
		t.Errorf("target_price = %v, want 1000", result.Alerts[0]["target_price"])
	}
	if result.Alerts[0]["is_active"] != true {
		t.Errorf("is_active = %v, want true", result.Alerts[0]["is_active"])
	}
	// 未発火のアラートはlast_triggeredが省略される
	if _, ok := result.Alerts[0]["last_triggered"]; ok {
		t.Error("last_triggered should be omitted for untriggered alert")
	}
}

func TestAlertHandler_List_WatchlistNotOwned_Returns404(t *testing.T) {
	svc := &mockAlertService{
		listFn: func(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error) {
			return nil, model.NewWatchlistNotFoundError(watchlistID)
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/watchlist/other/alerts", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "other")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- POST /api/watchlist/:id/alerts テスト ---

func TestAlertHandler_Upsert_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockAlertService{
		upsertFn: func(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error) {
			if platform != "shopee" {
				t.Errorf("platform = %q, want %q", platform, "shopee")
			}
			if targetPrice != 1200 {
				t.Errorf("targetPrice = %d, want 1200", targetPrice)
			}
			return &model.PriceAlert{
				ID:          "a-new",
				WatchlistID: watchlistID,
				Platform:    model.Platform(platform),
				TargetPrice: targetPrice,
				IsActive:    true,
				CreatedAt:   now,
			}, nil
		},
	}

	h := NewAlertHandler(svc)

	body := bytes.NewBufferString(`{"platform":"shopee","targetPrice":1200}`)
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/w-1/alerts", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	w := httptest.NewRecorder()

	h.Upsert(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result struct {
		Alert map[string]interface{} `json:"alert"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Alert["id"] != "a-new" {
		t.Errorf("id = %v, want %q", result.Alert["id"], "a-new")
	}
	if result.Alert["watchlist_id"] != "w-1" {
		t.Errorf("watchlist_id = %v, want %q", result.Alert["watchlist_id"], "w-1")
	}
}

func TestAlertHandler_Upsert_InvalidPlatform_Returns400(t *testing.T) {
	svc := &mockAlertService{
		upsertFn: func(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error) {
			return nil, model.NewInvalidPlatformError(platform)
		},
	}

	h := NewAlertHandler(svc)

	body := bytes.NewBufferString(`{"platform":"amazon","targetPrice":1200}`)
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/w-1/alerts", body)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	w := httptest.NewRecorder()

	h.Upsert(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	respBody := parseAPIErrorResponse(t, w)
	if respBody["code"] != "INVALID_PLATFORM" {
		t.Errorf("code = %q, want %q", respBody["code"], "INVALID_PLATFORM")
	}
}

func TestAlertHandler_Upsert_InvalidJSON_Returns400(t *testing.T) {
	h := NewAlertHandler(&mockAlertService{})

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist/w-1/alerts", bytes.NewBufferString("{invalid"))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	w := httptest.NewRecorder()

	h.Upsert(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- DELETE /api/watchlist/:id/alerts/:aid テスト ---

func TestAlertHandler_Delete_Success(t *testing.T) {
	var capturedWatchlistID, capturedAlertID string
	svc := &mockAlertService{
		deleteFn: func(ctx context.Context, userID, watchlistID, alertID string) error {
			capturedWatchlistID = watchlistID
			capturedAlertID = alertID
			return nil
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchlist/w-1/alerts/a-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	req = withChiURLParam(req, "aid", "a-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedWatchlistID != "w-1" {
		t.Errorf("watchlistID = %q, want %q", capturedWatchlistID, "w-1")
	}
	if capturedAlertID != "a-1" {
		t.Errorf("alertID = %q, want %q", capturedAlertID, "a-1")
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("ok = %v, want true", result["ok"])
	}
}

func TestAlertHandler_Delete_AlertNotFound_Returns404(t *testing.T) {
	svc := &mockAlertService{
		deleteFn: func(ctx context.Context, userID, watchlistID, alertID string) error {
			return model.NewAlertNotFoundError(alertID)
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchlist/w-1/alerts/missing", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "w-1")
	req = withChiURLParam(req, "aid", "missing")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	respBody := parseAPIErrorResponse(t, w)
	if respBody["code"] != "ALERT_NOT_FOUND" {
		t.Errorf("code = %q, want %q", respBody["code"], "ALERT_NOT_FOUND")
	}
}

// --- GET /api/alerts/triggered テスト ---

func TestAlertHandler_Triggered_Success(t *testing.T) {
	triggeredAt := time.Now().UTC().Truncate(time.Second)
	svc := &mockAlertService{
		triggeredFn: func(ctx context.Context, userID string) ([]*model.TriggeredAlert, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return []*model.TriggeredAlert{
				{
					ID:            "a-1",
					Platform:      model.PlatformMomo,
					TargetPrice:   2000,
					LastTriggered: triggeredAt,
					Query:         "gaming mouse",
				},
			}, nil
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/triggered", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Triggered(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result struct {
		Alerts []map[string]interface{} `json:"alerts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("alerts length = %d, want 1", len(result.Alerts))
	}
	if result.Alerts[0]["query"] != "gaming mouse" {
		t.Errorf("query = %v, want %q", result.Alerts[0]["query"], "gaming mouse")
	}
	if result.Alerts[0]["platform"] != "momo" {
		t.Errorf("platform = %v, want %q", result.Alerts[0]["platform"], "momo")
	}
}

func TestAlertHandler_Triggered_Empty(t *testing.T) {
	svc := &mockAlertService{
		triggeredFn: func(ctx context.Context, userID string) ([]*model.TriggeredAlert, error) {
			return []*model.TriggeredAlert{}, nil
		},
	}

	h := NewAlertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/triggered", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Triggered(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result struct {
		Alerts []map[string]interface{} `json:"alerts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("alerts length = %d, want 0", len(result.Alerts))
	}
}

func TestAlertHandler_Triggered_NoUserID_Returns401(t *testing.T) {
	h := NewAlertHandler(&mockAlertService{})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/triggered", nil)
	w := httptest.NewRecorder()

	h.Triggered(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
