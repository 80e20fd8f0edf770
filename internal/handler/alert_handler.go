package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pricepulse/internal/middleware"
	"github.com/hitoshi/pricepulse/internal/model"
)

// AlertServiceInterface はアラートハンドラーが必要とするサービスインターフェース。
type AlertServiceInterface interface {
	// Upsert は指定ウォッチリストにアラートを設定する。
	Upsert(ctx context.Context, userID, watchlistID, platform string, targetPrice int) (*model.PriceAlert, error)
	// List は指定ウォッチリストのアラート一覧を返す。
	List(ctx context.Context, userID, watchlistID string) ([]*model.PriceAlert, error)
	// Delete は指定アラートを削除する。
	Delete(ctx context.Context, userID, watchlistID, alertID string) error
	// Triggered は直近7日以内に発火したアラートを返す。
	Triggered(ctx context.Context, userID string) ([]*model.TriggeredAlert, error)
}

// AlertHandler は価格アラート管理のHTTPハンドラー。
type AlertHandler struct {
	service AlertServiceInterface
}

// NewAlertHandler はAlertHandlerを生成する。
func NewAlertHandler(service AlertServiceInterface) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

// alertRequest はアラート設定リクエストのボディ。
type alertRequest struct {
	Platform    string `json:"platform"`
	TargetPrice int    `json:"targetPrice"`
}

// alertResponse は価格アラートのAPIレスポンス。
type alertResponse struct {
	ID            string     `json:"id"`
	WatchlistID   string     `json:"watchlist_id"`
	Platform      string     `json:"platform"`
	TargetPrice   int        `json:"target_price"`
	IsActive      bool       `json:"is_active"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// triggeredAlertResponse は発火済みアラートのAPIレスポンス。
type triggeredAlertResponse struct {
	ID            string    `json:"id"`
	Platform      string    `json:"platform"`
	TargetPrice   int       `json:"target_price"`
	LastTriggered time.Time `json:"last_triggered"`
	Query         string    `json:"query"`
}

// List は指定ウォッチリストのアラート一覧を取得する。
// GET /api/watchlist/:id/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")

	alerts, err := h.service.List(r.Context(), userID, watchlistID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]alertResponse, len(alerts))
	for i, alert := range alerts {
		responses[i] = toAlertResponse(alert)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alerts": responses,
	})
}

// Upsert は指定ウォッチリストにアラートを設定する。
// 同一プラットフォームの既存アラートは目標価格を更新する。
// POST /api/watchlist/:id/alerts
func (h *AlertHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")

	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	alert, err := h.service.Upsert(r.Context(), userID, watchlistID, req.Platform, req.TargetPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alert": toAlertResponse(alert),
	})
}

// Delete は指定アラートを削除する。
// DELETE /api/watchlist/:id/alerts/:aid
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")
	alertID := chi.URLParam(r, "aid")

	if err := h.service.Delete(r.Context(), userID, watchlistID, alertID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
}

// Triggered はユーザーの直近7日以内に発火したアラート一覧を取得する。
// GET /api/alerts/triggered
func (h *AlertHandler) Triggered(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	alerts, err := h.service.Triggered(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]triggeredAlertResponse, len(alerts))
	for i, alert := range alerts {
		responses[i] = triggeredAlertResponse{
			ID:            alert.ID,
			Platform:      string(alert.Platform),
			TargetPrice:   alert.TargetPrice,
			LastTriggered: alert.LastTriggered,
			Query:         alert.Query,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alerts": responses,
	})
}

// toAlertResponse はmodel.PriceAlertからAPIレスポンスに変換する。
func toAlertResponse(alert *model.PriceAlert) alertResponse {
	return alertResponse{
		ID:            alert.ID,
		WatchlistID:   alert.WatchlistID,
		Platform:      string(alert.Platform),
		TargetPrice:   alert.TargetPrice,
		IsActive:      alert.IsActive,
		LastTriggered: alert.LastTriggered,
		CreatedAt:     alert.CreatedAt,
	}
}
