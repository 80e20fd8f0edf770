package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pricepulse/internal/middleware"
	"github.com/hitoshi/pricepulse/internal/model"
	"github.com/hitoshi/pricepulse/internal/snapshot"
	"github.com/hitoshi/pricepulse/internal/watchlist"
)

// WatchlistServiceInterface はウォッチリストハンドラーが必要とするサービスインターフェース。
type WatchlistServiceInterface interface {
	// Add はウォッチリストに項目を追加する。既存キーワードは価格帯のみ更新する。
	Add(ctx context.Context, userID, query string, minPrice, maxPrice *int) (*model.WatchlistItem, error)
	// List はユーザーのウォッチリスト一覧を返す。
	List(ctx context.Context, userID string) ([]*model.WatchlistItem, error)
	// Delete はウォッチリスト項目を削除する。
	Delete(ctx context.Context, userID, watchlistID string) error
	// History は指定ウォッチリストの価格履歴を返す。
	History(ctx context.Context, userID, watchlistID string, days int) (string, []watchlist.HistoryEntry, error)
}

// SnapshotServiceInterface はスナップショット収集のサービスインターフェース。
type SnapshotServiceInterface interface {
	// Collect は指定ウォッチリストのスナップショットを収集する。
	Collect(ctx context.Context, userID, watchlistID string) (*snapshot.CollectResult, error)
	// CollectAll はユーザーの全ウォッチリストを順次収集する。
	CollectAll(ctx context.Context, userID string) ([]*snapshot.CollectResult, error)
}

// WatchlistHandler はウォッチリスト管理のHTTPハンドラー。
type WatchlistHandler struct {
	service         WatchlistServiceInterface
	snapshotService SnapshotServiceInterface
}

// NewWatchlistHandler はWatchlistHandlerを生成する。
func NewWatchlistHandler(service WatchlistServiceInterface, snapshotService SnapshotServiceInterface) *WatchlistHandler {
	return &WatchlistHandler{
		service:         service,
		snapshotService: snapshotService,
	}
}

// watchlistItemRequest はウォッチリスト登録リクエストのボディ。
type watchlistItemRequest struct {
	Query    string `json:"query"`
	MinPrice *int   `json:"minPrice"`
	MaxPrice *int   `json:"maxPrice"`
}

// watchlistItemResponse はウォッチリスト項目のAPIレスポンス。
type watchlistItemResponse struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	MinPrice  *int      `json:"min_price,omitempty"`
	MaxPrice  *int      `json:"max_price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// collectResultResponse はスナップショット収集結果のAPIレスポンス。
type collectResultResponse struct {
	WatchlistID string    `json:"watchlist_id"`
	Query       string    `json:"query"`
	Count       int       `json:"count"`
	CollectedAt time.Time `json:"collected_at"`
}

// historyEntryResponse は価格履歴1エントリのAPIレスポンス。
type historyEntryResponse struct {
	Platform    string    `json:"platform"`
	Price       int       `json:"price"`
	CollectedAt time.Time `json:"collected_at"`
}

// List はユーザーのウォッチリスト一覧を取得する。
// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]watchlistItemResponse, len(items))
	for i, item := range items {
		responses[i] = toWatchlistItemResponse(item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": responses,
	})
}

// Add はウォッチリストに項目を追加する。
// POST /api/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req watchlistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	item, err := h.service.Add(r.Context(), userID, req.Query, req.MinPrice, req.MaxPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"item": toWatchlistItemResponse(item),
	})
}

// Delete はウォッチリスト項目を削除する。
// DELETE /api/watchlist/:id
func (h *WatchlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, watchlistID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
}

// Snapshot は指定ウォッチリストのスナップショットを収集する。
// POST /api/watchlist/:id/snapshot
func (h *WatchlistHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")

	result, err := h.snapshotService.Collect(r.Context(), userID, watchlistID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":        result.Count,
		"collected_at": result.CollectedAt,
	})
}

// SnapshotAll はユーザーの全ウォッチリストのスナップショットを収集する。
// 1件でも失敗した場合は残りを中断しエラーを返す。
// POST /api/watchlist/snapshot-all
func (h *WatchlistHandler) SnapshotAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	results, err := h.snapshotService.CollectAll(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]collectResultResponse, len(results))
	total := 0
	for i, result := range results {
		responses[i] = collectResultResponse{
			WatchlistID: result.WatchlistID,
			Query:       result.Query,
			Count:       result.Count,
			CollectedAt: result.CollectedAt,
		}
		total += result.Count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": responses,
		"total": total,
	})
}

// History は指定ウォッチリストの価格履歴を取得する。
// GET /api/watchlist/:id/history?days=
func (h *WatchlistHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	watchlistID := chi.URLParam(r, "id")

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     model.ErrCodeInvalidHistoryDays,
				Message:  "daysは整数で指定してください。",
				Category: "validation",
				Action:   "daysは1〜90の範囲で指定してください。",
			})
			return
		}
	}

	query, entries, err := h.service.History(r.Context(), userID, watchlistID, days)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	history := make([]historyEntryResponse, len(entries))
	for i, entry := range entries {
		history[i] = historyEntryResponse{
			Platform:    string(entry.Platform),
			Price:       entry.Price,
			CollectedAt: entry.CollectedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"query":   query,
		"history": history,
	})
}

// --- ヘルパー関数 ---

// toWatchlistItemResponse はmodel.WatchlistItemからAPIレスポンスに変換する。
func toWatchlistItemResponse(item *model.WatchlistItem) watchlistItemResponse {
	return watchlistItemResponse{
		ID:        item.ID,
		Query:     item.Query,
		MinPrice:  item.MinPrice,
		MaxPrice:  item.MaxPrice,
		CreatedAt: item.CreatedAt,
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンスボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidQuery,
		model.ErrCodeInvalidPriceRange,
		model.ErrCodeInvalidEmail,
		model.ErrCodeInvalidPassword,
		model.ErrCodeInvalidPlatform,
		model.ErrCodeInvalidHistoryDays:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeWatchlistNotFound, model.ErrCodeAlertNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// unauthorizedError はセッション未認証エラーを生成する。
func unauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// invalidRequestBodyError はリクエストボディ解析失敗エラーを生成する。
func invalidRequestBodyError() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
