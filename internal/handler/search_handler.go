package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/pricepulse/internal/metrics"
	"github.com/hitoshi/pricepulse/internal/model"
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// Search はキーワードに対するオファー一覧を生成して返す。
	Search(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error)
}

// SearchHandler はオファー検索のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
	metrics metrics.MetricsCollector // nil可
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface, collector metrics.MetricsCollector) *SearchHandler {
	return &SearchHandler{
		service: service,
		metrics: collector,
	}
}

// offerResponse はオファー1件のAPIレスポンス。
type offerResponse struct {
	Platform  string    `json:"platform"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
	Badge     string    `json:"badge"`
}

// Search はキーワード検索を実行し、オファー一覧を返す。
// 空キーワードは空リストを返す。
// GET /api/search?q=&minPrice=&maxPrice=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	minPrice, err := parseOptionalPrice(r, "minPrice")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPriceRangeError())
		return
	}
	maxPrice, err := parseOptionalPrice(r, "maxPrice")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPriceRangeError())
		return
	}

	offers, err := h.service.Search(r.Context(), query, minPrice, maxPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSearch()
	}

	items := make([]offerResponse, len(offers))
	for i, offer := range offers {
		items[i] = toOfferResponse(offer)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// parseOptionalPrice はクエリパラメータから省略可能な価格を読み取る。
// 未指定または空文字列の場合はnilを返す。
func parseOptionalPrice(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// toOfferResponse はmodel.OfferからAPIレスポンスに変換する。
func toOfferResponse(offer model.Offer) offerResponse {
	return offerResponse{
		Platform:  string(offer.Platform),
		Title:     offer.Title,
		Price:     offer.Price,
		URL:       offer.URL,
		UpdatedAt: offer.UpdatedAt,
		Badge:     string(offer.Badge),
	}
}
