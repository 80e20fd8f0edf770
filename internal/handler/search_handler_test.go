package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/pricepulse/internal/metrics"
	"github.com/hitoshi/pricepulse/internal/model"
)

// --- モック定義 ---

// mockSearchService はSearchServiceInterfaceのモック実装。
type mockSearchService struct {
	searchFn func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error)
}

func (m *mockSearchService) Search(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, minPrice, maxPrice)
	}
	return nil, nil
}

func testOffers() []model.Offer {
	now := time.Now().UTC().Truncate(time.Second)
	return []model.Offer{
		{Platform: model.PlatformPChome, Title: "mouse｜PChome（搜尋頁）", Price: 1500, URL: "https://ecshweb.pchome.com.tw/search/v3.3/?q=mouse", UpdatedAt: now, Badge: model.BadgeLowest},
		{Platform: model.PlatformShopee, Title: "mouse｜蝦皮購物（搜尋頁）", Price: 1620, URL: "https://shopee.tw/search?keyword=mouse", UpdatedAt: now, Badge: model.BadgeBuyable},
		{Platform: model.PlatformMomo, Title: "mouse｜momo購物網（搜尋頁）", Price: 1740, URL: "https://www.momoshop.com.tw/search/searchShop.jsp?keyword=mouse", UpdatedAt: now, Badge: model.BadgeBuyable},
	}
}

// --- GET /api/search テスト ---

func TestSearchHandler_Search_Success(t *testing.T) {
	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			if query != "mouse" {
				t.Errorf("query = %q, want %q", query, "mouse")
			}
			if minPrice == nil || *minPrice != 500 {
				t.Errorf("minPrice = %v, want 500", minPrice)
			}
			if maxPrice == nil || *maxPrice != 3000 {
				t.Errorf("maxPrice = %v, want 3000", maxPrice)
			}
			return testOffers(), nil
		},
	}

	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=mouse&minPrice=500&maxPrice=3000", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("items length = %d, want 3", len(result.Items))
	}
	if result.Items[0]["platform"] != "pchome" {
		t.Errorf("platform = %v, want %q", result.Items[0]["platform"], "pchome")
	}
	if result.Items[0]["badge"] != "lowest" {
		t.Errorf("badge = %v, want %q", result.Items[0]["badge"], "lowest")
	}
	if int(result.Items[0]["price"].(float64)) != 1500 {
		t.Errorf("price = %v, want 1500", result.Items[0]["price"])
	}
}

func TestSearchHandler_Search_NoPriceParams_PassesNil(t *testing.T) {
	var capturedMin, capturedMax *int
	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			capturedMin = minPrice
			capturedMax = maxPrice
			return testOffers(), nil
		},
	}

	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=mouse", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedMin != nil || capturedMax != nil {
		t.Errorf("minPrice/maxPrice = %v/%v, want nil/nil", capturedMin, capturedMax)
	}
}

func TestSearchHandler_Search_EmptyQuery_ReturnsEmptyItems(t *testing.T) {
	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			return []model.Offer{}, nil
		},
	}

	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var result struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Items == nil {
		t.Error("items should be an empty array, not null")
	}
	if len(result.Items) != 0 {
		t.Errorf("items length = %d, want 0", len(result.Items))
	}
}

func TestSearchHandler_Search_NonNumericPrice_Returns400(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"NonNumericMin", "/api/search?q=mouse&minPrice=abc"},
		{"NonNumericMax", "/api/search?q=mouse&maxPrice=1.5x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSearchHandler(&mockSearchService{}, nil)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			h.Search(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}

			body := parseAPIErrorResponse(t, w)
			if body["code"] != "INVALID_PRICE_RANGE" {
				t.Errorf("code = %q, want %q", body["code"], "INVALID_PRICE_RANGE")
			}
		})
	}
}

func TestSearchHandler_Search_OutOfRangePrice_Returns400(t *testing.T) {
	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			return nil, model.NewInvalidPriceRangeError()
		},
	}

	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=mouse&minPrice=1000000", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestSearchHandler_Search_QueryTooLong_Returns400(t *testing.T) {
	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			return nil, model.NewInvalidQueryError("キーワードが長すぎます")
		},
	}

	h := NewSearchHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=verylongquery", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	body := parseAPIErrorResponse(t, w)
	if body["code"] != "INVALID_QUERY" {
		t.Errorf("code = %q, want %q", body["code"], "INVALID_QUERY")
	}
}

func TestSearchHandler_Search_RecordsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	svc := &mockSearchService{
		searchFn: func(ctx context.Context, query string, minPrice, maxPrice *int) ([]model.Offer, error) {
			return testOffers(), nil
		},
	}

	h := NewSearchHandler(svc, collector)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=mouse", nil)
	w := httptest.NewRecorder()

	h.Search(w, req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "pricepulse_searches_total" {
			found = true
			if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
				t.Errorf("searches_total = %v, want 1", val)
			}
		}
	}
	if !found {
		t.Error("pricepulse_searches_total metric not found")
	}
}
