package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/pricepulse/internal/metrics"
	"github.com/hitoshi/pricepulse/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なDB疎通確認のインターフェース。
// *sql.DB がこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// メトリクス（nil可）
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 検索・ウォッチリスト・アラート
	SearchService    SearchServiceInterface
	WatchlistService WatchlistServiceInterface
	SnapshotService  SnapshotServiceInterface
	AlertService     AlertServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → [Metrics]
//	認証が必要なルートはさらに Session → RateLimit(General) → CSRF
//
// 認証エンドポイント（register/login）にはIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics.RecordHTTPStatus))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	searchHandler := NewSearchHandler(deps.SearchService, deps.Metrics)
	watchlistHandler := NewWatchlistHandler(deps.WatchlistService, deps.SnapshotService)
	alertHandler := NewAlertHandler(deps.AlertService)

	// --- 認証不要のルート ---

	r.Get("/healthz", newHealthzHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// CSRFトークン取得（SPAがPOST前に取得する）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// オファー検索（セッション不要）
	r.Get("/api/search", searchHandler.Search)

	// 認証ルート（register/loginはIP単位のレート制限を適用）
	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ウォッチリスト管理
		r.Route("/api/watchlist", func(r chi.Router) {
			r.Get("/", watchlistHandler.List)
			r.Post("/", watchlistHandler.Add)
			r.Post("/snapshot-all", watchlistHandler.SnapshotAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", watchlistHandler.Delete)
				r.Post("/snapshot", watchlistHandler.Snapshot)
				r.Get("/history", watchlistHandler.History)

				// 価格アラート管理
				r.Get("/alerts", alertHandler.List)
				r.Post("/alerts", alertHandler.Upsert)
				r.Delete("/alerts/{aid}", alertHandler.Delete)
			})
		})

		// 発火済みアラート一覧
		r.Get("/api/alerts/triggered", alertHandler.Triggered)
	})

	return r
}

// newHealthzHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthzHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]interface{}{"ok": false})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"ts": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
