// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSearch()
	RecordSnapshots(count int)
	RecordSnapshotFailure(watchlistID string)
	RecordAlertsTriggered(count int)
	RecordHTTPStatus(statusCode int)
	RecordCollectLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	searches        prometheus.Counter
	snapshots       prometheus.Counter
	snapshotFail    prometheus.Counter
	alertsTriggered prometheus.Counter
	httpStatus      *prometheus.CounterVec
	collectLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepulse_searches_total",
			Help: "オファー検索の合計数",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepulse_snapshots_total",
			Help: "保存された価格スナップショット行の合計数",
		}),
		snapshotFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepulse_snapshot_failures_total",
			Help: "スナップショット収集失敗の合計数",
		}),
		alertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricepulse_alerts_triggered_total",
			Help: "発火した価格アラートの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		collectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricepulse_collect_latency_seconds",
			Help:    "スナップショット収集のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.searches,
		c.snapshots,
		c.snapshotFail,
		c.alertsTriggered,
		c.httpStatus,
		c.collectLatency,
	)

	return c
}

// RecordSearch はオファー検索を記録する。
func (c *Collector) RecordSearch() {
	c.searches.Inc()
}

// RecordSnapshots は保存されたスナップショット行数を記録する。
func (c *Collector) RecordSnapshots(count int) {
	c.snapshots.Add(float64(count))
}

// RecordSnapshotFailure はスナップショット収集失敗を記録する。
func (c *Collector) RecordSnapshotFailure(watchlistID string) {
	c.snapshotFail.Inc()
}

// RecordAlertsTriggered は発火したアラート数を記録する。
func (c *Collector) RecordAlertsTriggered(count int) {
	c.alertsTriggered.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCollectLatency は収集のレイテンシを記録する。
func (c *Collector) RecordCollectLatency(duration time.Duration) {
	c.collectLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
