// Package collect はスナップショットのバックグラウンド定期収集を提供する。
// ティッカーで全ウォッチリストを巡回し、semaphoreパターンで
// 最大並列数を制御しながら収集を実行する。
package collect

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/pricepulse/internal/metrics"
	"github.com/hitoshi/pricepulse/internal/model"
	"github.com/hitoshi/pricepulse/internal/repository"
	"github.com/hitoshi/pricepulse/internal/snapshot"
)

// SnapshotCollector はスナップショット収集の実行インターフェース。
type SnapshotCollector interface {
	// CollectItem は指定ウォッチリスト項目のオファーを収集し永続化する。
	CollectItem(ctx context.Context, item *model.WatchlistItem) (*snapshot.CollectResult, error)
}

// Scheduler はスナップショット収集のスケジューリングと並列制御を行う。
type Scheduler struct {
	watchlistRepo  repository.WatchlistRepository
	collector      SnapshotCollector
	metrics        metrics.MetricsCollector // nil可
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	watchlistRepo repository.WatchlistRepository,
	collector SnapshotCollector,
	collectorMetrics metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		watchlistRepo:  watchlistRepo,
		collector:      collector,
		metrics:        collectorMetrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("収集スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("収集サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("収集スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("収集サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は全ウォッチリストを1回取得し、並列で収集を実行する。
// 個別項目の収集エラーはログ記録のみでサイクル全体は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	items, err := s.watchlistRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		s.logger.Info("収集対象のウォッチリストはありません")
		return nil
	}

	s.logger.Info("収集サイクルを開始します",
		slog.Int("watchlist_count", len(items)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var snapshotCount, triggeredCount int64

	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(wi *model.WatchlistItem) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			result, err := s.collector.CollectItem(ctx, wi)
			if err != nil {
				s.logger.Error("スナップショット収集に失敗しました",
					slog.String("watchlist_id", wi.ID),
					slog.String("query", wi.Query),
					slog.String("error", err.Error()),
				)
				if s.metrics != nil {
					s.metrics.RecordSnapshotFailure(wi.ID)
				}
				return
			}
			atomic.AddInt64(&snapshotCount, int64(result.Count))
			atomic.AddInt64(&triggeredCount, int64(result.Triggered))
		}(item)
	}

	wg.Wait()

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordSnapshots(int(atomic.LoadInt64(&snapshotCount)))
		s.metrics.RecordAlertsTriggered(int(atomic.LoadInt64(&triggeredCount)))
		s.metrics.RecordCollectLatency(duration)
	}

	s.logger.Info("収集サイクルが完了しました",
		slog.Int("watchlist_count", len(items)),
		slog.Int64("snapshot_count", atomic.LoadInt64(&snapshotCount)),
		slog.Int64("alerts_triggered", atomic.LoadInt64(&triggeredCount)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
