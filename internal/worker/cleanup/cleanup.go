// Package cleanup は古いデータの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過した価格スナップショットと
// 期限切れセッションを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SnapshotPruner はスナップショット削除に必要なインターフェース。
// repository.SnapshotRepositoryの部分集合として定義する。
type SnapshotPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionPruner はセッション削除に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は保持期間を超過したスナップショットと期限切れセッションの
// 自動削除ジョブ。日次実行のバッチジョブとして設計されており、
// 冪等な削除処理を保証する。
type CleanupJob struct {
	snapshots     SnapshotPruner
	sessions      SessionPruner
	logger        *slog.Logger
	RetentionDays int // スナップショットの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(snapshots SnapshotPruner, sessions SessionPruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		snapshots:     snapshots,
		sessions:      sessions,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は保持期間を超過したスナップショットと期限切れセッションを削除する。
// collected_atがRetentionDays日前より古いスナップショットをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)

	snapshotCount, err := j.snapshots.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("スナップショットクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("スナップショットクリーンアップの実行に失敗: %w", err)
	}

	sessionCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_snapshots", snapshotCount),
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
