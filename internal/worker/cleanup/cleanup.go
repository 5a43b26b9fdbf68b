// Package cleanup は既読通知の定期削除バッチを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NotificationPurger は既読通知の削除インターフェース。
// repository.NotificationRepositoryが満たす。
type NotificationPurger interface {
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を過ぎた既読通知を削除するバッチジョブ。
// 未読通知は期間に関係なく残す。
type CleanupJob struct {
	repo          NotificationPurger
	logger        *slog.Logger
	RetentionDays int // 既読通知の保持日数（デフォルト: 30）
	now           func() time.Time
}

// NewCleanupJob はCleanupJobの新しいインスタンスを生成する。
// retentionDaysが0以下の場合はデフォルト値30を使用する。
func NewCleanupJob(repo NotificationPurger, logger *slog.Logger, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CleanupJob{
		repo:          repo,
		logger:        logger,
		RetentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run はクリーンアップを1回実行し、削除件数を返す。
// created_atがRetentionDays日前より古い既読通知をDELETEする。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := j.now()
	before := start.AddDate(0, 0, -j.RetentionDays)

	deleted, err := j.repo.DeleteReadBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("既読通知の削除に失敗しました: %w", err)
	}

	j.logger.Info("既読通知のクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("before", before),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return deleted, nil
}

// Start は指定間隔のティッカーでクリーンアップを繰り返し実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	j.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
