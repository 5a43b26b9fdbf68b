// Package block はユーザー間ブロックの作成・解除と判定を提供する。
package block

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository"
)

// Service はブロックのサービス層。
// ブロックは有向だが、判定はどちら向きでも成立する。
type Service struct {
	userRepo  repository.UserRepository
	blockRepo repository.BlockRepository
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	blockRepo repository.BlockRepository,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		userRepo:  userRepo,
		blockRepo: blockRepo,
		metrics:   collector,
		now:       time.Now,
	}
}

// Block は blockerID が blockedID をブロックし、既存のマッチを解消したかを返す。
// 2人の間のいいね（両方向）とマッチはブロック作成と同じトランザクションで削除される。
func (s *Service) Block(ctx context.Context, blockerID, blockedID string) (bool, error) {
	if blockerID == blockedID {
		return false, model.NewSelfBlockError()
	}

	target, err := s.userRepo.FindByID(ctx, blockedID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return false, model.NewUserNotFoundError(blockedID)
	}

	b := &model.Block{
		ID:        uuid.NewString(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: s.now().UTC(),
	}
	dissolved, err := s.blockRepo.Create(ctx, b)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return false, model.NewDuplicateBlockError()
		case errors.Is(err, repository.ErrNotFound):
			return false, model.NewUserNotFoundError(blockedID)
		}
		return false, fmt.Errorf("ブロックの作成に失敗しました: %w", err)
	}

	s.metrics.RecordBlock()
	if dissolved {
		s.metrics.RecordMatchDissolved()
	}
	slog.Info("ユーザーをブロックしました",
		slog.String("user_id", blockerID),
		slog.String("target_user_id", blockedID),
		slog.Bool("match_dissolved", dissolved),
	)
	return dissolved, nil
}

// Unblock は blockerID → blockedID のブロックを解除する。
// ブロック時に削除したいいねやマッチは復元しない。
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID string) error {
	if err := s.blockRepo.Delete(ctx, blockerID, blockedID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewBlockNotFoundError(blockedID)
		}
		return fmt.Errorf("ブロックの解除に失敗しました: %w", err)
	}

	slog.Info("ブロックを解除しました",
		slog.String("user_id", blockerID),
		slog.String("target_user_id", blockedID),
	)
	return nil
}

// IsBlocked は a と b のどちらかが相手をブロックしているかを返す。
func (s *Service) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	blocked, err := s.blockRepo.ExistsBetween(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("ブロック状態の取得に失敗しました: %w", err)
	}
	return blocked, nil
}
