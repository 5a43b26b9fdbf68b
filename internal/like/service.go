// Package like は有向いいねエッジの記録・取り消しと相互いいねの検出を提供する。
package like

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

// MatchIndex は相互いいねからマッチを作成するインターフェース。
// マッチの解消はいいね削除と同じトランザクションでLikeRepositoryが行う。
type MatchIndex interface {
	Ensure(ctx context.Context, a, b string) (matched bool, created bool, err error)
}

// BlockChecker は2ユーザー間のブロック有無を返すインターフェース。
type BlockChecker interface {
	IsBlocked(ctx context.Context, a, b string) (bool, error)
}

// MatchNotifier はマッチ成立の通知インターフェース。
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, a, b string)
}

// LikeInfo はいいねと相手ユーザーのプロフィールを結合したドメインオブジェクト。
type LikeInfo struct {
	ID      string
	User    model.User
	Age     *int
	LikedAt time.Time
}

// Service はいいねのサービス層。
type Service struct {
	userRepo repository.UserRepository
	likeRepo repository.LikeRepository
	matches  MatchIndex
	blocks   BlockChecker
	notifier MatchNotifier
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// blocks、notifier、collectorはnilでもよい。blocksがnilの場合はブロックを確認しない。
func NewService(
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	matches MatchIndex,
	blocks BlockChecker,
	notifier MatchNotifier,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		userRepo: userRepo,
		likeRepo: likeRepo,
		matches:  matches,
		blocks:   blocks,
		notifier: notifier,
		metrics:  collector,
		now:      time.Now,
	}
}

// Like は likerID → likedID のいいねを作成し、このいいねでマッチしたかを返す。
//
// いいね挿入の後に逆方向のいいねを確認し、存在すればマッチを作る。
// 2ステップは単一トランザクションではないが、likesとmatchesの一意制約により
// 同時に相互いいねしても重複行はできない。同時に呼んだ両者がtrueを得ることはある。
func (s *Service) Like(ctx context.Context, likerID, likedID string) (bool, error) {
	if likerID == likedID {
		return false, model.NewSelfLikeError()
	}

	target, err := s.userRepo.FindByID(ctx, likedID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return false, model.NewUserNotFoundError(likedID)
	}

	if s.blocks != nil {
		blocked, err := s.blocks.IsBlocked(ctx, likerID, likedID)
		if err != nil {
			return false, err
		}
		if blocked {
			return false, model.NewUserBlockedError()
		}
	}

	like := &model.Like{
		ID:        uuid.NewString(),
		LikerID:   likerID,
		LikedID:   likedID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return false, model.NewDuplicateLikeError()
		case errors.Is(err, repository.ErrNotFound):
			return false, model.NewUserNotFoundError(likedID)
		}
		return false, fmt.Errorf("いいねの作成に失敗しました: %w", err)
	}
	s.metrics.RecordLike()

	reciprocal, err := s.likeRepo.Exists(ctx, likedID, likerID)
	if err != nil {
		return false, fmt.Errorf("相互いいねの確認に失敗しました: %w", err)
	}
	if !reciprocal {
		return false, nil
	}

	matched, created, err := s.matches.Ensure(ctx, likerID, likedID)
	if err != nil {
		return false, err
	}
	if created && s.notifier != nil {
		s.notifier.NotifyMatch(ctx, likerID, likedID)
	}
	return matched, nil
}

// Unlike は likerID → likedID のいいねを取り消す。
// どちらか一方のいいねが消えた時点で相互性は失われるため、マッチも同じトランザクションで解消する。
func (s *Service) Unlike(ctx context.Context, likerID, likedID string) error {
	dissolved, err := s.likeRepo.DeleteWithMatch(ctx, likerID, likedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewLikeNotFoundError(likedID)
		}
		return fmt.Errorf("いいねの削除に失敗しました: %w", err)
	}

	slog.Info("いいねを取り消しました",
		slog.String("user_id", likerID),
		slog.String("target_user_id", likedID),
		slog.Bool("match_dissolved", dissolved),
	)

	if dissolved {
		s.metrics.RecordMatchDissolved()
	}
	return nil
}

// ListGiven はユーザーが送ったいいねを新しい順に返す。
func (s *Service) ListGiven(ctx context.Context, userID string) ([]LikeInfo, error) {
	rows, err := s.likeRepo.ListGiven(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("送ったいいね一覧の取得に失敗しました: %w", err)
	}
	return s.toInfos(rows), nil
}

// ListReceived はユーザーが受け取ったいいねを新しい順に返す。
func (s *Service) ListReceived(ctx context.Context, userID string) ([]LikeInfo, error) {
	rows, err := s.likeRepo.ListReceived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("受け取ったいいね一覧の取得に失敗しました: %w", err)
	}
	return s.toInfos(rows), nil
}

func (s *Service) toInfos(rows []model.LikeWithUser) []LikeInfo {
	now := s.now()
	infos := make([]LikeInfo, len(rows))
	for i, row := range rows {
		infos[i] = LikeInfo{
			ID:      row.ID,
			User:    row.Other,
			Age:     row.Other.Age(now),
			LikedAt: row.CreatedAt,
		}
	}
	return infos
}
