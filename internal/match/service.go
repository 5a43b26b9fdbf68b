// Package match はマッチ関係（相互いいねから導出される対称関係）のドメインロジックを提供する。
package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository"
)

// MatchInfo はマッチ相手のプロフィールと成立日時を結合したドメインオブジェクト。
type MatchInfo struct {
	ID        string
	User      model.User
	Age       *int
	MatchedAt time.Time
}

// Status は特定ユーザーとのマッチ状態。
type Status struct {
	IsMatch   bool
	MatchedAt *time.Time
}

// Service はマッチ関係のサービス層。
// マッチ行はユーザーIDを (low, high) に正規化して1ペア1行で保持する。
type Service struct {
	matchRepo repository.MatchRepository
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(matchRepo repository.MatchRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		matchRepo: matchRepo,
		metrics:   collector,
		now:       time.Now,
	}
}

// Ensure は a と b のマッチを作成し、呼び出し時点でマッチしているかを返す。
// 同時に相互いいねが完了した場合でも一意制約により行は1つだけ作られ、両方の呼び出しがtrueを得る。
// 直前にいいねが取り消されていた場合はマッチを作らずfalseを返す。
func (s *Service) Ensure(ctx context.Context, a, b string) (matched bool, created bool, err error) {
	low, high := model.CanonicalPair(a, b)
	m := &model.Match{
		ID:         uuid.NewString(),
		UserLowID:  low,
		UserHighID: high,
		CreatedAt:  s.now().UTC(),
	}

	created, err = s.matchRepo.Ensure(ctx, m)
	if err != nil {
		return false, false, fmt.Errorf("マッチの作成に失敗しました: %w", err)
	}
	if created {
		s.metrics.RecordMatchCreated()
		slog.Info("マッチが成立しました",
			slog.String("match_id", m.ID),
			slog.String("user_low_id", low),
			slog.String("user_high_id", high),
		)
		return true, true, nil
	}

	matched, err = s.IsMatched(ctx, a, b)
	if err != nil {
		return false, false, err
	}
	return matched, false, nil
}

// Dissolve は a と b のマッチを削除する。存在しない場合は何もしない。
func (s *Service) Dissolve(ctx context.Context, a, b string) (bool, error) {
	low, high := model.CanonicalPair(a, b)
	deleted, err := s.matchRepo.Delete(ctx, low, high)
	if err != nil {
		return false, fmt.Errorf("マッチの解消に失敗しました: %w", err)
	}
	if deleted {
		s.metrics.RecordMatchDissolved()
		slog.Info("マッチが解消されました",
			slog.String("user_low_id", low),
			slog.String("user_high_id", high),
		)
	}
	return deleted, nil
}

// IsMatched は a と b がマッチしているかを返す。自分自身とはマッチしない。
func (s *Service) IsMatched(ctx context.Context, a, b string) (bool, error) {
	st, err := s.Status(ctx, a, b)
	if err != nil {
		return false, err
	}
	return st.IsMatch, nil
}

// Status は a から見た b とのマッチ状態を返す。
func (s *Service) Status(ctx context.Context, a, b string) (*Status, error) {
	if a == b {
		return &Status{}, nil
	}
	low, high := model.CanonicalPair(a, b)
	m, err := s.matchRepo.Find(ctx, low, high)
	if err != nil {
		return nil, fmt.Errorf("マッチ状態の取得に失敗しました: %w", err)
	}
	if m == nil {
		return &Status{}, nil
	}
	matchedAt := m.CreatedAt
	return &Status{IsMatch: true, MatchedAt: &matchedAt}, nil
}

// ListMatches はユーザーのマッチ一覧を新しい順に返す。
func (s *Service) ListMatches(ctx context.Context, userID string) ([]MatchInfo, error) {
	rows, err := s.matchRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}

	now := s.now()
	results := make([]MatchInfo, len(rows))
	for i, row := range rows {
		results[i] = MatchInfo{
			ID:        row.ID,
			User:      row.Other,
			Age:       row.Other.Age(now),
			MatchedAt: row.CreatedAt,
		}
	}
	return results, nil
}
