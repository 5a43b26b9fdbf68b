// Package message はマッチしたユーザー間のメッセージログのドメインロジックを提供する。
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository"
)

// MatchChecker はメッセージ送受信の可否を判定するインターフェース。
type MatchChecker interface {
	IsMatched(ctx context.Context, a, b string) (bool, error)
}

// Notifier は新着・既読の通知インターフェース。
type Notifier interface {
	NotifyMessage(ctx context.Context, msg *model.Message)
	NotifyRead(readerID, senderID string, count int)
}

// Service はメッセージのサービス層。
type Service struct {
	msgRepo  repository.MessageRepository
	matches  MatchChecker
	notifier Notifier
	metrics  metrics.MetricsCollector
	limits   PageLimits
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// notifier、collectorはnilでもよい。
func NewService(
	msgRepo repository.MessageRepository,
	matches MatchChecker,
	notifier Notifier,
	collector metrics.MetricsCollector,
	limits PageLimits,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		msgRepo:  msgRepo,
		matches:  matches,
		notifier: notifier,
		metrics:  collector,
		limits:   limits.normalize(),
		now:      time.Now,
	}
}

// Limits はスレッド取得のページサイズ設定を返す。
func (s *Service) Limits() PageLimits {
	return s.limits
}

// Send は senderID から receiverID へメッセージを送る。
// 本文は前後の空白だけを除いて送信されたまま保存する。
// 入力検証をマッチ確認より先に行うため、不正な本文はマッチの有無に関わらずValidationErrorになる。
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*model.Message, error) {
	if senderID == receiverID {
		return nil, model.NewSelfMessageError()
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.NewEmptyMessageError()
	}
	if utf8.RuneCountInString(content) > model.MaxMessageLength {
		return nil, model.NewMessageTooLongError(model.MaxMessageLength)
	}

	if err := s.requireMatch(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError(receiverID)
		}
		return nil, fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}

	s.metrics.RecordMessageSent()
	slog.Debug("メッセージを送信しました",
		slog.String("message_id", msg.ID),
		slog.String("user_id", senderID),
		slog.String("receiver_id", receiverID),
	)
	if s.notifier != nil {
		s.notifier.NotifyMessage(ctx, msg)
	}
	return msg, nil
}

// FetchThread は userID と otherID のスレッドを古い順に返し、otherIDから届いた未読を既読にする。
// ページングは新しい順の並びに対して適用する。返却値の既読状態は既読化する前のもの。
func (s *Service) FetchThread(ctx context.Context, userID, otherID string, page Page) ([]model.Message, error) {
	if userID == otherID {
		return nil, model.NewSelfMessageError()
	}
	if err := s.requireMatch(ctx, userID, otherID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListThread(ctx, userID, otherID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("スレッドの取得に失敗しました: %w", err)
	}
	slices.Reverse(messages)

	if _, err := s.markRead(ctx, userID, otherID); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead は otherID から userID 宛の未読メッセージを既読にし、変更件数を返す。
// マッチ解消後の古いスレッドも既読にできるよう、マッチ状態は確認しない。
func (s *Service) MarkRead(ctx context.Context, userID, otherID string) (int, error) {
	if userID == otherID {
		return 0, model.NewSelfMessageError()
	}
	return s.markRead(ctx, userID, otherID)
}

func (s *Service) markRead(ctx context.Context, userID, otherID string) (int, error) {
	count, err := s.msgRepo.MarkRead(ctx, userID, otherID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("既読化に失敗しました: %w", err)
	}
	if count > 0 {
		s.metrics.RecordMessagesRead(count)
		if s.notifier != nil {
			s.notifier.NotifyRead(userID, otherID, count)
		}
	}
	return count, nil
}

func (s *Service) requireMatch(ctx context.Context, a, b string) error {
	matched, err := s.matches.IsMatched(ctx, a, b)
	if err != nil {
		return fmt.Errorf("マッチ状態の確認に失敗しました: %w", err)
	}
	if !matched {
		return model.NewNotMatchedError()
	}
	return nil
}
