// Package notification はアプリ内通知とリアルタイムプッシュのドメインロジックを提供する。
//
// 通知の作成とプッシュはベストエフォートで行い、失敗してもいいね・メッセージ送信などの
// 元の操作は失敗させない。失敗はログに残す。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/realtime"
	"github.com/hitoshi/matchtalk/internal/repository"
	"github.com/hitoshi/matchtalk/internal/security"
)

// ListLimit は通知一覧で返す最大件数。
const ListLimit = 50

// Publisher はユーザー宛にリアルタイムイベントを配信するインターフェース。
type Publisher interface {
	Publish(userID string, eventType realtime.EventType, payload any)
}

// MatchEvent はマッチ成立時にプッシュするペイロード。
type MatchEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// MessageEvent は新着メッセージ時にプッシュするペイロード。
type MessageEvent struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReadEvent は相手がメッセージを既読にしたときにプッシュするペイロード。
type ReadEvent struct {
	ReaderID string `json:"reader_id"`
	Count    int    `json:"count"`
}

// Service は通知のサービス層。
type Service struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	publisher Publisher
	names     security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// publisherがnilの場合はリアルタイムプッシュを行わない。
// 通知文面に埋め込む表示名はタグを除去してから使う。
func NewService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
) *Service {
	return &Service{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		publisher: publisher,
		names:     security.NewTextSanitizer(),
		now:       time.Now,
	}
}

// NotifyMatch はマッチ成立を両ユーザーに通知する。
func (s *Service) NotifyMatch(ctx context.Context, a, b string) {
	nameA := s.displayName(ctx, a)
	nameB := s.displayName(ctx, b)

	s.create(ctx, a, model.NotificationTypeMatch, fmt.Sprintf("%sさんとマッチしました！", nameB), b)
	s.create(ctx, b, model.NotificationTypeMatch, fmt.Sprintf("%sさんとマッチしました！", nameA), a)

	s.publish(a, realtime.EventMatch, MatchEvent{UserID: b, Username: nameB})
	s.publish(b, realtime.EventMatch, MatchEvent{UserID: a, Username: nameA})
}

// NotifyMessage は新着メッセージを受信者に通知する。
func (s *Service) NotifyMessage(ctx context.Context, msg *model.Message) {
	s.create(ctx, msg.ReceiverID, model.NotificationTypeMessage,
		fmt.Sprintf("%sさんから新着メッセージがあります", s.displayName(ctx, msg.SenderID)), msg.SenderID)

	s.publish(msg.ReceiverID, realtime.EventMessage, MessageEvent{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	})
}

// NotifyRead は readerID が senderID からのメッセージを既読にしたことを送信者へプッシュする。
// 既読件数が0の場合は何もしない。
func (s *Service) NotifyRead(readerID, senderID string, count int) {
	if count <= 0 {
		return
	}
	s.publish(senderID, realtime.EventRead, ReadEvent{ReaderID: readerID, Count: count})
}

// List はユーザーの通知を新しい順に最大ListLimit件返し、返した通知を既読にする。
// 返却値の既読状態は既読化する前のもの。
func (s *Service) List(ctx context.Context, userID string) ([]model.Notification, error) {
	notifs, err := s.notifRepo.ListRecent(ctx, userID, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}

	var unread []string
	for _, n := range notifs {
		if !n.IsRead {
			unread = append(unread, n.ID)
		}
	}
	if len(unread) > 0 {
		if _, err := s.notifRepo.MarkRead(ctx, userID, unread); err != nil {
			return nil, fmt.Errorf("通知の既読化に失敗しました: %w", err)
		}
	}
	return notifs, nil
}

func (s *Service) create(ctx context.Context, userID string, typ model.NotificationType, content, relatedUserID string) {
	n := &model.Notification{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          typ,
		Content:       content,
		RelatedUserID: relatedUserID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		slog.Warn("通知の作成に失敗しました",
			slog.String("user_id", userID),
			slog.String("type", string(typ)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) publish(userID string, eventType realtime.EventType, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, eventType, payload)
}

// displayName は通知文面用の表示名を返す。
// ユーザーが取得できない、またはタグを除くと空になる場合はIDを使う。
func (s *Service) displayName(ctx context.Context, id string) string {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		slog.Warn("通知用のユーザー取得に失敗しました",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}
	if u == nil {
		return id
	}
	if name := s.names.Clean(u.Username); name != "" {
		return name
	}
	return id
}
