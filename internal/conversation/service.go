// Package conversation はメッセージログから会話一覧を導出する。
// 会話一覧は保存せず、読み取りのたびに再計算する。
package conversation

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/matchtalk/internal/model"
)

// MessageReader は会話一覧の材料を読み出すインターフェース。
type MessageReader interface {
	ListConversationHeads(ctx context.Context, userID string) ([]model.ConversationHead, error)
	CountUnreadBySender(ctx context.Context, receiverID string) (map[string]int, error)
}

// Service は会話一覧のサービス層。
type Service struct {
	reader MessageReader
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(reader MessageReader) *Service {
	return &Service{reader: reader}
}

// ListConversations はユーザーが1通以上やり取りした相手ごとの会話要約を、
// 最終メッセージ日時の新しい順に返す。マッチ状態には依存しない。
func (s *Service) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	heads, err := s.reader.ListConversationHeads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	unread, err := s.reader.CountUnreadBySender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("未読数の取得に失敗しました: %w", err)
	}
	return Summarize(heads, unread), nil
}

// Summarize は相手ごとの最新メッセージと送信者別未読数から会話要約を組み立てる。
// 未読数は相手からuser宛の未読メッセージ数。並びは最終メッセージ日時の降順で、
// 同時刻は入力順を保つ。
func Summarize(heads []model.ConversationHead, unreadBySender map[string]int) []model.ConversationSummary {
	summaries := make([]model.ConversationSummary, len(heads))
	for i, h := range heads {
		summaries[i] = model.ConversationSummary{
			Other:              h.Other,
			LastMessageContent: h.LastMessage.Content,
			LastMessageAt:      h.LastMessage.CreatedAt,
			UnreadCount:        unreadBySender[h.Other.ID],
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries
}
