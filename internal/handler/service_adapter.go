package handler

import (
	"context"

	"github.com/hitoshi/matchtalk/internal/like"
	"github.com/hitoshi/matchtalk/internal/match"
	"github.com/hitoshi/matchtalk/internal/message"
	"github.com/hitoshi/matchtalk/internal/model"
)

// LikeServiceAdapter は like.Service を LikeServiceInterface に適合させるアダプタ。
type LikeServiceAdapter struct {
	svc *like.Service
}

// NewLikeServiceAdapter はLikeServiceAdapterを生成する。
func NewLikeServiceAdapter(svc *like.Service) *LikeServiceAdapter {
	return &LikeServiceAdapter{svc: svc}
}

// Like はいいねを作成し、マッチしたかを返す。
func (a *LikeServiceAdapter) Like(ctx context.Context, likerID, likedID string) (bool, error) {
	return a.svc.Like(ctx, likerID, likedID)
}

// Unlike はいいねを取り消す。
func (a *LikeServiceAdapter) Unlike(ctx context.Context, likerID, likedID string) error {
	return a.svc.Unlike(ctx, likerID, likedID)
}

// ListGiven は送ったいいね一覧をhandlerレスポンス型で返す。
func (a *LikeServiceAdapter) ListGiven(ctx context.Context, userID string) ([]likeResponse, error) {
	infos, err := a.svc.ListGiven(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toLikeResponses(infos), nil
}

// ListReceived は受け取ったいいね一覧をhandlerレスポンス型で返す。
func (a *LikeServiceAdapter) ListReceived(ctx context.Context, userID string) ([]likeResponse, error) {
	infos, err := a.svc.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toLikeResponses(infos), nil
}

func toLikeResponses(infos []like.LikeInfo) []likeResponse {
	results := make([]likeResponse, len(infos))
	for i, info := range infos {
		results[i] = likeResponse{
			ID:      info.ID,
			User:    toUserResponse(info.User, info.Age),
			LikedAt: info.LikedAt,
		}
	}
	return results
}

// MatchServiceAdapter は match.Service を MatchServiceInterface に適合させるアダプタ。
type MatchServiceAdapter struct {
	svc *match.Service
}

// NewMatchServiceAdapter はMatchServiceAdapterを生成する。
func NewMatchServiceAdapter(svc *match.Service) *MatchServiceAdapter {
	return &MatchServiceAdapter{svc: svc}
}

// ListMatches はマッチ一覧をhandlerレスポンス型で返す。
func (a *MatchServiceAdapter) ListMatches(ctx context.Context, userID string) ([]matchResponse, error) {
	infos, err := a.svc.ListMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]matchResponse, len(infos))
	for i, info := range infos {
		results[i] = matchResponse{
			ID:        info.ID,
			User:      toUserResponse(info.User, info.Age),
			MatchedAt: info.MatchedAt,
		}
	}
	return results, nil
}

// Status は特定ユーザーとのマッチ状態をhandlerレスポンス型で返す。
func (a *MatchServiceAdapter) Status(ctx context.Context, userID, otherID string) (*matchStatusResponse, error) {
	st, err := a.svc.Status(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return &matchStatusResponse{IsMatch: st.IsMatch, MatchedAt: st.MatchedAt}, nil
}

// MessageServiceAdapter は message.Service を MessageServiceInterface に適合させるアダプタ。
type MessageServiceAdapter struct {
	svc *message.Service
}

// NewMessageServiceAdapter はMessageServiceAdapterを生成する。
func NewMessageServiceAdapter(svc *message.Service) *MessageServiceAdapter {
	return &MessageServiceAdapter{svc: svc}
}

// ParsePage はサービスのページ上限設定でlimit/offsetを解釈する。
func (a *MessageServiceAdapter) ParsePage(rawLimit, rawOffset string) (message.Page, error) {
	return a.svc.Limits().ParsePage(rawLimit, rawOffset)
}

// Send はメッセージを送信する。
func (a *MessageServiceAdapter) Send(ctx context.Context, senderID, receiverID, content string) (*model.Message, error) {
	return a.svc.Send(ctx, senderID, receiverID, content)
}

// FetchThread はスレッドを取得し、相手からの未読を既読にする。
func (a *MessageServiceAdapter) FetchThread(ctx context.Context, userID, otherID string, page message.Page) ([]model.Message, error) {
	return a.svc.FetchThread(ctx, userID, otherID, page)
}

// MarkRead は相手からの未読メッセージを既読にする。
func (a *MessageServiceAdapter) MarkRead(ctx context.Context, userID, otherID string) (int, error) {
	return a.svc.MarkRead(ctx, userID, otherID)
}
