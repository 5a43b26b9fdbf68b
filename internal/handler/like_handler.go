package handler

import (
	"context"
	"net/http"
	"time"
)

// LikeServiceInterface はいいねハンドラーが必要とするサービスインターフェース。
type LikeServiceInterface interface {
	// Like はいいねを作成し、このいいねでマッチしたかを返す。
	Like(ctx context.Context, likerID, likedID string) (bool, error)
	// Unlike はいいねを取り消す。マッチしていた場合は解消する。
	Unlike(ctx context.Context, likerID, likedID string) error
	// ListGiven は送ったいいねを新しい順に返す。
	ListGiven(ctx context.Context, userID string) ([]likeResponse, error)
	// ListReceived は受け取ったいいねを新しい順に返す。
	ListReceived(ctx context.Context, userID string) ([]likeResponse, error)
}

// LikeHandler はいいねのHTTPハンドラー。
type LikeHandler struct {
	ErrorResponder
	service LikeServiceInterface
}

// NewLikeHandler はLikeHandlerを生成する。
func NewLikeHandler(service LikeServiceInterface, errs ErrorResponder) *LikeHandler {
	return &LikeHandler{ErrorResponder: errs, service: service}
}

// likeResultResponse はいいね作成のAPIレスポンス。
type likeResultResponse struct {
	IsMatch bool `json:"isMatch"`
}

// likeResponse はいいね一覧の1件のAPIレスポンス。
type likeResponse struct {
	ID      string       `json:"id"`
	User    userResponse `json:"user"`
	LikedAt time.Time    `json:"liked_at"`
}

// Like はいいねを作成する。
// POST /api/likes/{userId}
func (h *LikeHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	isMatch, err := h.service.Like(r.Context(), userID, targetID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, likeResultResponse{IsMatch: isMatch})
}

// Unlike はいいねを取り消す。
// DELETE /api/likes/{userId}
func (h *LikeHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unlike(r.Context(), userID, targetID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "いいねを取り消しました。"})
}

// ListGiven は送ったいいね一覧を返す。
// GET /api/likes/given
func (h *LikeHandler) ListGiven(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListGiven)
}

// ListReceived は受け取ったいいね一覧を返す。
// GET /api/likes/received
func (h *LikeHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListReceived)
}

func (h *LikeHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) ([]likeResponse, error)) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	likes, err := fetch(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if likes == nil {
		likes = []likeResponse{}
	}

	writeJSON(w, http.StatusOK, likes)
}
