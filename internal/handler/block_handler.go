package handler

import (
	"context"
	"net/http"
)

// BlockServiceInterface はブロックハンドラーが必要とするサービスインターフェース。
type BlockServiceInterface interface {
	// Block は相手をブロックし、既存のマッチを解消したかを返す。
	Block(ctx context.Context, blockerID, blockedID string) (bool, error)
	// Unblock はブロックを解除する。
	Unblock(ctx context.Context, blockerID, blockedID string) error
}

// BlockHandler はブロックのHTTPハンドラー。
type BlockHandler struct {
	ErrorResponder
	service BlockServiceInterface
}

// NewBlockHandler はBlockHandlerを生成する。
func NewBlockHandler(service BlockServiceInterface, errs ErrorResponder) *BlockHandler {
	return &BlockHandler{ErrorResponder: errs, service: service}
}

// blockResultResponse はブロック作成のAPIレスポンス。
type blockResultResponse struct {
	Blocked        bool `json:"blocked"`
	MatchDissolved bool `json:"match_dissolved"`
}

// Block は相手ユーザーをブロックする。
// POST /api/blocks/{userId}
func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	dissolved, err := h.service.Block(r.Context(), userID, targetID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, blockResultResponse{Blocked: true, MatchDissolved: dissolved})
}

// Unblock はブロックを解除する。
// DELETE /api/blocks/{userId}
func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unblock(r.Context(), userID, targetID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ブロックを解除しました。"})
}
