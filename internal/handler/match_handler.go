package handler

import (
	"context"
	"net/http"
	"time"
)

// MatchServiceInterface はマッチハンドラーが必要とするサービスインターフェース。
type MatchServiceInterface interface {
	// ListMatches はマッチ一覧を新しい順に返す。
	ListMatches(ctx context.Context, userID string) ([]matchResponse, error)
	// Status は特定ユーザーとのマッチ状態を返す。
	Status(ctx context.Context, userID, otherID string) (*matchStatusResponse, error)
}

// MatchHandler はマッチのHTTPハンドラー。
type MatchHandler struct {
	ErrorResponder
	service MatchServiceInterface
}

// NewMatchHandler はMatchHandlerを生成する。
func NewMatchHandler(service MatchServiceInterface, errs ErrorResponder) *MatchHandler {
	return &MatchHandler{ErrorResponder: errs, service: service}
}

// matchResponse はマッチ一覧の1件のAPIレスポンス。
type matchResponse struct {
	ID        string       `json:"id"`
	User      userResponse `json:"user"`
	MatchedAt time.Time    `json:"matched_at"`
}

// matchStatusResponse は特定ユーザーとのマッチ状態のAPIレスポンス。
type matchStatusResponse struct {
	IsMatch   bool       `json:"isMatch"`
	MatchedAt *time.Time `json:"matchedAt"`
}

// ListMatches はマッチ一覧を返す。
// GET /api/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	matches, err := h.service.ListMatches(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if matches == nil {
		matches = []matchResponse{}
	}

	writeJSON(w, http.StatusOK, matches)
}

// Status は特定ユーザーとのマッチ状態を返す。
// GET /api/matches/{userId}
func (h *MatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	targetID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), userID, targetID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
