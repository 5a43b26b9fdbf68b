package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/matchtalk/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// List は最新の通知を返し、返した通知を既読にする。
	List(ctx context.Context, userID string) ([]model.Notification, error)
}

// NotificationHandler は通知のHTTPハンドラー。
type NotificationHandler struct {
	ErrorResponder
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface, errs ErrorResponder) *NotificationHandler {
	return &NotificationHandler{ErrorResponder: errs, service: service}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	RelatedUserID string    `json:"related_user_id,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// List は通知一覧を返す。
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	notifs, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	results := make([]notificationResponse, len(notifs))
	for i, n := range notifs {
		results[i] = notificationResponse{
			ID:            n.ID,
			Type:          string(n.Type),
			Content:       n.Content,
			RelatedUserID: n.RelatedUserID,
			IsRead:        n.IsRead,
			CreatedAt:     n.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, results)
}
