package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/matchtalk/internal/message"
	"github.com/hitoshi/matchtalk/internal/middleware"
	"github.com/hitoshi/matchtalk/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// ParsePage はクエリ文字列のlimit/offsetを解釈する。
	ParsePage(rawLimit, rawOffset string) (message.Page, error)
	// Send はマッチした相手にメッセージを送信する。
	Send(ctx context.Context, senderID, receiverID, content string) (*model.Message, error)
	// FetchThread はスレッドを古い順に返し、相手からの未読を既読にする。
	FetchThread(ctx context.Context, userID, otherID string, page message.Page) ([]model.Message, error)
	// MarkRead は相手からの未読メッセージを既読にし、件数を返す。
	MarkRead(ctx context.Context, userID, otherID string) (int, error)
}

// ConversationServiceInterface は会話一覧に必要なサービスインターフェース。
type ConversationServiceInterface interface {
	// ListConversations は会話要約を最終メッセージの新しい順に返す。
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

// MessageHandler はメッセージと会話一覧のHTTPハンドラー。
type MessageHandler struct {
	ErrorResponder
	service       MessageServiceInterface
	conversations ConversationServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface, conversations ConversationServiceInterface, errs ErrorResponder) *MessageHandler {
	return &MessageHandler{
		ErrorResponder: errs,
		service:        service,
		conversations:  conversations,
	}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Content string `json:"content"`
}

// markReadResponse は既読化のAPIレスポンス。
type markReadResponse struct {
	Count int `json:"count"`
}

// conversationResponse は会話一覧の1件のAPIレスポンス。
type conversationResponse struct {
	OtherUserID    string    `json:"other_user_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	LastMessage    string    `json:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at"`
	UnreadCount    int       `json:"unread_count"`
}

// ListConversations は会話一覧を返す。
// GET /api/messages/conversations
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	summaries, err := h.conversations.ListConversations(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	results := make([]conversationResponse, len(summaries))
	for i, s := range summaries {
		results[i] = conversationResponse{
			OtherUserID:    s.Other.ID,
			Username:       s.Other.Username,
			FirstName:      s.Other.FirstName,
			LastName:       s.Other.LastName,
			ProfilePicture: s.Other.ProfilePicture,
			LastMessage:    s.LastMessageContent,
			LastMessageAt:  s.LastMessageAt,
			UnreadCount:    s.UnreadCount,
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// FetchThread は相手とのスレッドを返す。相手からの未読は既読になる。
// GET /api/messages/{userId}?limit=&offset=
func (h *MessageHandler) FetchThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.service.ParsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	msgs, err := h.service.FetchThread(r.Context(), userID, otherID, page)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	results := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		results[i] = toMessageResponse(m)
	}
	writeJSON(w, http.StatusOK, results)
}

// Send はメッセージを送信する。
// POST /api/messages/{userId}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	msg, err := h.service.Send(r.Context(), userID, otherID, req.Content)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(*msg))
}

// MarkRead は相手からの未読メッセージを既読にする。
// PUT /api/messages/{userId}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	otherID, ok := targetUserID(w, r)
	if !ok {
		return
	}

	count, err := h.service.MarkRead(r.Context(), userID, otherID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, markReadResponse{Count: count})
}
