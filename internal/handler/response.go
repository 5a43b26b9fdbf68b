package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/matchtalk/internal/middleware"
	"github.com/hitoshi/matchtalk/internal/model"
)

// ErrorResponder はサービス層のエラーを統一エラーフォーマットのレスポンスに変換する。
// ExposeDetailがtrueの場合、500エラーのレスポンスにerr.Error()を含める（開発モード用）。
type ErrorResponder struct {
	ExposeDetail bool
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func (e ErrorResponder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForKind(apiErr.Kind), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	var detail string
	if e.ExposeDetail {
		detail = err.Error()
	}
	middleware.WriteInternalServerError(w, detail)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// callerID は認証済みユーザーIDを返す。未認証の場合は401を書き込みfalseを返す。
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// targetUserID はURLパラメータuserIdをUUIDとして検証し、小文字の正規形で返す。
// 不正な場合は400を書き込みfalseを返す。
func targetUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "userId")
	id, err := uuid.Parse(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(raw))
		return "", false
	}
	return id.String(), true
}

// userResponse は相手ユーザーのプロフィールのAPIレスポンス。
type userResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Age            *int   `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	City           string `json:"city,omitempty"`
	Country        string `json:"country,omitempty"`
}

func toUserResponse(u model.User, age *int) userResponse {
	return userResponse{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Age:            age,
		Gender:         u.Gender,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		City:           u.City,
		Country:        u.Country,
	}
}

// messageResponse はメッセージのAPIレスポンス。
type messageResponse struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	ReceiverID string     `json:"receiver_id"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toMessageResponse(m model.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}
