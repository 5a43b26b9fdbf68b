package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/matchtalk/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。Detailは開発モードの500エラーでのみ設定する。
type ErrorResponseBody struct {
	Kind     string `json:"kind,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeError(w, statusCode, apiErr, "")
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログに記録し、detailが空でない場合のみレスポンスにも含める。
func WriteInternalServerError(w http.ResponseWriter, detail string) {
	writeError(w, http.StatusInternalServerError, model.NewInternalError(), detail)
}

// StatusForKind はエラー種別に対応するHTTPステータスコードを返す。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindSelfReference, model.KindDuplicate, model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindNotMatched:
		return http.StatusForbidden
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, statusCode int, apiErr *model.APIError, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Kind:     string(apiErr.Kind),
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Detail:   detail,
	})
}
