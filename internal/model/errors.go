// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエンジンが返す失敗の種別を表す閉じた列挙型。
// 呼び出し側はKindOfで種別を取り出して分岐する。
type ErrorKind string

const (
	// KindSelfReference は自分自身へのいいね・メッセージを表す。
	KindSelfReference ErrorKind = "SELF_REFERENCE"
	// KindDuplicate は既に存在するいいねの再作成を表す。
	KindDuplicate ErrorKind = "DUPLICATE"
	// KindNotFound は存在しないユーザーやいいねへの操作を表す。
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindNotMatched はマッチしていない相手とのメッセージ操作を表す。
	KindNotMatched ErrorKind = "NOT_MATCHED"
	// KindValidation は入力値の不正を表す。
	KindValidation ErrorKind = "VALIDATION"
	// KindUnauthorized は呼び出し元の身元が確認できないことを表す。
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	// KindInternal は予期しないストア障害などを表す。
	KindInternal ErrorKind = "INTERNAL"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // 機械可読な種別
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, like, match, message, block, system
	Action   string    // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// KindOf はエラーチェーンからErrorKindを取り出す。
// APIErrorを含まないエラーはKindInternalとして扱う。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// 定義済みエラーコード
const (
	ErrCodeSelfLike          = "SELF_LIKE"
	ErrCodeSelfMessage       = "SELF_MESSAGE"
	ErrCodeAlreadyLiked      = "ALREADY_LIKED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeLikeNotFound      = "LIKE_NOT_FOUND"
	ErrCodeNotMatched        = "NOT_MATCHED"
	ErrCodeEmptyMessage      = "EMPTY_MESSAGE"
	ErrCodeMessageTooLong    = "MESSAGE_TOO_LONG"
	ErrCodeInvalidUserID     = "INVALID_USER_ID"
	ErrCodeInvalidPagination = "INVALID_PAGINATION"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeSelfBlock         = "SELF_BLOCK"
	ErrCodeAlreadyBlocked    = "ALREADY_BLOCKED"
	ErrCodeBlockNotFound     = "BLOCK_NOT_FOUND"
	ErrCodeUserBlocked       = "USER_BLOCKED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewSelfLikeError は自分自身へのいいねエラーを生成する。
func NewSelfLikeError() *APIError {
	return &APIError{
		Kind:     KindSelfReference,
		Code:     ErrCodeSelfLike,
		Message:  "自分自身にいいねすることはできません。",
		Category: "like",
		Action:   "他のユーザーを選択してください。",
	}
}

// NewSelfMessageError は自分自身へのメッセージ操作エラーを生成する。
func NewSelfMessageError() *APIError {
	return &APIError{
		Kind:     KindSelfReference,
		Code:     ErrCodeSelfMessage,
		Message:  "自分自身とメッセージをやり取りすることはできません。",
		Category: "message",
		Action:   "マッチした相手を選択してください。",
	}
}

// NewDuplicateLikeError は既にいいね済みのユーザーへの再いいねエラーを生成する。
func NewDuplicateLikeError() *APIError {
	return &APIError{
		Kind:     KindDuplicate,
		Code:     ErrCodeAlreadyLiked,
		Message:  "このユーザーには既にいいねしています。",
		Category: "like",
		Action:   "いいね一覧から該当ユーザーを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "like",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewLikeNotFoundError は取り消し対象のいいねが存在しない場合のエラーを生成する。
func NewLikeNotFoundError(userID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeLikeNotFound,
		Message:  fmt.Sprintf("指定されたユーザーへのいいねが見つかりません: %s", userID),
		Category: "like",
		Action:   "いいね一覧を確認してください。",
	}
}

// NewNotMatchedError はマッチしていない相手とのメッセージ操作エラーを生成する。
func NewNotMatchedError() *APIError {
	return &APIError{
		Kind:     KindNotMatched,
		Code:     ErrCodeNotMatched,
		Message:  "このユーザーとはマッチしていません。",
		Category: "match",
		Action:   "お互いにいいねするとメッセージを送れるようになります。",
	}
}

// NewEmptyMessageError はメッセージ本文が空の場合のエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージ本文は必須です。",
		Category: "validation",
		Action:   "メッセージを入力してください。",
	}
}

// NewMessageTooLongError はメッセージ本文が上限を超えた場合のエラーを生成する。
func NewMessageTooLongError(max int) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeMessageTooLong,
		Message:  fmt.Sprintf("メッセージは%d文字以内で入力してください。", max),
		Category: "validation",
		Action:   "メッセージを短くしてください。",
	}
}

// NewInvalidUserIDError はユーザーIDの形式が不正な場合のエラーを生成する。
func NewInvalidUserIDError(raw string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidUserID,
		Message:  fmt.Sprintf("無効なユーザーIDです: %s", raw),
		Category: "validation",
		Action:   "正しいユーザーIDを指定してください。",
	}
}

// NewInvalidPaginationError はlimit/offsetが不正な場合のエラーを生成する。
func NewInvalidPaginationError(param, raw string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidPagination,
		Message:  fmt.Sprintf("無効な%sです: %s", param, raw),
		Category: "validation",
		Action:   "0以上の整数を指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewSelfBlockError は自分自身へのブロックエラーを生成する。
func NewSelfBlockError() *APIError {
	return &APIError{
		Kind:     KindSelfReference,
		Code:     ErrCodeSelfBlock,
		Message:  "自分自身をブロックすることはできません。",
		Category: "block",
		Action:   "他のユーザーを選択してください。",
	}
}

// NewDuplicateBlockError は既にブロック済みのユーザーへの再ブロックエラーを生成する。
func NewDuplicateBlockError() *APIError {
	return &APIError{
		Kind:     KindDuplicate,
		Code:     ErrCodeAlreadyBlocked,
		Message:  "このユーザーは既にブロックしています。",
		Category: "block",
		Action:   "ブロック一覧を確認してください。",
	}
}

// NewBlockNotFoundError は解除対象のブロックが存在しない場合のエラーを生成する。
func NewBlockNotFoundError(userID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeBlockNotFound,
		Message:  fmt.Sprintf("指定されたユーザーへのブロックが見つかりません: %s", userID),
		Category: "block",
		Action:   "ブロック一覧を確認してください。",
	}
}

// NewUserBlockedError はどちらかがブロックしている相手へのいいねエラーを生成する。
// どちらがブロックしたかは返さない。
func NewUserBlockedError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeUserBlocked,
		Message:  "このユーザーとはやり取りできません。",
		Category: "block",
		Action:   "他のユーザーを選択してください。",
	}
}

// NewUnauthorizedError は認証トークンが無い・無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Kind:     KindUnauthorized,
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Kind:     KindInternal,
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
