// Package model はドメインモデルを定義する。
package model

import "time"

// MaxMessageLength はメッセージ本文の最大文字数。
const MaxMessageLength = 1000

// Message はマッチした2ユーザー間のメッセージを表す。
// 一度作成されたメッセージはマッチ解消後も削除されない。
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// ConversationHead は相手ユーザーごとの最新メッセージを表す。
// リポジトリのクエリ結果で、ConversationSummaryの材料になる。
type ConversationHead struct {
	Other       User
	LastMessage Message
}

// ConversationSummary は会話一覧の1行を表す。
// 保存はせず、読み取りのたびにメッセージから再計算する。
type ConversationSummary struct {
	Other              User
	LastMessageContent string
	LastMessageAt      time.Time
	UnreadCount        int
}

// Notification はユーザー向けのアプリ内通知を表す。
type Notification struct {
	ID            string
	UserID        string
	Type          NotificationType
	Content       string
	RelatedUserID string
	IsRead        bool
	CreatedAt     time.Time
}

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationTypeMatch はマッチ成立の通知。
	NotificationTypeMatch NotificationType = "match"
	// NotificationTypeMessage は新着メッセージの通知。
	NotificationTypeMessage NotificationType = "message"
)
