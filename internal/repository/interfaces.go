// Package repository はデータ永続化のインターフェースを定義する。
//
// 同時実行の整合性はアプリケーション側のロックではなく、ストアの一意制約と
// 条件付き書き込みで担保する。各メソッドのコメントに、どの制約が何を防ぐかを記す。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/matchtalk/internal/model"
)

var (
	// ErrDuplicate は一意制約により書き込みが行われなかったことを表す。
	ErrDuplicate = errors.New("repository: duplicate row")
	// ErrNotFound は対象行、または外部キーの参照先が存在しないことを表す。
	ErrNotFound = errors.New("repository: row not found")
)

// UserRepository はユーザープロフィールの参照インターフェース。
// ユーザーの作成・更新は外部のID/プロフィール管理が担う。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// LikeRepository は有向いいねエッジの永続化インターフェース。
type LikeRepository interface {
	// Create はいいねを作成する。
	// UNIQUE(liker_id, liked_id) が同時いいねの重複に対する唯一のガードで、
	// 既存の場合はErrDuplicate、参照先ユーザーが存在しない場合はErrNotFoundを返す。
	Create(ctx context.Context, like *model.Like) error

	// Exists は likerID → likedID のいいねが存在するかを返す。
	Exists(ctx context.Context, likerID, likedID string) (bool, error)

	// DeleteWithMatch は likerID → likedID のいいねと、2人の間のマッチを1トランザクションで削除する。
	// いいねが存在しない場合はErrNotFoundを返す。途中で失敗した場合はどちらも削除しない。
	DeleteWithMatch(ctx context.Context, likerID, likedID string) (matchDissolved bool, err error)

	// ListGiven は userID が送ったいいねを相手のプロフィール付きで新しい順に返す。
	ListGiven(ctx context.Context, userID string) ([]model.LikeWithUser, error)

	// ListReceived は userID が受け取ったいいねを相手のプロフィール付きで新しい順に返す。
	ListReceived(ctx context.Context, userID string) ([]model.LikeWithUser, error)
}

// MatchRepository は正規化済みマッチエッジの永続化インターフェース。
type MatchRepository interface {
	// Ensure は両方向のいいねが存在し、どちらもブロックしていない場合に限りマッチを作成する。
	// UNIQUE(user_low_id, user_high_id) が二重マッチに対する唯一のガードで、
	// 既に存在する場合は何もせず created=false を返す。
	Ensure(ctx context.Context, match *model.Match) (created bool, err error)

	// Delete は正規化済みペアのマッチを削除する。存在しない場合は deleted=false を返す。
	Delete(ctx context.Context, lowID, highID string) (deleted bool, err error)

	// Find は正規化済みペアのマッチを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, lowID, highID string) (*model.Match, error)

	// ListByUser は userID を端点とする全マッチを相手のプロフィール付きで新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.MatchWithUser, error)
}

// BlockRepository はユーザー間ブロックの永続化インターフェース。
type BlockRepository interface {
	// Create はブロックを作成し、2人の間のいいね（両方向）とマッチを同じトランザクションで削除する。
	// UNIQUE(blocker_id, blocked_id) により既存の場合はErrDuplicate、
	// 参照先ユーザーが存在しない場合はErrNotFoundを返す。
	Create(ctx context.Context, block *model.Block) (matchDissolved bool, err error)

	// Delete は blockerID → blockedID のブロックを解除する。存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, blockerID, blockedID string) error

	// ExistsBetween は a と b のどちらかが相手をブロックしているかを返す。
	ExistsBetween(ctx context.Context, a, b string) (bool, error)
}

// MessageRepository はメッセージログの永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを追記する。送受信者が存在しない場合はErrNotFoundを返す。
	Create(ctx context.Context, msg *model.Message) error

	// ListThread は2ユーザー間のメッセージを新しい順にlimit/offsetで取得する。
	ListThread(ctx context.Context, userID, otherID string, limit, offset int) ([]model.Message, error)

	// MarkRead は senderID から receiverID 宛の未読メッセージを既読にし、変更件数を返す。
	// WHERE is_read = false の条件付き更新により、同時実行でも既読遷移は1回しか数えない。
	MarkRead(ctx context.Context, receiverID, senderID string, readAt time.Time) (int, error)

	// ListConversationHeads は userID がやり取りした相手ごとの最新メッセージを返す。
	ListConversationHeads(ctx context.Context, userID string) ([]model.ConversationHead, error)

	// CountUnreadBySender は receiverID 宛の未読メッセージ数を送信者ごとに返す。
	CountUnreadBySender(ctx context.Context, receiverID string) (map[string]int, error)
}

// NotificationRepository はアプリ内通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListRecent は userID の通知を新しい順に最大limit件返す。
	ListRecent(ctx context.Context, userID string, limit int) ([]model.Notification, error)

	// MarkRead は userID の指定通知を既読にし、変更件数を返す。
	MarkRead(ctx context.Context, userID string, ids []string) (int, error)

	// DeleteReadBefore は before より前に作成された既読通知を削除し、削除件数を返す。
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}
