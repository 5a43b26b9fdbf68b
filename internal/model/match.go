// Package model はドメインモデルを定義する。
package model

import "time"

// Like はユーザー間の有向いいねエッジを表す。
// (LikerID, LikedID) の組はストアの一意制約で一つに保たれる。
type Like struct {
	ID        string
	LikerID   string
	LikedID   string
	CreatedAt time.Time
}

// LikeWithUser はいいねと相手ユーザーのプロフィールを結合したモデル。
type LikeWithUser struct {
	Like
	Other User
}

// Match は相互いいねから導出される対称なマッチ関係を表す。
// UserLowID < UserHighID に正規化して保存し、(a,b)/(b,a)の重複行を防ぐ。
type Match struct {
	ID         string
	UserLowID  string
	UserHighID string
	CreatedAt  time.Time
}

// Other は指定ユーザーから見た相手のIDを返す。
func (m *Match) Other(userID string) string {
	if m.UserLowID == userID {
		return m.UserHighID
	}
	return m.UserLowID
}

// MatchWithUser はマッチと相手ユーザーのプロフィールを結合したモデル。
type MatchWithUser struct {
	Match
	Other User
}

// CanonicalPair は2ユーザーのIDを (low, high) の順に並べて返す。
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Block はユーザー間の有向ブロックを表す。
// どちらか一方がブロックしている間、2人の間のいいね・マッチは成立しない。
type Block struct {
	ID        string
	BlockerID string
	BlockedID string
	CreatedAt time.Time
}
