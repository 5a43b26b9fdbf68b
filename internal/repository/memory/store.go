// Package memory はrepositoryパッケージの各インターフェースをメモリ上で実装する。
// PostgreSQLと同じ一意制約と条件付き書き込みを再現し、エンジンのテストに使う。
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/matchtalk/internal/model"
)

type likeKey struct {
	liker, liked string
}

type pairKey struct {
	low, high string
}

func pairOf(a, b string) pairKey {
	low, high := model.CanonicalPair(a, b)
	return pairKey{low, high}
}

// 挿入順の連番。created_atが同じ行の並びを安定させる。
type likeRow struct {
	like model.Like
	seq  int64
}

type matchRow struct {
	match model.Match
	seq   int64
}

type messageRow struct {
	msg model.Message
	seq int64
}

type notificationRow struct {
	n   model.Notification
	seq int64
}

// Store は全テーブルを保持するメモリストア。1つのミューテックスで全操作を直列化する。
type Store struct {
	mu            sync.Mutex
	seq           int64
	users         map[string]model.User
	likes         map[likeKey]likeRow
	matches       map[pairKey]matchRow
	blocks        map[likeKey]model.Block
	messages      []messageRow
	notifications []notificationRow

	// txErr がセットされている間、複数テーブルにまたがる書き込みは何も変更せずに失敗する。
	txErr error
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:   make(map[string]model.User),
		likes:   make(map[likeKey]likeRow),
		matches: make(map[pairKey]matchRow),
		blocks:  make(map[likeKey]model.Block),
	}
}

// AddUser はユーザーを登録する。外部のID/プロフィール管理の代わりにテストから使う。
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// LikeCount は保存されているいいねの件数を返す。
func (s *Store) LikeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.likes)
}

// MatchCount は保存されているマッチの件数を返す。
func (s *Store) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// FailTransactions は以降の複数テーブル書き込み（いいね取り消し、ブロック作成）を
// 何も変更せずにerrで失敗させる。nilで解除する。
func (s *Store) FailTransactions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txErr = err
}

// Users はUserRepositoryの実装を返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Likes はLikeRepositoryの実装を返す。
func (s *Store) Likes() *LikeRepo { return &LikeRepo{s: s} }

// Matches はMatchRepositoryの実装を返す。
func (s *Store) Matches() *MatchRepo { return &MatchRepo{s: s} }

// Blocks はBlockRepositoryの実装を返す。
func (s *Store) Blocks() *BlockRepo { return &BlockRepo{s: s} }

// Messages はMessageRepositoryの実装を返す。
func (s *Store) Messages() *MessageRepo { return &MessageRepo{s: s} }

// Notifications はNotificationRepositoryの実装を返す。
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }

// nextSeq は呼び出し側でロックを保持していること。
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// blockedBetween は呼び出し側でロックを保持していること。
func (s *Store) blockedBetween(a, b string) bool {
	_, ab := s.blocks[likeKey{a, b}]
	_, ba := s.blocks[likeKey{b, a}]
	return ab || ba
}

func (s *Store) hasUser(id string) bool {
	_, ok := s.users[id]
	return ok
}

// newerFirst はcreated_at降順、同時刻は挿入の新しい順で比較する。
func newerFirst(at1 time.Time, seq1 int64, at2 time.Time, seq2 int64) bool {
	if !at1.Equal(at2) {
		return at1.After(at2)
	}
	return seq1 > seq2
}

func sortNewestFirst[T any](rows []T, key func(T) (time.Time, int64)) {
	sort.SliceStable(rows, func(i, j int) bool {
		ai, si := key(rows[i])
		aj, sj := key(rows[j])
		return newerFirst(ai, si, aj, sj)
	})
}
