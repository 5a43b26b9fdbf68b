package memory

import (
	"context"
	"time"

	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository"
)

// UserRepo はメモリ上のUserRepository。
type UserRepo struct{ s *Store }

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *UserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// LikeRepo はメモリ上のLikeRepository。
type LikeRepo struct{ s *Store }

// Create はいいねを作成する。既存の場合はErrDuplicate、ユーザー不在ならErrNotFoundを返す。
func (r *LikeRepo) Create(_ context.Context, like *model.Like) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.hasUser(like.LikerID) || !r.s.hasUser(like.LikedID) {
		return repository.ErrNotFound
	}
	key := likeKey{like.LikerID, like.LikedID}
	if _, ok := r.s.likes[key]; ok {
		return repository.ErrDuplicate
	}
	r.s.likes[key] = likeRow{like: *like, seq: r.s.nextSeq()}
	return nil
}

// Exists は likerID → likedID のいいねが存在するかを返す。
func (r *LikeRepo) Exists(_ context.Context, likerID, likedID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.likes[likeKey{likerID, likedID}]
	return ok, nil
}

// DeleteWithMatch は likerID → likedID のいいねと2人の間のマッチを同じロック内で削除する。
func (r *LikeRepo) DeleteWithMatch(_ context.Context, likerID, likedID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := likeKey{likerID, likedID}
	if _, ok := r.s.likes[key]; !ok {
		return false, repository.ErrNotFound
	}
	if r.s.txErr != nil {
		return false, r.s.txErr
	}
	delete(r.s.likes, key)

	pair := pairOf(likerID, likedID)
	_, dissolved := r.s.matches[pair]
	delete(r.s.matches, pair)
	return dissolved, nil
}

// ListGiven は userID が送ったいいねを新しい順に返す。
func (r *LikeRepo) ListGiven(_ context.Context, userID string) ([]model.LikeWithUser, error) {
	return r.list(func(l model.Like) (string, bool) { return l.LikedID, l.LikerID == userID }), nil
}

// ListReceived は userID が受け取ったいいねを新しい順に返す。
func (r *LikeRepo) ListReceived(_ context.Context, userID string) ([]model.LikeWithUser, error) {
	return r.list(func(l model.Like) (string, bool) { return l.LikerID, l.LikedID == userID }), nil
}

// list はmatchで選んだいいねに相手ユーザーを結合する。
func (r *LikeRepo) list(match func(model.Like) (otherID string, ok bool)) []model.LikeWithUser {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []likeRow
	for _, row := range r.s.likes {
		if _, ok := match(row.like); ok {
			rows = append(rows, row)
		}
	}
	sortNewestFirst(rows, func(row likeRow) (time.Time, int64) { return row.like.CreatedAt, row.seq })

	out := []model.LikeWithUser{}
	for _, row := range rows {
		otherID, _ := match(row.like)
		other, ok := r.s.users[otherID]
		if !ok {
			continue
		}
		out = append(out, model.LikeWithUser{Like: row.like, Other: other})
	}
	return out
}

// MatchRepo はメモリ上のMatchRepository。
type MatchRepo struct{ s *Store }

// Ensure は両方向のいいねが存在し、ブロックがなく、マッチが未作成の場合に限り作成する。
func (r *MatchRepo) Ensure(_ context.Context, match *model.Match) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.blockedBetween(match.UserLowID, match.UserHighID) {
		return false, nil
	}
	_, forward := r.s.likes[likeKey{match.UserLowID, match.UserHighID}]
	_, reverse := r.s.likes[likeKey{match.UserHighID, match.UserLowID}]
	if !forward || !reverse {
		return false, nil
	}
	key := pairKey{match.UserLowID, match.UserHighID}
	if _, ok := r.s.matches[key]; ok {
		return false, nil
	}
	r.s.matches[key] = matchRow{match: *match, seq: r.s.nextSeq()}
	return true, nil
}

// Delete は正規化済みペアのマッチを削除する。
func (r *MatchRepo) Delete(_ context.Context, lowID, highID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{lowID, highID}
	if _, ok := r.s.matches[key]; !ok {
		return false, nil
	}
	delete(r.s.matches, key)
	return true, nil
}

// Find は正規化済みペアのマッチを取得する。見つからない場合はnilを返す。
func (r *MatchRepo) Find(_ context.Context, lowID, highID string) (*model.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.matches[pairKey{lowID, highID}]
	if !ok {
		return nil, nil
	}
	m := row.match
	return &m, nil
}

// ListByUser は userID を端点とする全マッチを新しい順に返す。
func (r *MatchRepo) ListByUser(_ context.Context, userID string) ([]model.MatchWithUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []matchRow
	for key, row := range r.s.matches {
		if key.low == userID || key.high == userID {
			rows = append(rows, row)
		}
	}
	sortNewestFirst(rows, func(row matchRow) (time.Time, int64) { return row.match.CreatedAt, row.seq })

	out := []model.MatchWithUser{}
	for _, row := range rows {
		other, ok := r.s.users[row.match.Other(userID)]
		if !ok {
			continue
		}
		out = append(out, model.MatchWithUser{Match: row.match, Other: other})
	}
	return out, nil
}

// BlockRepo はメモリ上のBlockRepository。
type BlockRepo struct{ s *Store }

// Create はブロックを作成し、2人の間のいいねとマッチを同じロック内で削除する。
func (r *BlockRepo) Create(_ context.Context, block *model.Block) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.hasUser(block.BlockerID) || !r.s.hasUser(block.BlockedID) {
		return false, repository.ErrNotFound
	}
	key := likeKey{block.BlockerID, block.BlockedID}
	if _, ok := r.s.blocks[key]; ok {
		return false, repository.ErrDuplicate
	}
	if r.s.txErr != nil {
		return false, r.s.txErr
	}
	r.s.blocks[key] = *block
	delete(r.s.likes, key)
	delete(r.s.likes, likeKey{block.BlockedID, block.BlockerID})

	pair := pairOf(block.BlockerID, block.BlockedID)
	_, dissolved := r.s.matches[pair]
	delete(r.s.matches, pair)
	return dissolved, nil
}

// Delete は blockerID → blockedID のブロックを解除する。
func (r *BlockRepo) Delete(_ context.Context, blockerID, blockedID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := likeKey{blockerID, blockedID}
	if _, ok := r.s.blocks[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.blocks, key)
	return nil
}

// ExistsBetween は a と b のどちらかが相手をブロックしているかを返す。
func (r *BlockRepo) ExistsBetween(_ context.Context, a, b string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.blockedBetween(a, b), nil
}

// MessageRepo はメモリ上のMessageRepository。
type MessageRepo struct{ s *Store }

// Create はメッセージを追記する。
func (r *MessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.hasUser(msg.SenderID) || !r.s.hasUser(msg.ReceiverID) {
		return repository.ErrNotFound
	}
	r.s.messages = append(r.s.messages, messageRow{msg: *msg, seq: r.s.nextSeq()})
	return nil
}

// ListThread は2ユーザー間のメッセージを新しい順にlimit/offsetで取得する。
func (r *MessageRepo) ListThread(_ context.Context, userID, otherID string, limit, offset int) ([]model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []messageRow
	for _, row := range r.s.messages {
		m := row.msg
		if (m.SenderID == userID && m.ReceiverID == otherID) || (m.SenderID == otherID && m.ReceiverID == userID) {
			rows = append(rows, row)
		}
	}
	sortNewestFirst(rows, func(row messageRow) (time.Time, int64) { return row.msg.CreatedAt, row.seq })

	out := []model.Message{}
	for i := offset; i < len(rows) && len(out) < limit; i++ {
		out = append(out, rows[i].msg)
	}
	return out, nil
}

// MarkRead は senderID から receiverID 宛の未読メッセージを既読にし、変更件数を返す。
func (r *MessageRepo) MarkRead(_ context.Context, receiverID, senderID string, readAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for i := range r.s.messages {
		m := &r.s.messages[i].msg
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			at := readAt
			m.IsRead = true
			m.ReadAt = &at
			count++
		}
	}
	return count, nil
}

// ListConversationHeads は userID がやり取りした相手ごとの最新メッセージを返す。
func (r *MessageRepo) ListConversationHeads(_ context.Context, userID string) ([]model.ConversationHead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	latest := make(map[string]messageRow)
	for _, row := range r.s.messages {
		m := row.msg
		var otherID string
		switch userID {
		case m.SenderID:
			otherID = m.ReceiverID
		case m.ReceiverID:
			otherID = m.SenderID
		default:
			continue
		}
		cur, ok := latest[otherID]
		if !ok || newerFirst(m.CreatedAt, row.seq, cur.msg.CreatedAt, cur.seq) {
			latest[otherID] = row
		}
	}

	rows := make([]messageRow, 0, len(latest))
	for _, row := range latest {
		rows = append(rows, row)
	}
	sortNewestFirst(rows, func(row messageRow) (time.Time, int64) { return row.msg.CreatedAt, row.seq })

	heads := []model.ConversationHead{}
	for _, row := range rows {
		otherID := row.msg.SenderID
		if otherID == userID {
			otherID = row.msg.ReceiverID
		}
		other, ok := r.s.users[otherID]
		if !ok {
			continue
		}
		heads = append(heads, model.ConversationHead{Other: other, LastMessage: row.msg})
	}
	return heads, nil
}

// CountUnreadBySender は receiverID 宛の未読メッセージ数を送信者ごとに返す。
func (r *MessageRepo) CountUnreadBySender(_ context.Context, receiverID string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := make(map[string]int)
	for _, row := range r.s.messages {
		if row.msg.ReceiverID == receiverID && !row.msg.IsRead {
			counts[row.msg.SenderID]++
		}
	}
	return counts, nil
}

// NotificationRepo はメモリ上のNotificationRepository。
type NotificationRepo struct{ s *Store }

// Create は通知を作成する。
func (r *NotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.hasUser(n.UserID) {
		return repository.ErrNotFound
	}
	r.s.notifications = append(r.s.notifications, notificationRow{n: *n, seq: r.s.nextSeq()})
	return nil
}

// ListRecent は userID の通知を新しい順に最大limit件返す。
func (r *NotificationRepo) ListRecent(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []notificationRow
	for _, row := range r.s.notifications {
		if row.n.UserID == userID {
			rows = append(rows, row)
		}
	}
	sortNewestFirst(rows, func(row notificationRow) (time.Time, int64) { return row.n.CreatedAt, row.seq })

	out := []model.Notification{}
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].n)
	}
	return out, nil
}

// MarkRead は userID の指定通知を既読にし、変更件数を返す。
func (r *NotificationRepo) MarkRead(_ context.Context, userID string, ids []string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	count := 0
	for i := range r.s.notifications {
		n := &r.s.notifications[i].n
		if _, ok := want[n.ID]; ok && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// DeleteReadBefore は before より前に作成された既読通知を削除し、削除件数を返す。
func (r *NotificationRepo) DeleteReadBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.notifications[:0]
	var deleted int64
	for _, row := range r.s.notifications {
		if row.n.IsRead && row.n.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	r.s.notifications = kept
	return deleted, nil
}

// compile-time interface check
var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.LikeRepository         = (*LikeRepo)(nil)
	_ repository.MatchRepository        = (*MatchRepo)(nil)
	_ repository.BlockRepository        = (*BlockRepo)(nil)
	_ repository.MessageRepository      = (*MessageRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
)
