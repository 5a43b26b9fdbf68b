package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/matchtalk/internal/model"
)

const messageColumns = `id, sender_id, receiver_id, content, is_read, read_at, created_at`

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを追記する。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージの作成に失敗しました: %w", mapConstraintError(err))
	}
	return nil
}

// ListThread は2ユーザー間のメッセージを新しい順にlimit/offsetで取得する。
func (r *PostgresMessageRepo) ListThread(ctx context.Context, userID, otherID string, limit, offset int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		userID, otherID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("スレッドの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(messageDest(&m)...); err != nil {
			return nil, fmt.Errorf("メッセージ行の読み取りに失敗しました: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スレッドの走査に失敗しました: %w", err)
	}
	return messages, nil
}

// MarkRead は senderID から receiverID 宛の未読メッセージを既読にし、変更件数を返す。
func (r *PostgresMessageRepo) MarkRead(ctx context.Context, receiverID, senderID string, readAt time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = true, read_at = $3
		 WHERE receiver_id = $1 AND sender_id = $2 AND is_read = false`,
		receiverID, senderID, readAt,
	)
	if err != nil {
		return 0, fmt.Errorf("既読化に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// ListConversationHeads は userID がやり取りした相手ごとの最新メッセージを返す。
// DISTINCT ON で相手ごとに1行へ絞り込み、相手のプロフィールを結合する。
func (r *PostgresMessageRepo) ListConversationHeads(ctx context.Context, userID string) ([]model.ConversationHead, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH thread AS (
			SELECT `+messageColumns+`,
				CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
		), heads AS (
			SELECT DISTINCT ON (other_id) *
			FROM thread
			ORDER BY other_id, created_at DESC, id DESC
		)
		SELECT h.id, h.sender_id, h.receiver_id, h.content, h.is_read, h.read_at, h.created_at, `+userColumns+`
		FROM heads h
		JOIN users u ON u.id = h.other_id
		ORDER BY h.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	heads := []model.ConversationHead{}
	for rows.Next() {
		var h model.ConversationHead
		scanner := newUserScanner(&h.Other)
		dest := append(messageDest(&h.LastMessage), scanner.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("会話行の読み取りに失敗しました: %w", err)
		}
		scanner.finish()
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会話一覧の走査に失敗しました: %w", err)
	}
	return heads, nil
}

// CountUnreadBySender は receiverID 宛の未読メッセージ数を送信者ごとに返す。
func (r *PostgresMessageRepo) CountUnreadBySender(ctx context.Context, receiverID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sender_id, COUNT(*)
		 FROM messages
		 WHERE receiver_id = $1 AND is_read = false
		 GROUP BY sender_id`,
		receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("未読数の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var senderID string
		var count int
		if err := rows.Scan(&senderID, &count); err != nil {
			return nil, fmt.Errorf("未読数行の読み取りに失敗しました: %w", err)
		}
		counts[senderID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("未読数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// messageDest はmessageColumnsと同じ順序のスキャン先を返す。
func messageDest(m *model.Message) []any {
	return []any{&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.ReadAt, &m.CreatedAt}
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
