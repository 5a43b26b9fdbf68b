package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/matchtalk/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	var related sql.NullString
	if n.RelatedUserID != "" {
		related = sql.NullString{String: n.RelatedUserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, content, related_user_id, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, string(n.Type), n.Content, related, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", mapConstraintError(err))
	}
	return nil
}

// ListRecent は userID の通知を新しい順に最大limit件返す。
func (r *PostgresNotificationRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, content, related_user_id, is_read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var typ string
		var related sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Content, &related, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("通知行の読み取りに失敗しました: %w", err)
		}
		n.Type = model.NotificationType(typ)
		n.RelatedUserID = related.String
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知一覧の走査に失敗しました: %w", err)
	}
	return notifications, nil
}

// MarkRead は userID の指定通知を既読にし、変更件数を返す。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true
		 WHERE user_id = $1 AND id = ANY($2::uuid[]) AND is_read = false`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// DeleteReadBefore は before より前に作成された既読通知を削除し、削除件数を返す。
func (r *PostgresNotificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = true AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("既読通知の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
