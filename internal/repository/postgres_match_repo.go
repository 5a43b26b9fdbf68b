package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/matchtalk/internal/model"
)

// PostgresMatchRepo はPostgreSQLを使用したマッチリポジトリ。
type PostgresMatchRepo struct {
	db *sql.DB
}

// NewPostgresMatchRepo はPostgresMatchRepoを生成する。
func NewPostgresMatchRepo(db *sql.DB) *PostgresMatchRepo {
	return &PostgresMatchRepo{db: db}
}

// Ensure は両方向のいいねが存在し、どちらもブロックしていない場合に限りマッチを作成する。
// 両方向のいいね行を FOR SHARE でロックしてから挿入するため、取り消し中のいいねからはマッチが生まれない。
// ロック待ちの後に削除済みと分かった行は pair から外れる。
func (r *PostgresMatchRepo) Ensure(ctx context.Context, match *model.Match) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`WITH pair AS (
		   SELECT id FROM likes
		   WHERE (liker_id = $2 AND liked_id = $3) OR (liker_id = $3 AND liked_id = $2)
		   FOR SHARE
		 )
		 INSERT INTO matches (id, user_low_id, user_high_id, created_at)
		 SELECT $1::uuid, $2::uuid, $3::uuid, $4::timestamptz
		 WHERE (SELECT count(*) FROM pair) = 2
		   AND NOT EXISTS (
		     SELECT 1 FROM blocks
		     WHERE (blocker_id = $2 AND blocked_id = $3) OR (blocker_id = $3 AND blocked_id = $2)
		   )
		 ON CONFLICT (user_low_id, user_high_id) DO NOTHING`,
		match.ID, match.UserLowID, match.UserHighID, match.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("マッチの作成に失敗しました: %w", mapConstraintError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は正規化済みペアのマッチを削除する。
func (r *PostgresMatchRepo) Delete(ctx context.Context, lowID, highID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM matches WHERE user_low_id = $1 AND user_high_id = $2`,
		lowID, highID,
	)
	if err != nil {
		return false, fmt.Errorf("マッチの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Find は正規化済みペアのマッチを取得する。見つからない場合はnilを返す。
func (r *PostgresMatchRepo) Find(ctx context.Context, lowID, highID string) (*model.Match, error) {
	m := &model.Match{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_low_id, user_high_id, created_at
		 FROM matches WHERE user_low_id = $1 AND user_high_id = $2`,
		lowID, highID,
	).Scan(&m.ID, &m.UserLowID, &m.UserHighID, &m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マッチの取得に失敗しました: %w", err)
	}
	return m, nil
}

// ListByUser は userID を端点とする全マッチを相手のプロフィール付きで新しい順に返す。
func (r *PostgresMatchRepo) ListByUser(ctx context.Context, userID string) ([]model.MatchWithUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.user_low_id, m.user_high_id, m.created_at, `+userColumns+`
		 FROM matches m
		 JOIN users u ON u.id = CASE WHEN m.user_low_id = $1 THEN m.user_high_id ELSE m.user_low_id END
		 WHERE m.user_low_id = $1 OR m.user_high_id = $1
		 ORDER BY m.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	matches := []model.MatchWithUser{}
	for rows.Next() {
		var m model.MatchWithUser
		scanner := newUserScanner(&m.Other)
		dest := append([]any{&m.ID, &m.UserLowID, &m.UserHighID, &m.CreatedAt}, scanner.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("マッチ行の読み取りに失敗しました: %w", err)
		}
		scanner.finish()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マッチ一覧の走査に失敗しました: %w", err)
	}
	return matches, nil
}

// compile-time interface check
var _ MatchRepository = (*PostgresMatchRepo)(nil)
