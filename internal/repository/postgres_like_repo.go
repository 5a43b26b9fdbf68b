package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/matchtalk/internal/model"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// Create はいいねを作成する。
// ON CONFLICT DO NOTHING で挿入されなかった場合は既存とみなしErrDuplicateを返す。
func (r *PostgresLikeRepo) Create(ctx context.Context, like *model.Like) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (id, liker_id, liked_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (liker_id, liked_id) DO NOTHING`,
		like.ID, like.LikerID, like.LikedID, like.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("いいねの作成に失敗しました: %w", mapConstraintError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// Exists は likerID → likedID のいいねが存在するかを返す。
func (r *PostgresLikeRepo) Exists(ctx context.Context, likerID, likedID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE liker_id = $1 AND liked_id = $2)`,
		likerID, likedID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("いいねの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// DeleteWithMatch は likerID → likedID のいいねと2人の間のマッチを1トランザクションで削除する。
// マッチの削除はいいね削除とは別ステートメントで行う。READ COMMITTED では各ステートメントが
// 新しいスナップショットを取るため、いいね行のロック待ちの間にコミットされたマッチも削除対象になる。
func (r *PostgresLikeRepo) DeleteWithMatch(ctx context.Context, likerID, likedID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE liker_id = $1 AND liked_id = $2`,
		likerID, likedID,
	)
	if err != nil {
		return false, fmt.Errorf("いいねの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, ErrNotFound
	}

	dissolved, err := deletePairMatch(ctx, tx, likerID, likedID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return dissolved, nil
}

// deletePairMatch はトランザクション内で a と b の間のマッチを削除する。
func deletePairMatch(ctx context.Context, tx *sql.Tx, a, b string) (bool, error) {
	low, high := model.CanonicalPair(a, b)
	result, err := tx.ExecContext(ctx,
		`DELETE FROM matches WHERE user_low_id = $1 AND user_high_id = $2`,
		low, high,
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

// ListGiven は userID が送ったいいねを相手のプロフィール付きで新しい順に返す。
func (r *PostgresLikeRepo) ListGiven(ctx context.Context, userID string) ([]model.LikeWithUser, error) {
	return r.list(ctx,
		`SELECT l.id, l.liker_id, l.liked_id, l.created_at, `+userColumns+`
		 FROM likes l
		 JOIN users u ON u.id = l.liked_id
		 WHERE l.liker_id = $1
		 ORDER BY l.created_at DESC`,
		userID,
	)
}

// ListReceived は userID が受け取ったいいねを相手のプロフィール付きで新しい順に返す。
func (r *PostgresLikeRepo) ListReceived(ctx context.Context, userID string) ([]model.LikeWithUser, error) {
	return r.list(ctx,
		`SELECT l.id, l.liker_id, l.liked_id, l.created_at, `+userColumns+`
		 FROM likes l
		 JOIN users u ON u.id = l.liker_id
		 WHERE l.liked_id = $1
		 ORDER BY l.created_at DESC`,
		userID,
	)
}

func (r *PostgresLikeRepo) list(ctx context.Context, query, userID string) ([]model.LikeWithUser, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	likes := []model.LikeWithUser{}
	for rows.Next() {
		var l model.LikeWithUser
		scanner := newUserScanner(&l.Other)
		dest := append([]any{&l.ID, &l.LikerID, &l.LikedID, &l.CreatedAt}, scanner.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("いいね行の読み取りに失敗しました: %w", err)
		}
		scanner.finish()
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("いいね一覧の走査に失敗しました: %w", err)
	}
	return likes, nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
