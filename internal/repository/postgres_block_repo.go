package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/matchtalk/internal/model"
)

// PostgresBlockRepo はPostgreSQLを使用したブロックリポジトリ。
type PostgresBlockRepo struct {
	db *sql.DB
}

// NewPostgresBlockRepo はPostgresBlockRepoを生成する。
func NewPostgresBlockRepo(db *sql.DB) *PostgresBlockRepo {
	return &PostgresBlockRepo{db: db}
}

// Create はブロックを作成し、2人の間のいいねとマッチを同じトランザクションで削除する。
// いいねの削除でロックを取ってからマッチを削除するため、並行するEnsureが作ったマッチも残らない。
func (r *PostgresBlockRepo) Create(ctx context.Context, block *model.Block) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO blocks (id, blocker_id, blocked_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		block.ID, block.BlockerID, block.BlockedID, block.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("ブロックの作成に失敗しました: %w", mapConstraintError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, ErrDuplicate
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM likes
		 WHERE (liker_id = $1 AND liked_id = $2) OR (liker_id = $2 AND liked_id = $1)`,
		block.BlockerID, block.BlockedID,
	); err != nil {
		return false, fmt.Errorf("いいねの削除に失敗しました: %w", err)
	}

	dissolved, err := deletePairMatch(ctx, tx, block.BlockerID, block.BlockedID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return dissolved, nil
}

// Delete は blockerID → blockedID のブロックを解除する。
// 削除済みのいいねは復元しない。
func (r *PostgresBlockRepo) Delete(ctx context.Context, blockerID, blockedID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("ブロックの解除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsBetween は a と b のどちらかが相手をブロックしているかを返す。
func (r *PostgresBlockRepo) ExistsBetween(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM blocks
		   WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		 )`,
		a, b,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ブロックの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ BlockRepository = (*PostgresBlockRepo)(nil)
