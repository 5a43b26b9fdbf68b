package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATE。
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// mapConstraintError は制約違反をリポジトリのセンチネルエラーに変換する。
// 該当しない場合は元のエラーをそのまま返す。
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrNotFound
	}
	return err
}
