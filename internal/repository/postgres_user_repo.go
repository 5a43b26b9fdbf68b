package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/matchtalk/internal/model"
)

// userColumns はプロフィール結合で共通に使うusersテーブルのカラム。エイリアスは u 固定。
const userColumns = `u.id, u.username, u.first_name, u.last_name, u.date_of_birth, u.gender,
	u.bio, u.profile_picture, u.city, u.country, u.created_at`

// userScanner はuserColumnsをmodel.Userへ読み取るためのスキャン先をまとめる。
type userScanner struct {
	user *model.User
	dob  sql.NullTime
}

func newUserScanner(u *model.User) *userScanner {
	return &userScanner{user: u}
}

// dest はuserColumnsと同じ順序のスキャン先を返す。
func (s *userScanner) dest() []any {
	u := s.user
	return []any{&u.ID, &u.Username, &u.FirstName, &u.LastName, &s.dob, &u.Gender,
		&u.Bio, &u.ProfilePicture, &u.City, &u.Country, &u.CreatedAt}
}

// finish はNULL許容カラムをモデルに反映する。
func (s *userScanner) finish() {
	if s.dob.Valid {
		dob := s.dob.Time
		s.user.DateOfBirth = &dob
	} else {
		s.user.DateOfBirth = nil
	}
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	scanner := newUserScanner(user)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`,
		id,
	).Scan(scanner.dest()...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	scanner.finish()

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
