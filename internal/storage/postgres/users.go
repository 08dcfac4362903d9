package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yourusername/taskdeck/internal/storage"
)

// pqUniqueViolation は一意制約違反のPostgresエラーコードです。
const pqUniqueViolation = "23505"

// UserStore は storage.UserStore の Postgres 実装です。
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore は UserStore を作成します。
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser はユーザー行を挿入します。email の重複は
// storage.ErrDuplicateEmail になります。重複チェックは呼び出し側でも
// 行われますが、同時登録の競合は最終的にこの一意制約が防ぎます。
func (s *UserStore) CreateUser(ctx context.Context, email, passwordHash string) (*storage.User, error) {
	query, args, err := squirrel.Insert("users").
		Columns("email", "password_hash").
		Values(email, passwordHash).
		Suffix("RETURNING id, email, password_hash, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user: %w", err)
	}

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

// UserByEmail は正規化済みの email でユーザーを検索します。
func (s *UserStore) UserByEmail(ctx context.Context, email string) (*storage.User, error) {
	query, args, err := squirrel.Select("id", "email", "password_hash", "created_at").
		From("users").
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return &user, nil
}

// UserByID はIDでユーザーを検索します。
func (s *UserStore) UserByID(ctx context.Context, id int64) (*storage.User, error) {
	query, args, err := squirrel.Select("id", "email", "password_hash", "created_at").
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var user storage.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &user, nil
}

// DeleteUser はユーザー行を削除します。
// items.user_id の ON DELETE CASCADE により所有アイテムも消えます。
func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	query, args, err := squirrel.Delete("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
