package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yourusername/taskdeck/internal/storage"
)

const itemColumns = "id, name, description, status, user_id, created_at, updated_at"

// ItemStore は storage.ItemStore の Postgres 実装です。
// すべてのクエリが user_id で絞り込まれるため、他ユーザーの行は
// この層からは見えません。
type ItemStore struct {
	db *sqlx.DB
}

// NewItemStore は ItemStore を作成します。
func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// CreateItem はアイテム行を挿入し、採番済みの行を返します。
func (s *ItemStore) CreateItem(ctx context.Context, ownerID int64, name, description string, status storage.Status) (*storage.Item, error) {
	query, args, err := squirrel.Insert("items").
		Columns("name", "description", "status", "user_id").
		Values(name, description, status, ownerID).
		Suffix("RETURNING " + itemColumns).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert item: %w", err)
	}

	var item storage.Item
	if err := s.db.GetContext(ctx, &item, query, args...); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return &item, nil
}

// ItemByID は所有者スコープでアイテムを取得します。
func (s *ItemStore) ItemByID(ctx context.Context, ownerID, itemID int64) (*storage.Item, error) {
	query, args, err := squirrel.Select(itemColumns).
		From("items").
		Where(squirrel.Eq{"id": itemID, "user_id": ownerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select item: %w", err)
	}

	var item storage.Item
	if err := s.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select item: %w", err)
	}
	return &item, nil
}

// ListItems は作成順（id昇順）で範囲を返し、所有アイテムの総件数も返します。
func (s *ItemStore) ListItems(ctx context.Context, ownerID int64, limit, offset int) ([]storage.Item, int, error) {
	countQuery, countArgs, err := squirrel.Select("COUNT(*)").
		From("items").
		Where(squirrel.Eq{"user_id": ownerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count items: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query, args, err := squirrel.Select(itemColumns).
		From("items").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select items: %w", err)
	}

	items := []storage.Item{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select items: %w", err)
	}
	return items, total, nil
}

// UpdateItem は指定されたフィールドだけを更新します。
// updated_at は変更の有無にかかわらず更新されます。
func (s *ItemStore) UpdateItem(ctx context.Context, ownerID, itemID int64, changes storage.ItemChanges) (*storage.Item, error) {
	builder := squirrel.Update("items").
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": itemID, "user_id": ownerID}).
		Suffix("RETURNING " + itemColumns).
		PlaceholderFormat(squirrel.Dollar)

	if changes.Name != nil {
		builder = builder.Set("name", *changes.Name)
	}
	if changes.Description != nil {
		builder = builder.Set("description", *changes.Description)
	}
	if changes.Status != nil {
		builder = builder.Set("status", *changes.Status)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update item: %w", err)
	}

	var item storage.Item
	if err := s.db.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	return &item, nil
}

// DeleteItem は所有者スコープでアイテムを削除します。
func (s *ItemStore) DeleteItem(ctx context.Context, ownerID, itemID int64) error {
	query, args, err := squirrel.Delete("items").
		Where(squirrel.Eq{"id": itemID, "user_id": ownerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete item: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
