// Package storage は永続化の共通モデルとエラーを定義します。
// ストアの実装は storage/postgres にあります。
package storage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound は対象行が存在しない（または所有者が異なる）場合に返されます。
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicateEmail は email の一意制約に衝突した場合に返されます。
	ErrDuplicateEmail = errors.New("storage: duplicate email")
)

// User は登録済みユーザーの行を表します。
// PasswordHash はレスポンスに含めてはいけません。
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Item はToDoアイテムの行を表します。
type Item struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Status      Status    `db:"status" json:"status"`
	UserID      int64     `db:"user_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Status はアイテムの状態を表す閉じた列挙型です。
// 列挙外の文字列は ParseStatus が境界で拒否します。
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus は文字列を Status に変換します。列挙外の値はエラーです。
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// ItemChanges は部分更新で変更するフィールドを表します。
// nil のフィールドは変更されません。
type ItemChanges struct {
	Name        *string
	Description *string
	Status      *Status
}
