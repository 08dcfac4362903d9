// Package auth は登録・ログイン・トークン検証などの認証機能を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdeck/internal/api"
	"github.com/yourusername/taskdeck/internal/storage"
)

// UserStore はアカウント操作に必要な永続化機能です。
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*storage.User, error)
	UserByEmail(ctx context.Context, email string) (*storage.User, error)
	UserByID(ctx context.Context, id int64) (*storage.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Manager は認証まわりのハンドラーとミドルウェアをまとめた構造体です。
type Manager struct {
	users             UserStore
	hasher            *Hasher
	tokens            *TokenService
	passwordMinLength int
}

// NewManager は認証マネージャーを作成します。
func NewManager(users UserStore, hasher *Hasher, tokens *TokenService, passwordMinLength int) *Manager {
	return &Manager{
		users:             users,
		hasher:            hasher,
		tokens:            tokens,
		passwordMinLength: passwordMinLength,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// publicUser はレスポンスに含めるユーザーの公開ビューです。
// パスワードハッシュは決して含めません。
type publicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Register は POST /auth/register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondWithError(c, api.NewError(api.CodeInvalidInput, "email and password are required"))
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		api.RespondWithError(c, api.NewError(api.CodeInvalidInput, "Please provide a valid email address"))
		return
	}
	if err := m.validatePassword(req.Password); err != nil {
		api.RespondWithError(c, api.NewError(api.CodeInvalidInput, err.Error()))
		return
	}

	// 先読みチェックは同時登録の競合を防げない。
	// 最終的な一意性は users.email の UNIQUE 制約が保証する。
	_, err = m.users.UserByEmail(c.Request.Context(), email)
	switch {
	case err == nil:
		api.RespondWithError(c, api.NewError(api.CodeConflict, "User already exists"))
		return
	case !errors.Is(err, storage.ErrNotFound):
		api.RespondWithError(c, err)
		return
	}

	hashed, err := m.hasher.Hash(req.Password)
	if err != nil {
		api.RespondWithError(c, fmt.Errorf("hash password: %w", err))
		return
	}

	user, err := m.users.CreateUser(c.Request.Context(), email, hashed)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			api.RespondWithError(c, api.NewError(api.CodeConflict, "User already exists"))
			return
		}
		api.RespondWithError(c, err)
		return
	}

	api.Respond(c, http.StatusCreated, "User registered successfully", gin.H{
		"user": publicUser{ID: user.ID, Email: user.Email},
	})
}

// Login は POST /auth/login のハンドラーです。
// 「ユーザーが存在しない」と「パスワードが違う」は同一のレスポンスに
// 畳み込み、アカウントの存在を推測できないようにします。
func (m *Manager) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondWithError(c, api.NewError(api.CodeInvalidInput, "email and password are required"))
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		api.RespondWithError(c, invalidCredentials())
		return
	}

	user, err := m.users.UserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.RespondWithError(c, invalidCredentials())
			return
		}
		api.RespondWithError(c, err)
		return
	}

	if !m.hasher.Verify(req.Password, user.PasswordHash) {
		api.RespondWithError(c, invalidCredentials())
		return
	}

	token, err := m.tokens.Issue(user.ID, user.Email)
	if err != nil {
		api.RespondWithError(c, err)
		return
	}

	api.Respond(c, http.StatusOK, "Login successful", gin.H{
		"user":  publicUser{ID: user.ID, Email: user.Email},
		"token": token,
	})
}

// Profile は GET /auth/profile のハンドラーです。
// ユーザーIDは必ず検証済みトークン由来の値を使います。
func (m *Manager) Profile(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
		return
	}

	user, err := m.users.UserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		// トークン発行後にアカウントが削除されたケース
		if errors.Is(err, storage.ErrNotFound) {
			api.RespondWithError(c, api.NewError(api.CodeNotFound, "User not found"))
			return
		}
		api.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}

// DeleteAccount は DELETE /auth/profile のハンドラーです。
// 所有アイテムはFKのカスケード削除で一緒に消えます。
func (m *Manager) DeleteAccount(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
		return
	}

	if err := m.users.DeleteUser(c.Request.Context(), identity.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.RespondWithError(c, api.NewError(api.CodeNotFound, "User not found"))
			return
		}
		api.RespondWithError(c, err)
		return
	}

	api.Respond(c, http.StatusOK, "Account deleted successfully", nil)
}

func invalidCredentials() *api.Error {
	return api.NewError(api.CodeInvalidCredentials, "Invalid credentials")
}

// normalizeEmail は前後空白を除去し小文字へ正規化したうえで形式を検証します。
func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", fmt.Errorf("invalid email address")
	}
	return normalized, nil
}

// validatePassword は設定された最小文字数と文字種の要件を検証します。
func (m *Manager) validatePassword(password string) error {
	if len(password) < m.passwordMinLength {
		return fmt.Errorf("Password must be at least %d characters long", m.passwordMinLength)
	}
	hasLetter := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("Password must contain at least one letter")
	}
	if !hasDigit {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
