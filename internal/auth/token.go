package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired は署名は正しいが有効期限が切れたトークンを表します。
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid は署名検証に失敗したトークンを表します。
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenMalformed はトークンとして解釈できない入力を表します。
	ErrTokenMalformed = errors.New("auth: token malformed")
)

// Claims は検証済みトークンが運ぶ本人情報です。
type Claims struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims はJWTのエンコード/デコードに使う内部表現です。
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Email  string `json:"email"`
}

// TokenService は共有秘密鍵によるトークンの発行と検証を提供します。
// 永続状態は持ちません。鍵を差し替えると発行済みトークンはすべて無効になります。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService は TokenService を作成します。
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock は現在時刻の取得方法を差し替えます。期限切れのテスト用です。
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue はユーザーIDとemailを含む署名付きトークンを発行します。
func (s *TokenService) Issue(userID int64, email string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返します。
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims := &Claims{
		UserID: parsed.UserID,
		Email:  parsed.Email,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
