package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextIdentityKey は、検証済み本人情報をハンドラー間で共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// Identity はゲートウェイが検証して付与した本人情報です。
// 認可判断にはこの値だけを使い、リクエストボディやパスの
// ユーザーIDを信用してはいけません。
type Identity struct {
	UserID int64
	Email  string
}

// RequireAuth は Bearer トークンを検証するミドルウェアを返します。
// 検証失敗の内訳はログにのみ残し、クライアントには一律の401を返します。
func (m *Manager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "No token, authorization denied")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c, "Invalid token format, use Bearer token")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			// 期限切れ・署名不正・不正形式は区別せずに返す（情報漏えい防止）
			log.Printf("token rejected: path=%s err=%v", c.FullPath(), err)
			abortUnauthorized(c, "Token is not valid")
			return
		}

		c.Set(ContextIdentityKey, Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
		})
		c.Next()
	}
}

// IdentityFromContext はミドルウェアが付与した本人情報を取り出します。
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
