package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "api.request_id"

// RequestIDHeader はリクエストIDを載せるレスポンスヘッダー名です。
const RequestIDHeader = "X-Request-Id"

// RequestID は各リクエストにIDを割り当てるミドルウェアを返します。
// クライアントが X-Request-Id を送ってきた場合はそれを引き継ぎます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext はミドルウェアが割り当てたIDを返します。
func RequestIDFromContext(c *gin.Context) string {
	id, _ := c.Get(requestIDKey)
	s, _ := id.(string)
	return s
}
