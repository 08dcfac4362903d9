package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// エラーコードの一覧。HTTPステータスへの対応は RespondWithError が行います。
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error はクライアントへ返すことを意図したアプリケーションエラーです。
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError はコードとメッセージからアプリケーションエラーを作成します。
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// RespondWithError はエラーをHTTPレスポンスへ変換します。
// アプリケーションエラー以外は詳細をサーバーログにのみ残し、
// クライアントには汎用メッセージを返します。
func RespondWithError(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.JSON(statusForCode(apiErr.Code), gin.H{
			"status":  "error",
			"message": apiErr.Message,
			"data":    nil,
		})
		return
	}

	log.Printf("internal error: path=%s request_id=%s err=%v",
		c.FullPath(), RequestIDFromContext(c), err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Server error",
		"data":    nil,
	})
}

func statusForCode(code string) int {
	switch code {
	case CodeInvalidInput, CodeConflict, CodeInvalidCredentials:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
