// Package api はHTTPレスポンスの共通形式とミドルウェアを提供します。
package api

import "github.com/gin-gonic/gin"

// Respond は {status, message, data} 形式の成功レスポンスを返します。
func Respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// RespondWithPagination は一覧取得用にページング情報を付けて返します。
func RespondWithPagination(c *gin.Context, status int, message string, data any, p Pagination) {
	c.JSON(status, gin.H{
		"status":     "success",
		"message":    message,
		"data":       data,
		"pagination": p,
	})
}

// Pagination は一覧レスポンスに含めるページング情報です。
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Limit      int `json:"limit"`
}
