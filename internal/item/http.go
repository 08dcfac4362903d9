// Package item はToDoアイテムの所有者スコープ付きCRUDを提供します。
package item

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdeck/internal/api"
	"github.com/yourusername/taskdeck/internal/auth"
	"github.com/yourusername/taskdeck/internal/storage"
)

const defaultPageSize = 10

// Store はアイテムの永続化機能です。実装側が所有者スコープを保証します。
type Store interface {
	CreateItem(ctx context.Context, ownerID int64, name, description string, status storage.Status) (*storage.Item, error)
	ItemByID(ctx context.Context, ownerID, itemID int64) (*storage.Item, error)
	ListItems(ctx context.Context, ownerID int64, limit, offset int) ([]storage.Item, int, error)
	UpdateItem(ctx context.Context, ownerID, itemID int64, changes storage.ItemChanges) (*storage.Item, error)
	DeleteItem(ctx context.Context, ownerID, itemID int64) error
}

// ListHandler は GET /items のハンドラーを返します。
func ListHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
			return
		}

		page := queryIntDefault(c, "page", 1)
		limit := queryIntDefault(c, "limit", defaultPageSize)
		offset := (page - 1) * limit

		items, total, err := store.ListItems(c.Request.Context(), identity.UserID, limit, offset)
		if err != nil {
			api.RespondWithError(c, err)
			return
		}

		// 範囲外のページはエラーではなく空リストになる
		api.RespondWithPagination(c, http.StatusOK, "Items retrieved successfully", items, api.Pagination{
			Total:      total,
			Page:       page,
			TotalPages: (total + limit - 1) / limit,
			Limit:      limit,
		})
	}
}

// GetHandler は GET /items/:id のハンドラーを返します。
func GetHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
			return
		}

		itemID, err := parseItemID(c)
		if err != nil {
			api.RespondWithError(c, itemNotFound())
			return
		}

		item, err := store.ItemByID(c.Request.Context(), identity.UserID, itemID)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		api.Respond(c, http.StatusOK, "Item retrieved successfully", item)
	}
}

type createRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// CreateHandler は POST /items のハンドラーを返します。
// 所有者は必ず検証済み本人情報から決まり、ボディで指定された
// 所有者フィールドは無視されます。
func CreateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
			return
		}

		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.RespondWithError(c, api.NewError(api.CodeInvalidInput, "Invalid request body"))
			return
		}

		if err := validateName(req.Name); err != nil {
			api.RespondWithError(c, api.NewError(api.CodeInvalidInput, err.Error()))
			return
		}

		status := storage.StatusPending
		if req.Status != nil {
			parsed, err := storage.ParseStatus(*req.Status)
			if err != nil {
				api.RespondWithError(c, api.NewError(api.CodeInvalidInput, statusMessage))
				return
			}
			status = parsed
		}

		description := ""
		if req.Description != nil {
			description = *req.Description
		}

		item, err := store.CreateItem(c.Request.Context(), identity.UserID, req.Name, description, status)
		if err != nil {
			api.RespondWithError(c, err)
			return
		}

		api.Respond(c, http.StatusCreated, "Item created successfully", item)
	}
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// UpdateHandler は PUT /items/:id のハンドラーを返します。
// 送られてきたフィールドだけを検証して適用します。
func UpdateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
			return
		}

		itemID, err := parseItemID(c)
		if err != nil {
			api.RespondWithError(c, itemNotFound())
			return
		}

		var req updateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.RespondWithError(c, api.NewError(api.CodeInvalidInput, "Invalid request body"))
			return
		}

		changes := storage.ItemChanges{
			Name:        req.Name,
			Description: req.Description,
		}
		if req.Name != nil {
			if err := validateName(*req.Name); err != nil {
				api.RespondWithError(c, api.NewError(api.CodeInvalidInput, err.Error()))
				return
			}
		}
		if req.Status != nil {
			parsed, err := storage.ParseStatus(*req.Status)
			if err != nil {
				api.RespondWithError(c, api.NewError(api.CodeInvalidInput, statusMessage))
				return
			}
			changes.Status = &parsed
		}

		item, err := store.UpdateItem(c.Request.Context(), identity.UserID, itemID, changes)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		api.Respond(c, http.StatusOK, "Item updated successfully", item)
	}
}

// DeleteHandler は DELETE /items/:id のハンドラーを返します。
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			api.RespondWithError(c, api.NewError(api.CodeUnauthorized, "No token, authorization denied"))
			return
		}

		itemID, err := parseItemID(c)
		if err != nil {
			api.RespondWithError(c, itemNotFound())
			return
		}

		if err := store.DeleteItem(c.Request.Context(), identity.UserID, itemID); err != nil {
			respondStoreError(c, err)
			return
		}

		api.Respond(c, http.StatusOK, "Item deleted successfully", nil)
	}
}

const statusMessage = "Status must be one of: pending, in_progress, completed"

func validateName(name string) error {
	if name == "" {
		return errors.New("Name is required")
	}
	if len([]rune(name)) > 255 {
		return errors.New("Name cannot exceed 255 characters")
	}
	return nil
}

// parseItemID はパスパラメータを解釈します。数値でないIDは
// 存在しないアイテムと同じ扱いにします。
func parseItemID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// queryIntDefault はクエリパラメータを正の整数として読み、
// 欠落・不正値はデフォルトに倒します。
func queryIntDefault(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

// respondStoreError はストアのエラーをHTTPレスポンスへ変換します。
// 他人のアイテムも存在しないアイテムも同じ404になります。
func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		api.RespondWithError(c, itemNotFound())
		return
	}
	api.RespondWithError(c, err)
}

func itemNotFound() *api.Error {
	return api.NewError(api.CodeNotFound, "Item not found")
}
