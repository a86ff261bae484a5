package controllers

import (
	"strconv"

	"vaultdrive/middleware"
	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID reads the authenticated user set by the auth middleware.
// Writes the 401 itself so handlers can bail with a bare return.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
	}
	return userID, ok
}

func parseQueryOptions(c *gin.Context) services.QueryOptions {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return services.QueryOptions{
		SortBy: c.Query("sort"),
		Page:   page,
		Limit:  limit,
	}
}

func paginationMeta(opts services.QueryOptions, total int64) *utils.Pagination {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &utils.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// parseIDList converts hex ids from a batch request body, rejecting the
// whole request when any id is malformed.
func parseIDList(c *gin.Context, hexIDs []string) ([]primitive.ObjectID, bool) {
	if len(hexIDs) == 0 {
		utils.BadRequestResponse(c, "No item IDs provided", nil)
		return nil, false
	}

	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, hex := range hexIDs {
		id, err := utils.ParseObjectID(hex)
		if err != nil {
			utils.ApiErrorResponse(c, err)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// parseOptionalParentID reads a folder id that may be absent or "root",
// both meaning the top level.
func parseOptionalParentID(c *gin.Context, value string) (*primitive.ObjectID, bool) {
	if value == "" || value == "root" {
		return nil, true
	}
	id, err := utils.ParseObjectID(value)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return nil, false
	}
	return &id, true
}
