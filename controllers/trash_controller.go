package controllers

import (
	"vaultdrive/models"
	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
)

type TrashController struct {
	trashService *services.TrashService
}

func NewTrashController(trashService *services.TrashService) *TrashController {
	return &TrashController{trashService: trashService}
}

// ListTrash lists the owner's trash records, newest first. GET /trash.
// The optional type query narrows to "file" or "folder".
func (tc *TrashController) ListTrash(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	itemType := models.ItemType(c.Query("type"))
	if itemType != "" && !itemType.Valid() {
		utils.BadRequestResponse(c, "Invalid item type filter", nil)
		return
	}

	opts := parseQueryOptions(c)
	records, total, err := tc.trashService.List(c.Request.Context(), userID, itemType, opts)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.PaginatedSuccessResponse(c, "Trash retrieved", records, paginationMeta(opts, total))
}

// RestoreItems restores trashed items by record id. POST /trash/restore.
func (tc *TrashController) RestoreItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Trash record IDs are required", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := tc.trashService.Restore(c.Request.Context(), userID, ids)
	utils.SuccessResponse(c, "Restore completed", results)
}

// PurgeItems permanently deletes trashed items by record id.
// DELETE /trash.
func (tc *TrashController) PurgeItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Trash record IDs are required", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := tc.trashService.Purge(c.Request.Context(), userID, ids)
	utils.SuccessResponse(c, "Purge completed", results)
}

// EmptyTrash purges everything in the owner's trash. DELETE /trash/all.
func (tc *TrashController) EmptyTrash(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	results := tc.trashService.ClearAll(c.Request.Context(), userID)
	utils.SuccessResponse(c, "Trash emptied", results)
}
