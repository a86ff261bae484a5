package controllers

import (
	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
)

type FolderController struct {
	folderService *services.FolderService
}

func NewFolderController(folderService *services.FolderService) *FolderController {
	return &FolderController{folderService: folderService}
}

// CreateFolder makes a folder under an optional parent. POST /folders.
func (fc *FolderController) CreateFolder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		ParentID string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Folder name is required", nil)
		return
	}

	parentID, ok := parseOptionalParentID(c, req.ParentID)
	if !ok {
		return
	}

	folder, err := fc.folderService.Create(c.Request.Context(), userID, req.Name, parentID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Folder created", folder)
}

// GetFolder returns folder metadata including cached aggregates.
// GET /folders/:id.
func (fc *FolderController) GetFolder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	folderID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	folder, err := fc.folderService.Get(c.Request.Context(), userID, folderID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder retrieved", folder)
}

// GetContents lists the merged children of a folder, or of the root when
// the id is "root". GET /folders/:id/contents.
func (fc *FolderController) GetContents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	parentID, ok := parseOptionalParentID(c, c.Param("id"))
	if !ok {
		return
	}

	opts := parseQueryOptions(c)
	items, total, err := fc.folderService.GetContents(c.Request.Context(), userID, parentID, c.Query("name"), opts)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.PaginatedSuccessResponse(c, "Folder contents retrieved", items, paginationMeta(opts, total))
}

// RenameFolder renames a folder and rewrites descendant paths.
// PATCH /folders/:id/rename.
func (fc *FolderController) RenameFolder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	folderID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "New name is required", nil)
		return
	}

	folder, err := fc.folderService.Rename(c.Request.Context(), userID, folderID, req.Name)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder renamed", folder)
}

// MoveFolder reparents a folder subtree. PATCH /folders/:id/move.
func (fc *FolderController) MoveFolder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	folderID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	var req struct {
		TargetFolderID string `json:"target_folder_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	targetID, ok := parseOptionalParentID(c, req.TargetFolderID)
	if !ok {
		return
	}

	folder, err := fc.folderService.Move(c.Request.Context(), userID, folderID, targetID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder moved", folder)
}

// DeleteFolder soft-deletes a folder and its entire subtree into the
// trash. DELETE /folders/:id.
func (fc *FolderController) DeleteFolder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	folderID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	folder, err := fc.folderService.SoftDeleteTree(c.Request.Context(), userID, folderID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder moved to trash", folder)
}
