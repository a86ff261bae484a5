package controllers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
)

type FileController struct {
	fileService *services.FileService
}

func NewFileController(fileService *services.FileService) *FileController {
	return &FileController{fileService: fileService}
}

// UploadFiles handles multipart uploads into an optional target folder.
// POST /files/upload, form fields: files[] and folderId.
func (fc *FileController) UploadFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, "Invalid multipart form", nil)
		return
	}

	fileHeaders := form.File["files[]"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["files"]
	}
	if len(fileHeaders) == 0 {
		utils.BadRequestResponse(c, "No files provided", nil)
		return
	}

	parentID, ok := parseOptionalParentID(c, c.PostForm("folderId"))
	if !ok {
		return
	}

	uploads := make([]services.FileUpload, 0, len(fileHeaders))
	opened := make([]multipart.File, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range fileHeaders {
		src, err := header.Open()
		if err != nil {
			utils.BadRequestResponse(c, "Could not read uploaded file: "+header.Filename, nil)
			return
		}
		opened = append(opened, src)
		uploads = append(uploads, services.FileUpload{
			Reader:   src,
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
		})
	}

	files, err := fc.fileService.Upload(c.Request.Context(), userID, parentID, uploads)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Files uploaded successfully", files)
}

// GetFile returns file metadata. GET /files/:id.
func (fc *FileController) GetFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	file, err := fc.fileService.Get(c.Request.Context(), userID, fileID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File retrieved", file)
}

// DownloadFile streams the file content. GET /files/:id/download.
func (fc *FileController) DownloadFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	file, reader, err := fc.fileService.GetForDownload(c.Request.Context(), userID, fileID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}
	defer reader.Close()

	contentType := file.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, file.Size, contentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.OriginalName),
	})
}

// QueryFiles searches the owner's active files. GET /files.
func (fc *FileController) QueryFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	minSize, _ := strconv.ParseInt(c.Query("minSize"), 10, 64)
	maxSize, _ := strconv.ParseInt(c.Query("maxSize"), 10, 64)
	filter := services.FileFilter{
		Name:                     c.Query("name"),
		FileType:                 c.Query("type"),
		MinSize:                  minSize,
		MaxSize:                  maxSize,
		ExcludeInactiveAncestors: c.Query("strict") == "true",
	}

	opts := parseQueryOptions(c)
	files, total, err := fc.fileService.Query(c.Request.Context(), userID, filter, opts)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.PaginatedSuccessResponse(c, "Files retrieved", files, paginationMeta(opts, total))
}

// RenameFile changes a file's display name. PATCH /files/:id/rename.
func (fc *FileController) RenameFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
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

	file, err := fc.fileService.Rename(c.Request.Context(), userID, fileID, req.Name)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File renamed", file)
}

// ReplaceFile swaps a file's content for a new upload, keeping identity and
// location. PUT /files/:id/content, form field: file.
func (fc *FileController) ReplaceFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "Replacement file is required", nil)
		return
	}

	src, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Could not read uploaded file", nil)
		return
	}
	defer src.Close()

	results := fc.fileService.Replace(c.Request.Context(), userID, []services.ReplaceOp{{
		FileID: fileID,
		Upload: services.FileUpload{
			Reader:   src,
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
		},
	}})

	if len(results) == 1 && !results[0].Success {
		utils.BadRequestResponse(c, results[0].Status, nil)
		return
	}
	utils.SuccessResponse(c, "File content replaced", results[0])
}

// CopyFile duplicates a file into a target folder. POST /files/:id/copy.
func (fc *FileController) CopyFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	var req struct {
		TargetFolderID string `json:"target_folder_id" binding:"required"`
		NewName        string `json:"new_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Target folder ID is required", nil)
		return
	}

	targetID, err := utils.ParseObjectID(req.TargetFolderID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	file, err := fc.fileService.Copy(c.Request.Context(), userID, fileID, targetID, req.NewName)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "File copied", file)
}

// MoveFile reparents a file. PATCH /files/:id/move. An empty or "root"
// target moves the file to the top level.
func (fc *FileController) MoveFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileID, err := utils.ParseObjectID(c.Param("id"))
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

	file, err := fc.fileService.Move(c.Request.Context(), userID, fileID, targetID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File moved", file)
}

// DeleteFiles soft-deletes a batch of files into the trash. DELETE /files.
func (fc *FileController) DeleteFiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "File IDs are required", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := fc.fileService.SoftDelete(c.Request.Context(), userID, ids)
	utils.SuccessResponse(c, "Files moved to trash", results)
}
