package controllers

import (
	"vaultdrive/models"
	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
)

type LockerController struct {
	lockerService *services.LockerService
}

func NewLockerController(lockerService *services.LockerService) *LockerController {
	return &LockerController{lockerService: lockerService}
}

// SetupLocker creates the vault credentials. POST /locker/setup.
func (lc *LockerController) SetupLocker(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		PIN              string `json:"pin" binding:"required"`
		SecurityQuestion string `json:"security_question" binding:"required"`
		SecurityAnswer   string `json:"security_answer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "PIN, security question and answer are required", nil)
		return
	}

	locker, err := lc.lockerService.Setup(c.Request.Context(), userID, req.PIN, req.SecurityQuestion, req.SecurityAnswer)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Locker created", locker)
}

// GetStatus reports whether the locker is set up and in cooldown.
// GET /locker/status.
func (lc *LockerController) GetStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	locker, err := lc.lockerService.Status(c.Request.Context(), userID)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Locker status", locker)
}

// Unlock verifies the PIN and returns a locker session token.
// POST /locker/unlock.
func (lc *LockerController) Unlock(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "PIN is required", nil)
		return
	}

	token, err := lc.lockerService.Unlock(c.Request.Context(), userID, req.PIN)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Locker unlocked", gin.H{"locker_token": token})
}

// ChangePIN rotates the PIN given the current one. PATCH /locker/pin.
func (lc *LockerController) ChangePIN(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPIN string `json:"current_pin" binding:"required"`
		NewPIN     string `json:"new_pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Current and new PIN are required", nil)
		return
	}

	if err := lc.lockerService.ChangePIN(c.Request.Context(), userID, req.CurrentPIN, req.NewPIN); err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "PIN changed", nil)
}

// ResetPIN recovers a forgotten PIN with the security answer.
// POST /locker/pin/reset.
func (lc *LockerController) ResetPIN(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		SecurityAnswer string `json:"security_answer" binding:"required"`
		NewPIN         string `json:"new_pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Security answer and new PIN are required", nil)
		return
	}

	if err := lc.lockerService.ResetPIN(c.Request.Context(), userID, req.SecurityAnswer, req.NewPIN); err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "PIN reset", nil)
}

// AddItems locks files or folders into the vault. POST /locker/items.
func (lc *LockerController) AddItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs  []string `json:"ids" binding:"required"`
		Type string   `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Item IDs and type are required", nil)
		return
	}

	itemType := models.ItemType(req.Type)
	if !itemType.Valid() {
		utils.BadRequestResponse(c, "Invalid item type", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := lc.lockerService.AddItems(c.Request.Context(), userID, ids, itemType)
	utils.SuccessResponse(c, "Items locked", results)
}

// RemoveItems releases items back into the normal tree.
// POST /locker/items/release.
func (lc *LockerController) RemoveItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Item IDs are required", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := lc.lockerService.RemoveItems(c.Request.Context(), userID, ids)
	utils.SuccessResponse(c, "Items released", results)
}

// PurgeItems permanently deletes locked items. DELETE /locker/items.
func (lc *LockerController) PurgeItems(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Item IDs are required", nil)
		return
	}

	ids, ok := parseIDList(c, req.IDs)
	if !ok {
		return
	}

	results := lc.lockerService.PurgeItems(c.Request.Context(), userID, ids)
	utils.SuccessResponse(c, "Items purged", results)
}

// GetContents lists locker members. GET /locker/items, locker session
// required.
func (lc *LockerController) GetContents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	opts := parseQueryOptions(c)
	items, total, err := lc.lockerService.GetContents(c.Request.Context(), userID, opts)
	if err != nil {
		utils.ApiErrorResponse(c, err)
		return
	}

	utils.PaginatedSuccessResponse(c, "Locker contents retrieved", items, paginationMeta(opts, total))
}
