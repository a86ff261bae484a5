package routes

import (
	"vaultdrive/controllers"
	"vaultdrive/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterLockerRoutes(rg *gin.RouterGroup, container *Container) {
	lockerController := controllers.NewLockerController(container.LockerService)

	locker := rg.Group("/locker")
	locker.Use(middleware.AuthMiddleware(container.JWTSecret))
	{
		locker.POST("/setup", lockerController.SetupLocker)
		locker.GET("/status", lockerController.GetStatus)
		locker.POST("/unlock", lockerController.Unlock)
		locker.PATCH("/pin", lockerController.ChangePIN)
		locker.POST("/pin/reset", lockerController.ResetPIN)
	}

	// Content routes additionally require an unlocked session token.
	items := rg.Group("/locker/items")
	items.Use(middleware.AuthMiddleware(container.JWTSecret))
	items.Use(middleware.LockerMiddleware(container.JWTSecret))
	{
		items.GET("", lockerController.GetContents)
		items.POST("", lockerController.AddItems)
		items.POST("/release", lockerController.RemoveItems)
		items.DELETE("", lockerController.PurgeItems)
	}
}
