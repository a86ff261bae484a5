package routes

import (
	"vaultdrive/controllers"
	"vaultdrive/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterTrashRoutes(rg *gin.RouterGroup, container *Container) {
	trashController := controllers.NewTrashController(container.TrashService)

	trash := rg.Group("/trash")
	trash.Use(middleware.AuthMiddleware(container.JWTSecret))
	{
		trash.GET("", trashController.ListTrash)
		trash.POST("/restore", trashController.RestoreItems)
		trash.DELETE("", trashController.PurgeItems)
		trash.DELETE("/all", trashController.EmptyTrash)
	}
}
