package routes

import (
	"vaultdrive/controllers"
	"vaultdrive/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterFolderRoutes(rg *gin.RouterGroup, container *Container) {
	folderController := controllers.NewFolderController(container.FolderService)

	folders := rg.Group("/folders")
	folders.Use(middleware.AuthMiddleware(container.JWTSecret))
	{
		folders.POST("", folderController.CreateFolder)
		folders.GET("/:id", folderController.GetFolder)
		folders.GET("/:id/contents", folderController.GetContents)
		folders.PATCH("/:id/rename", folderController.RenameFolder)
		folders.PATCH("/:id/move", folderController.MoveFolder)
		folders.DELETE("/:id", folderController.DeleteFolder)
	}
}
