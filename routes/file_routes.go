package routes

import (
	"vaultdrive/controllers"
	"vaultdrive/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterFileRoutes(rg *gin.RouterGroup, container *Container) {
	fileController := controllers.NewFileController(container.FileService)

	files := rg.Group("/files")
	files.Use(middleware.AuthMiddleware(container.JWTSecret))
	{
		files.POST("/upload", fileController.UploadFiles)
		files.GET("", fileController.QueryFiles)
		files.DELETE("", fileController.DeleteFiles)

		files.GET("/:id", fileController.GetFile)
		files.GET("/:id/download", fileController.DownloadFile)
		files.PATCH("/:id/rename", fileController.RenameFile)
		files.PATCH("/:id/move", fileController.MoveFile)
		files.POST("/:id/copy", fileController.CopyFile)
		files.PUT("/:id/content", fileController.ReplaceFile)
	}
}
