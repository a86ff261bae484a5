package routes

import (
	"time"

	"vaultdrive/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds every wired service so main and the background jobs can
// share the same instances the routes use.
type Container struct {
	DB            *mongo.Database
	JWTSecret     string
	FileService   *services.FileService
	FolderService *services.FolderService
	TrashService  *services.TrashService
	LockerService *services.LockerService
	QuotaService  *services.QuotaService
}

// ContainerConfig is the slice of app configuration the service graph
// needs.
type ContainerConfig struct {
	JWTSecret        string
	JWTIssuer        string
	LockerSessionTTL time.Duration
	MaxFileSize      int64
	MaxUserStorage   int64
	TrashRetention   int
}

// NewContainer builds the full service graph on top of the given blob
// store.
func NewContainer(db *mongo.Database, blobs services.BlobStore, cfg ContainerConfig) *Container {
	fileStore := services.NewFileStore(db)
	folderStore := services.NewFolderStore(db)
	trashStore := services.NewTrashStore(db, cfg.TrashRetention)
	stats := services.NewFolderStatsService(db)
	quota := services.NewQuotaService(db, cfg.MaxUserStorage)

	fileService := services.NewFileService(fileStore, folderStore, trashStore, stats, quota, blobs, cfg.MaxFileSize)
	folderService := services.NewFolderService(folderStore, fileStore, trashStore, stats, quota, blobs)
	trashService := services.NewTrashService(trashStore, fileStore, folderStore, fileService, folderService, stats)
	lockerService := services.NewLockerService(db, fileStore, folderStore, fileService, folderService, stats,
		cfg.JWTSecret, cfg.JWTIssuer, cfg.LockerSessionTTL)

	return &Container{
		DB:            db,
		JWTSecret:     cfg.JWTSecret,
		FileService:   fileService,
		FolderService: folderService,
		TrashService:  trashService,
		LockerService: lockerService,
		QuotaService:  quota,
	}
}

// SetupRoutes registers every route group under the given API group.
func SetupRoutes(api *gin.RouterGroup, container *Container) {
	RegisterFileRoutes(api, container)
	RegisterFolderRoutes(api, container)
	RegisterTrashRoutes(api, container)
	RegisterLockerRoutes(api, container)
}
