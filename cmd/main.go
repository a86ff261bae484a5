package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"vaultdrive/config"
	"vaultdrive/jobs"
	"vaultdrive/routes"
	"vaultdrive/services"
	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	utils.InitLogger()
	config.LoadConfig()
	cfg := config.AppConfig

	mongoClient, err := config.ConnectDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := config.CreateContext(5 * time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	db := mongoClient.Database(cfg.DatabaseName)

	indexCtx, cancelIndex := config.CreateContext(30 * time.Second)
	defer cancelIndex()
	if err := config.EnsureIndexes(indexCtx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	container := routes.NewContainer(db, blobs, routes.ContainerConfig{
		JWTSecret:        cfg.JWTSecret,
		JWTIssuer:        cfg.JWTIssuer,
		LockerSessionTTL: cfg.LockerSessionTTL,
		MaxFileSize:      cfg.MaxFileSize,
		MaxUserStorage:   cfg.MaxUserStorage,
		TrashRetention:   cfg.TrashRetentionDays,
	})

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	api := router.Group("/api")
	routes.SetupRoutes(api, container)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	jobs.StartTrashCleanup(jobCtx, container.TrashService, cfg.TrashCleanupInterval)
	jobs.StartQuotaReconciler(jobCtx, container.QuotaService, cfg.QuotaReconcileInterval)

	log.Printf("Starting VaultDrive server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildBlobStore picks the storage backend from configuration: local disk
// by default, Backblaze B2 when configured.
func buildBlobStore(cfg *config.Config) (services.BlobStore, error) {
	if cfg.StorageBackend == "b2" {
		ctx, cancel := config.CreateContext(30 * time.Second)
		defer cancel()
		return services.NewB2BlobStore(ctx, cfg.B2ApplicationKeyID, cfg.B2ApplicationKey, cfg.B2BucketName)
	}
	return services.NewDiskBlobStore(cfg.StorageRoot)
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.Request.Header.Get("Origin")

		allowOrigin := "*"
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == requestOrigin {
				allowOrigin = requestOrigin
				break
			}
		}
		if requestOrigin == "" {
			allowOrigin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Locker-Token, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
