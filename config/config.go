package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type Config struct {
	Port string
	Env  string

	MongoURI     string
	DatabaseName string

	// Blob store backend: "disk" (default) or "b2".
	StorageBackend string
	StorageRoot    string

	B2ApplicationKeyID string
	B2ApplicationKey   string
	B2BucketName       string

	JWTSecret        string
	JWTExpiration    time.Duration
	JWTIssuer        string
	LockerSessionTTL time.Duration

	MaxFileSize    int64
	MaxUserStorage int64

	TrashRetentionDays     int
	TrashCleanupInterval   time.Duration
	QuotaReconcileInterval time.Duration

	AllowedOrigins []string
}

var AppConfig *Config
var DB *mongo.Database

func LoadConfig() {
	AppConfig = &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "vaultdrive"),

		StorageBackend: getEnv("STORAGE_BACKEND", "disk"),
		StorageRoot:    getEnv("STORAGE_ROOT", "./data/blobs"),

		B2ApplicationKeyID: getEnv("B2_APPLICATION_KEY_ID", ""),
		B2ApplicationKey:   getEnv("B2_APPLICATION_KEY", ""),
		B2BucketName:       getEnv("B2_BUCKET_NAME", ""),

		JWTSecret:        getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		JWTExpiration:    parseDuration(getEnv("JWT_EXPIRATION", "24h")),
		JWTIssuer:        getEnv("JWT_ISSUER", "vaultdrive"),
		LockerSessionTTL: parseDuration(getEnv("LOCKER_SESSION_TTL", "15m")),

		MaxFileSize:    parseInt64(getEnv("MAX_FILE_SIZE", "104857600")),
		MaxUserStorage: parseInt64(getEnv("MAX_USER_STORAGE", "2147483648")),

		TrashRetentionDays:     int(parseInt64(getEnv("TRASH_RETENTION_DAYS", "30"))),
		TrashCleanupInterval:   parseDuration(getEnv("TRASH_CLEANUP_INTERVAL", "1h")),
		QuotaReconcileInterval: parseDuration(getEnv("QUOTA_RECONCILE_INTERVAL", "24h")),

		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	logConfig()
	validateConfig()
}

func logConfig() {
	log.Println("Configuration loaded:")
	log.Printf("  Port: %s", AppConfig.Port)
	log.Printf("  Environment: %s", AppConfig.Env)
	log.Printf("  Database: %s", AppConfig.DatabaseName)
	log.Printf("  MongoDB URI: %s", maskConnectionString(AppConfig.MongoURI))
	log.Printf("  Storage Backend: %s", AppConfig.StorageBackend)
	log.Printf("  Storage Root: %s", AppConfig.StorageRoot)
	log.Printf("  JWT Secret: %s", maskSecret(AppConfig.JWTSecret))
	log.Printf("  JWT Expiration: %v", AppConfig.JWTExpiration)
	log.Printf("  Locker Session TTL: %v", AppConfig.LockerSessionTTL)
	log.Printf("  Max File Size: %d bytes", AppConfig.MaxFileSize)
	log.Printf("  Max User Storage: %d bytes", AppConfig.MaxUserStorage)
	log.Printf("  Trash Retention: %d days", AppConfig.TrashRetentionDays)
	log.Printf("  Trash Cleanup Interval: %v", AppConfig.TrashCleanupInterval)
	log.Printf("  Quota Reconcile Interval: %v", AppConfig.QuotaReconcileInterval)
	log.Printf("  Allowed Origins: %v", AppConfig.AllowedOrigins)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if uri == "" {
		return "[NOT SET]"
	}
	if strings.Contains(uri, "@") {
		parts := strings.Split(uri, "@")
		if len(parts) >= 2 {
			return "[CREDENTIALS_HIDDEN]@" + parts[len(parts)-1]
		}
	}
	return uri
}

func validateConfig() {
	var missingVars []string

	required := map[string]string{
		"MONGO_URI":  AppConfig.MongoURI,
		"JWT_SECRET": AppConfig.JWTSecret,
	}

	if AppConfig.StorageBackend == "b2" {
		required["B2_APPLICATION_KEY_ID"] = AppConfig.B2ApplicationKeyID
		required["B2_APPLICATION_KEY"] = AppConfig.B2ApplicationKey
		required["B2_BUCKET_NAME"] = AppConfig.B2BucketName
	} else {
		required["STORAGE_ROOT"] = AppConfig.StorageRoot
	}

	for key, value := range required {
		if value == "" {
			missingVars = append(missingVars, key)
		}
	}

	if len(missingVars) > 0 {
		log.Printf("Missing required environment variables: %v", missingVars)
		log.Fatal("Please set all required environment variables")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt64(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("Failed to parse int64: %s", s)
	}
	return i
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("Failed to parse duration: %s", s)
	}
	return d
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	var result []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func CreateContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
