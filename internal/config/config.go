package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	// Primary store
	MongoURI          string
	MongoDatabase     string
	DocumentTable     string
	ResourceTable     string
	ResourceMetaTable string

	// Secondary mirror
	EnableMirror bool
	MirrorDBURL  string

	// Blob storage
	EnableBlobStorage bool
	GCSBucket         string
	GoogleCredentials string // service-account JSON, as in the original deployment
	DriveFolderID     string

	// Text extraction
	EnableExtraction bool
	MaxMarkdownBytes int

	// Analytics
	EnableAnalytics bool
	RedisURL        string

	// Auth
	JWKSURL      string
	AuthDisabled bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	prefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: prefix,

		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "curiocity"),
		DocumentTable:     getEnv("DOCUMENT_TABLE", prefix+"documents"),
		ResourceTable:     getEnv("RESOURCE_TABLE", prefix+"resources"),
		ResourceMetaTable: getEnv("RESOURCEMETA_TABLE", prefix+"resourcemeta"),

		EnableMirror: getEnv("ENABLE_SQL_MIRROR", "false") == "true",
		MirrorDBURL:  getEnv("MIRROR_DB_URL", ""),

		EnableBlobStorage: getEnv("ENABLE_BLOB_STORAGE", "false") == "true",
		GCSBucket:         getEnv("GCS_BUCKET", ""),
		GoogleCredentials: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		DriveFolderID:     getEnv("DRIVE_FOLDER_ID", ""),

		EnableExtraction: getEnv("ENABLE_TEXT_EXTRACTION", "true") == "true",
		MaxMarkdownBytes: getEnvInt("MAX_MARKDOWN_BYTES", 350*1024),

		EnableAnalytics: getEnv("ENABLE_ANALYTICS", "false") == "true",
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),

		JWKSURL:      getEnv("JWKS_URL", ""),
		AuthDisabled: getEnv("AUTH_DISABLED", getDefaultAuthDisabled(env)) == "true",
	}
}

// getDefaultAuthDisabled keeps dev/test usable without a JWKS endpoint.
func getDefaultAuthDisabled(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
