package config

import (
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64

	// StatementAPIToken protects the generation/ingest endpoints. The
	// operator scripts pass it as a bearer token.
	StatementAPIToken string

	// EncryptionKey is the 32-byte AES key used for at-rest field
	// encryption. Nil when ENCRYPTION_KEY is unset, which disables
	// encryption entirely.
	EncryptionKey []byte

	MetadataCacheTTL   time.Duration
	MetadataCacheSweep time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "26214400")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 25MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 25 * 1024 * 1024
	}

	apiToken := getEnv("STATEMENT_API_TOKEN", "")
	if apiToken == "" {
		log.Println("WARNING: STATEMENT_API_TOKEN not set. Statement generation endpoints will reject all callers.")
	}

	var encryptionKey []byte
	encryptionKeyHex := getEnv("ENCRYPTION_KEY", "")
	if encryptionKeyHex != "" {
		if len(encryptionKeyHex) != 64 {
			log.Fatalf("FATAL: ENCRYPTION_KEY must be 64 hex characters (32 bytes). Current length: %d", len(encryptionKeyHex))
		}
		encryptionKey, err = hex.DecodeString(encryptionKeyHex)
		if err != nil {
			log.Fatalf("FATAL: ENCRYPTION_KEY is not valid hex: %v", err)
		}
	} else {
		log.Println("WARNING: ENCRYPTION_KEY not set. Account numbers and player payloads will be stored in plaintext.")
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./playerstatements.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		StatementAPIToken:  apiToken,
		EncryptionKey:      encryptionKey,
		MetadataCacheTTL:   getEnvAsDuration("METADATA_CACHE_TTL", time.Hour),
		MetadataCacheSweep: getEnvAsDuration("METADATA_CACHE_SWEEP", 5*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Encryption=%t",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.EncryptionKey != nil)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
