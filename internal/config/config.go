// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries everything the import service needs at startup.
type AppConfig struct {
	Port     string
	LogLevel string

	// Notion is the system of record for entities and written transactions.
	NotionToken            string
	NotionTransactionsDBID string
	NotionEntitiesDBID     string

	// Optional raw-statement archive bucket. Empty disables archiving.
	ArchiveBucket string

	// Gemini model for entity/tag suggestions. Empty disables AI suggestions;
	// the processing job then reports AI_CATEGORIZATION_UNAVAILABLE.
	GeminiModel string

	// DeduplicationEnabled controls the dedupe pass against already-imported
	// checksums. Disabling it surfaces DEDUPLICATION_DISABLED to the client.
	DeduplicationEnabled bool

	// PollInterval is the client-side progress polling cadence.
	PollInterval time.Duration

	// WriteBatchSize bounds how many transactions one write batch carries.
	WriteBatchSize int
}

// Load reads the configuration. A missing .env file is fine; OS environment
// variables and defaults apply either way.
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, relying on environment:", err)
	}

	cfg := &AppConfig{
		Port:                   getEnv("PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		NotionToken:            getEnv("NOTION_TOKEN", ""),
		NotionTransactionsDBID: getEnv("NOTION_TRANSACTIONS_DB_ID", ""),
		NotionEntitiesDBID:     getEnv("NOTION_ENTITIES_DB_ID", ""),
		ArchiveBucket:          getEnv("ARCHIVE_BUCKET", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", ""),
		DeduplicationEnabled:   getEnvBool("DEDUPLICATION_ENABLED", true),
		PollInterval:           getEnvDuration("POLL_INTERVAL", 1200*time.Millisecond),
		WriteBatchSize:         getEnvInt("WRITE_BATCH_SIZE", 10),
	}

	if cfg.NotionToken == "" {
		log.Println("WARNING: NOTION_TOKEN is not set; ledger writes and entity lookups will fail")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
