// Package config loads deployment settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every setting the binaries need. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	ProjectID string
	DatasetID string
	TableID   string
	Bucket    string

	GeminiAPIKey string
	GeminiModel  string

	// MerchantDateLookup declares that the transactions table is clustered
	// by (merchant, transaction_date). See the store's Config.
	MerchantDateLookup bool

	NotionToken      string
	NotionDatabaseID string

	Port string
}

// Load reads the environment. A missing .env file is not an error; explicit
// environment variables always win because godotenv does not overwrite.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:          os.Getenv("GCP_PROJECT"),
		DatasetID:          envOr("BQ_DATASET", "ledger"),
		TableID:            envOr("BQ_TABLE", "transactions"),
		Bucket:             os.Getenv("GCS_BUCKET"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		MerchantDateLookup: envBool("MERCHANT_DATE_LOOKUP", true),
		NotionToken:        os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID:   os.Getenv("NOTION_DATABASE_ID"),
		Port:               envOr("PORT", "8080"),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
