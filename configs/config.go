// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	// Server
	PORT            string
	ALLOWED_ORIGINS string
	GIN_MODE        string

	// Filesystem layout
	SHARED_ROOT         string // {shared_root}/sessions/{id}/{input,output}
	CONFIG_ROOT         string // products/{name}/rois_config_{name}.json, colors_config_{name}.json, golden_rois/
	CLIENT_MOUNT_PREFIX string // rewrite prefix applied to roi_image_path/golden_image_path in responses

	// Session lifecycle
	SESSION_IDLE_TIMEOUT_MINUTES   int
	SESSION_SWEEP_INTERVAL_SECONDS int

	// Dispatcher
	DISPATCHER_MAX_WORKERS int // 0 => runtime.NumCPU()

	// Barcode linking service
	LINKING_SERVICE_URL     string
	LINKING_TIMEOUT_SECONDS int

	// Capability timeouts
	BARCODE_DECODE_TIMEOUT_SECONDS    int
	OCR_TIMEOUT_SECONDS               int
	COMPARE_FEATURE_CACHE_TTL_SECONDS int

	// Product config cache
	PRODUCT_CACHE_TTL_SECONDS int

	// OCR provider selection
	OCR_PROVIDER       string // "gemini" | "mistral" | "noop"
	GEMINI_API_KEY     string
	OCR_MODEL_NAME     string
	MISTRAL_API_KEY    string
	MISTRAL_MODEL_NAME string

	// Gemini pricing (USD per 1M tokens). Loaded from the environment; no
	// component reads these values.
	GEMINI_INPUT_PRICE_PER_MILLION  float64
	GEMINI_OUTPUT_PRICE_PER_MILLION float64
)

// LoadConfig loads configuration from environment variables, falling back to
// a local .env file in development.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	PORT = getEnv("PORT", "8080")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	GIN_MODE = getEnv("GIN_MODE", "release")

	SHARED_ROOT = getEnv("SHARED_ROOT", "./data/shared")
	CONFIG_ROOT = getEnv("CONFIG_ROOT", "./data/config")
	CLIENT_MOUNT_PREFIX = getEnv("CLIENT_MOUNT_PREFIX", "/mnt/inspection")

	SESSION_IDLE_TIMEOUT_MINUTES = getEnvInt("SESSION_IDLE_TIMEOUT_MINUTES", 60)
	SESSION_SWEEP_INTERVAL_SECONDS = getEnvInt("SESSION_SWEEP_INTERVAL_SECONDS", 120)

	DISPATCHER_MAX_WORKERS = getEnvInt("DISPATCHER_MAX_WORKERS", 0)

	LINKING_SERVICE_URL = getEnv("LINKING_SERVICE_URL", "")
	LINKING_TIMEOUT_SECONDS = getEnvInt("LINKING_TIMEOUT_SECONDS", 3)

	BARCODE_DECODE_TIMEOUT_SECONDS = getEnvInt("BARCODE_DECODE_TIMEOUT_SECONDS", 2)
	OCR_TIMEOUT_SECONDS = getEnvInt("OCR_TIMEOUT_SECONDS", 45)
	COMPARE_FEATURE_CACHE_TTL_SECONDS = getEnvInt("COMPARE_FEATURE_CACHE_TTL_SECONDS", 300)

	PRODUCT_CACHE_TTL_SECONDS = getEnvInt("PRODUCT_CACHE_TTL_SECONDS", 300)

	OCR_PROVIDER = getEnv("OCR_PROVIDER", "noop")
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	OCR_MODEL_NAME = getEnv("OCR_MODEL_NAME", "gemini-2.5-flash")
	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL_NAME = getEnv("MISTRAL_MODEL_NAME", "mistral-ocr-latest")

	GEMINI_INPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_INPUT_PRICE_PER_MILLION", 0.10)
	GEMINI_OUTPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_OUTPUT_PRICE_PER_MILLION", 0.40)

	log.Println("configuration loaded")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
