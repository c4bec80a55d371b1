package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver string
	DBDSN    string
	LogFile  string

	ListingCorpus string
	UserCorpus    string
	ErrorPolicy   string // continue|abort

	APIBase      string
	APIHost      string
	UserAgent    string
	Cookie       string
	Entity       string // listings|users
	FetchDelay   time.Duration
	FetchTimeout time.Duration
	FetchRetries int

	CursorBackend string // file|db
	CursorFile    string
	StartID       int64
	MaxID         int64
	JSONDir       string
	CrawlIngest   bool

	StatusAddr string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file found, using process environment")
	}

	cfg := Config{
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "grailed.db"), // sqlite file in working dir
		LogFile:  getEnv("LOG_FILE", ""),

		ListingCorpus: getEnv("LISTING_CORPUS", "raw_listing_json_dataset"),
		UserCorpus:    getEnv("USER_CORPUS", "raw_user_json_dataset"),
		ErrorPolicy:   getEnv("ERROR_POLICY", "continue"),

		APIBase:      strings.TrimRight(getEnv("API_BASE", "https://www.grailed.com/api"), "/"),
		APIHost:      getEnv("API_HOST", "www.grailed.com"),
		UserAgent:    getEnv("USER_AGENT", ""),
		Cookie:       getEnv("COOKIE", ""),
		Entity:       getEnv("CRAWL_ENTITY", "listings"),
		FetchDelay:   getEnvDuration("FETCH_DELAY", 5*time.Second),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchRetries: getEnvInt("FETCH_RETRIES", 0),

		CursorBackend: getEnv("CURSOR_BACKEND", "file"),
		CursorFile:    getEnv("CURSOR_FILE", "next_index"),
		StartID:       int64(getEnvInt("START_ID", 1)),
		MaxID:         int64(getEnvInt("MAX_ID", 500000)),
		JSONDir:       getEnv("JSON_DIR", "downloaded_listing_json"),
		CrawlIngest:   getEnvBool("CRAWL_INGEST", false),

		StatusAddr: getEnv("STATUS_ADDR", ""),
	}
	log.Printf("[config] DB_DRIVER=%s DB_DSN=%s CRAWL_ENTITY=%s CURSOR_BACKEND=%s MAX_ID=%d FETCH_DELAY=%s",
		cfg.DBDriver, cfg.DBDSN, cfg.Entity, cfg.CursorBackend, cfg.MaxID, cfg.FetchDelay)
	return cfg
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := getEnv(key, ""); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := getEnv(key, ""); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := getEnv(key, ""); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
