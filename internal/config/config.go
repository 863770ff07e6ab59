package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port         string
	DBDriver     string // postgres or sqlite
	DatabaseURL  string
	SQLitePath   string
	CORSOrigins  []string
	StaticDir    string
	Location     *time.Location
	ScanDebounce time.Duration
	ReleaseMode  bool
}

// Load reads configs/.env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		SQLitePath:  getEnv("SQLITE_PATH", "storefront.db"),
		StaticDir:   getEnv("STATIC_DIR", "static"),
		ReleaseMode: os.Getenv("GIN_MODE") == "release",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = "postgres://" + getEnv("DB_USER", "postgres") + ":" + getEnv("DB_PASSWORD", "postgres") +
			"@" + getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") +
			"/" + getEnv("DB_NAME", "postgres") + "?sslmode=" + getEnv("DB_SSLMODE", "disable")
	}

	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173"))
	cfg.Location = loadLocation(getEnv("APP_TIMEZONE", "Asia/Kolkata"))

	cfg.ScanDebounce = 1500 * time.Millisecond
	if raw := os.Getenv("SCAN_DEBOUNCE_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			cfg.ScanDebounce = time.Duration(ms) * time.Millisecond
		} else {
			log.Printf("Ignoring invalid SCAN_DEBOUNCE_MS=%q", raw)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadLocation falls back to a fixed IST offset when tzdata is unavailable.
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Timezone %q unavailable (%v), using UTC+05:30", name, err)
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}
