package config

import (
	"fmt"
	"os"
	"time"
)

// Tunables. Values mirror what the deployment has run with; rate-limit and
// password policy tuning is deliberately not a concern of the core.
const (
	// Rooms hold exactly two participants. This is a hard ceiling, not a default.
	MaxParticipants = 2

	// Chat rate limiting (per user, sliding window held in Redis).
	ChatTurnsPerWindow = 20
	ChatRateWindow     = 1 * time.Minute

	// Gateway calls are bounded; a timeout surfaces as an upstream failure.
	GenerateTimeout = 60 * time.Second
	CompareTimeout  = 90 * time.Second

	// In-flight comparison lock TTL. Longer than CompareTimeout so the lock
	// cannot expire under a live gateway call.
	ComparisonLockTTL = 2 * time.Minute

	BcryptCost = 10
	JWTTTL     = 72 * time.Hour

	// RoomExpiry is carried for operators; no cleanup job acts on it yet.
	RoomExpiry = 72 * time.Hour
)

// Config holds everything read from the environment. Load it once in cmd and
// pass it down; nothing else touches os.Getenv.
type Config struct {
	Port            string
	DatabaseDSN     string
	RedisAddr       string
	RedisPassword   string
	JWTSecret       string
	GeminiAPIKey    string
	GeminiModel     string
	TelegramToken   string
	TelegramAdminID int64
}

// Load reads the environment. DSN, redis address and JWT secret are required;
// the Gemini key is required for the server but not for the admin CLI, so it
// is validated by the caller that needs it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if id := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); id != "" {
		if _, err := fmt.Sscan(id, &cfg.TelegramAdminID); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
