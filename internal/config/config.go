// Package config loads the application configuration from environment
// variables and holds the bot's user-facing policy values.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the process needs at startup.
type Config struct {
	BotToken string
	// ChannelID is the Telegram channel that receives chat-lifecycle
	// notices and sampled relay summaries.
	ChannelID int64
	AdminIDs  []int64

	DatabaseDSN string
	RedisAddr   string
	RedisDB     int

	Port      string
	JWTSecret string
	// WebAppURL is the public URL of the GUPSHUP web app, shown as a
	// Telegram web-app button.
	WebAppURL string

	// AuditSampleRate samples 1-in-N successful relays to the log channel.
	AuditSampleRate int
	// RoomRetention is how long room messages stay readable before lazy expiry.
	RoomRetention time.Duration
	// HistoryLimit caps the number of messages sent to a fresh room joiner.
	HistoryLimit int
	// Groups are the named rooms offered by the GUPSHUP page.
	Groups []string
}

// Load reads the configuration from the environment. Optional values fall
// back to defaults with a warning; only the values nothing can run without
// are required by the caller.
func Load() *Config {
	cfg := &Config{
		BotToken:    os.Getenv("TG_BOT_TOKEN"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		WebAppURL:   os.Getenv("WEB_URL"),

		AuditSampleRate: getEnvInt("AUDIT_SAMPLE_RATE", 10),
		RoomRetention:   getEnvDuration("ROOM_RETENTION", 48*time.Hour),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 50),
	}

	cfg.ChannelID, _ = strconv.ParseInt(os.Getenv("CHANNEL_ID"), 10, 64)
	if cfg.ChannelID == 0 {
		log.Println("Warning: CHANNEL_ID not set, channel logging disabled")
	}
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	for _, field := range strings.Fields(os.Getenv("ADMINS")) {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			log.Printf("Warning: ignoring invalid admin id %q", field)
			continue
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	groups := getEnv("GROUPS", "ENGINEER CIVIL DOCTOR 12TH 11TH 10TH 9TH 8TH")
	cfg.Groups = strings.Fields(groups)

	return cfg
}

// IsAdmin reports whether the given Telegram user may run admin commands.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
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
		log.Printf("Warning: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
