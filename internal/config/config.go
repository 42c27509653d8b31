package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Messenger selects the outbound transport implementation.
const (
	MessengerWhatsApp = "whatsapp"
	MessengerTelegram = "telegram"
)

// Config keeps runtime settings for taskping.
type Config struct {
	DatabaseURL string
	Timezone    string
	HTTPAddr    string
	LogLevel    string

	Messenger     string
	APIBase       string // WhatsApp HTTP API base URL
	APISendPath   string
	APISession    string
	TelegramToken string

	PollInterval time.Duration // engine tick cadence
	MisfireGrace time.Duration // fire-on-recovery window after downtime
	SendRate     float64       // outbound messages per second
	SendNowGuard bool          // manual sends take the per-job lock
	PhoneRegion  string        // default region for phone parsing
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL: getEnv("TASKPING_DB", "taskping.db"),
		Timezone:    getEnv("TASKPING_TZ", "Asia/Kolkata"),
		HTTPAddr:    getEnv("TASKPING_HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("TASKPING_LOG_LEVEL", "info"),

		Messenger:     strings.ToLower(getEnv("TASKPING_MESSENGER", MessengerWhatsApp)),
		APIBase:       strings.TrimRight(getEnv("WA_API_BASE", "http://localhost:3000"), "/"),
		APISendPath:   getEnv("WA_API_SEND", "/api/sendText"),
		APISession:    getEnv("WA_API_SESSION", "default"),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),

		PollInterval: getDuration("TASKPING_POLL_INTERVAL", 5*time.Second),
		MisfireGrace: getDuration("TASKPING_MISFIRE_GRACE", 15*time.Minute),
		SendRate:     getFloat("TASKPING_SEND_RATE", 1),
		SendNowGuard: getBool("TASKPING_SEND_NOW_GUARD", false),
		PhoneRegion:  getEnv("TASKPING_PHONE_REGION", "IN"),
	}

	switch cfg.Messenger {
	case MessengerWhatsApp:
		// APIBase always has a default; nothing more to require.
	case MessengerTelegram:
		if cfg.TelegramToken == "" {
			return cfg, fmt.Errorf("TELEGRAM_TOKEN is required when TASKPING_MESSENGER=telegram")
		}
	default:
		return cfg, fmt.Errorf("unknown messenger %q", cfg.Messenger)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid TASKPING_TZ %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated
// it, so failures here fall back to time.Local.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
