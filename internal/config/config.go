package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Store
	MongoURL        string
	MongoDB         string
	MongoCollection string

	// API
	APIPort         int
	CORSAllowOrigin string

	// Day boundary for "today" queries. IANA name or "Local".
	StatsTimezone string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURL:        envStr("MONGO_URL", ""),
		MongoDB:         envStr("MONGO_DB", "twitch_hype_bot"),
		MongoCollection: envStr("MONGO_COLLECTION", "hype_stats"),

		APIPort:         envInt("API_PORT", 3001),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		StatsTimezone: envStr("STATS_TIMEZONE", "Local"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

// Validate reports every problem that must stop the process from serving.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.MongoURL) == "" {
		errs = append(errs, "Missing required MONGO_URL environment variable.")
	}
	if c.MongoCollection == "" {
		errs = append(errs, "MONGO_COLLECTION must not be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d out of range", c.APIPort))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("STATS_TIMEZONE: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Location resolves StatsTimezone. An empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" || c.StatsTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.StatsTimezone)
}

func (c *Config) Print() {
	fmt.Println("=== Hype Stats API Configuration ===")
	fmt.Printf("Store: %s\n", redactURL(c.MongoURL))
	fmt.Printf("Database: %s\n", c.MongoDB)
	fmt.Printf("Collection: %s\n", c.MongoCollection)
	fmt.Println("--------------------------------------")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("CORS Origin: %s\n", c.CORSAllowOrigin)
	fmt.Printf("Day Boundary: midnight %s\n", c.zoneLabel())
	fmt.Printf("Logging: %s (%s)\n", c.LogLevel, c.LogFormat)
	fmt.Println("======================================")
}

func (c *Config) zoneLabel() string {
	loc, err := c.Location()
	if err != nil {
		return c.StatsTimezone
	}
	if loc == time.Local {
		name, _ := time.Now().Zone()
		return "Local (" + name + ")"
	}
	return loc.String()
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// redactURL hides the password so the connection string can be printed.
// Parsed by hand because net/url rejects multi-host authorities.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" || rest == "" {
		return "(unparseable)"
	}

	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}

	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return raw
	}
	user, _, hasPass := strings.Cut(authority[:at], ":")
	if hasPass {
		user += ":xxxxx"
	}
	return scheme + "://" + user + authority[at:] + tail
}
