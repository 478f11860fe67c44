package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const (
	StartPolicyFirst    = "first"
	StartPolicyAllReady = "all_ready"
)

type Config struct {
	MaxPlayers               int
	MaxTurns                 int
	TurnTimeLimitSeconds     int
	DefaultDifficulty        string
	StartPolicy              string
	RejoinResetsJoinedAt     bool
	Timezone                 string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	RedisURL                 string
	OpenAIAPIKey             string
	OpenAIModel              string
	OpenAIBaseURL            string
	JudgeTimeoutSeconds      int
	JudgeRatePerMinute       int
	JWTSecret                string
	AllowedEmailDomain       string
	AdminUIDs                []string
	AllowedOrigins           []string
	LogLevel                 string
	LogFormat                string
}

func Default() Config {
	return Config{
		MaxPlayers:               5,
		MaxTurns:                 10,
		TurnTimeLimitSeconds:     60,
		DefaultDifficulty:        "normal",
		StartPolicy:              StartPolicyFirst,
		RejoinResetsJoinedAt:     true,
		Timezone:                 "Asia/Seoul",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		OpenAIModel:              "gpt-4o-mini",
		OpenAIBaseURL:            "https://api.openai.com/v1",
		JudgeTimeoutSeconds:      30,
		JudgeRatePerMinute:       10,
		LogLevel:                 "info",
		LogFormat:                "console",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxPlayers = value
		}
	}
	if raw := os.Getenv("MAX_TURNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxTurns = value
		}
	}
	if raw := os.Getenv("TURN_TIME_LIMIT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TurnTimeLimitSeconds = value
		}
	}
	if raw := os.Getenv("DEFAULT_DIFFICULTY"); raw != "" {
		cfg.DefaultDifficulty = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw := os.Getenv("START_POLICY"); raw != "" {
		switch raw {
		case StartPolicyFirst, StartPolicyAllReady:
			cfg.StartPolicy = raw
		}
	}
	if raw := os.Getenv("REJOIN_RESETS_JOINED_AT"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.RejoinResetsJoinedAt = value
		}
	}
	if raw := os.Getenv("TIMEZONE"); raw != "" {
		cfg.Timezone = raw
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		cfg.RedisURL = raw
	}
	if raw := os.Getenv("OPENAI_API_KEY"); raw != "" {
		cfg.OpenAIAPIKey = raw
	}
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	if raw := os.Getenv("OPENAI_BASE_URL"); raw != "" {
		cfg.OpenAIBaseURL = strings.TrimRight(raw, "/")
	}
	if raw := os.Getenv("JUDGE_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.JudgeTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("JUDGE_RATE_PER_MINUTE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.JudgeRatePerMinute = value
		}
	}
	if raw := os.Getenv("JWT_SECRET"); raw != "" {
		cfg.JWTSecret = raw
	}
	if raw := os.Getenv("ALLOWED_EMAIL_DOMAIN"); raw != "" {
		cfg.AllowedEmailDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "@")
	}
	if raw := os.Getenv("ADMIN_UIDS"); raw != "" {
		for _, uid := range strings.Split(raw, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				cfg.AdminUIDs = append(cfg.AdminUIDs, uid)
			}
		}
	}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	return cfg
}

// IsAdmin reports whether uid may edit the play schedule.
func (c Config) IsAdmin(uid string) bool {
	for _, admin := range c.AdminUIDs {
		if admin == uid {
			return true
		}
	}
	return false
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
