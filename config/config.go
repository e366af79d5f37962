package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort       string
	DatabaseURL      string
	LogLevel         string
	ScheduleURL      string
	DetailURL        string
	DartAPIKey       string
	GeminiAPIKey     string
	GeminiModel      string
	CalendarEndpoint string
	CalendarID       string
	CollectRPS       string
}

// SourceTimeouts holds the per-source deadlines for external calls.
type SourceTimeouts struct {
	Schedule   time.Duration `json:"schedule"`
	Detail     time.Duration `json:"detail"`
	Disclosure time.Duration `json:"disclosure"`
	Oracle     time.Duration `json:"oracle"`
}

// DefaultSourceTimeouts returns the production deadlines. The schedule site
// is slow to first byte, the oracle slower still.
func DefaultSourceTimeouts() SourceTimeouts {
	return SourceTimeouts{
		Schedule:   15 * time.Second,
		Detail:     10 * time.Second,
		Disclosure: 10 * time.Second,
		Oracle:     60 * time.Second,
	}
}

// CollectRateLimit returns the pipeline's requests-per-second budget for
// upstream calls. Defaults to one call per second, matching the politeness
// delay the sources tolerate.
func (c *Config) CollectRateLimit() float64 {
	if c.CollectRPS == "" {
		return 1.0
	}
	rps, err := strconv.ParseFloat(c.CollectRPS, 64)
	if err != nil || rps <= 0 {
		logrus.Warnf("Invalid COLLECT_RPS value: %s, using default 1.0", c.CollectRPS)
		return 1.0
	}
	return rps
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ScheduleURL:      getEnv("SCHEDULE_URL", "https://www.38.co.kr/html/fund/index.htm?o=k"),
		DetailURL:        getEnv("DETAIL_URL", "https://www.38.co.kr/html/fund/index.htm?o=k&name="),
		DartAPIKey:       getEnv("DART_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		CalendarEndpoint: getEnv("CALENDAR_ENDPOINT", ""),
		CalendarID:       getEnv("CALENDAR_ID", ""),
		CollectRPS:       getEnv("COLLECT_RPS", "1.0"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
