package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiAPIVersion  string
	GeminiImageModel  string
	GeminiTextModel   string
	VideoPreviewModel string
	VideoFinalModel   string

	TelegramToken string

	LogLevel  string
	LogFormat string
	Debug     bool

	PreferIPv4         bool
	HTTPTimeout        time.Duration
	RequestTimeout     time.Duration
	MediaGroupDebounce time.Duration

	MaxConcurrent   int
	Angles          []string
	AngleRetries    int
	AutoVideo       bool
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollDuration time.Duration
	LookbookMax     int

	WebAddr     string
	CatalogFile string
}

var defaultAngles = []string{"front", "side", "three-quarter"}

func Load() (Config, error) {
	cfg := Config{
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", ""),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", ""),
		VideoPreviewModel:  getEnv("VEO_PREVIEW_MODEL", ""),
		VideoFinalModel:    getEnv("VEO_FINAL_MODEL", ""),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 6),
		Angles:             getEnvList("STUDIO_ANGLES", defaultAngles),
		AngleRetries:       getEnvInt("ANGLE_RETRIES", 0),
		AutoVideo:          getEnvBool("AUTO_VIDEO", true),
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)) * time.Second,
		MaxPollAttempts:    getEnvInt("MAX_POLL_ATTEMPTS", 0),
		MaxPollDuration:    time.Duration(getEnvInt("MAX_POLL_MINUTES", 0)) * time.Minute,
		LookbookMax:        getEnvInt("LOOKBOOK_MAX_ENTRIES", 50),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		CatalogFile:        getEnv("CATALOG_FILE", ""),
	}

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.AngleRetries < 0 {
		cfg.AngleRetries = 0
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxPollAttempts < 0 {
		cfg.MaxPollAttempts = 0
	}
	if cfg.MaxPollDuration < 0 {
		cfg.MaxPollDuration = 0
	}
	if cfg.LookbookMax < 1 {
		cfg.LookbookMax = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
