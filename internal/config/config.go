package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	GeminiBaseURL      string
	GeminiAPIVersion   string
	GeminiTextModel    string
	GeminiImageModel   string
	GenerationInterval time.Duration
	VisionMode         string

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	BranchTimeout      time.Duration
	LogoFetchTimeout   time.Duration
	CrawlTimeout       time.Duration

	ChromeHeadless  bool
	ChromeUserAgent string

	StorageDir     string
	StorageBaseURL string
	WebAddr        string
	BrandTTL       time.Duration
	FontSize       float64
}

// Load reads the environment. Only GEMINI_API_KEY is mandatory here; the
// bot additionally calls RequireTelegram.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GenerationInterval: time.Duration(getEnvInt("GENERATION_INTERVAL_MS", 1000)) * time.Millisecond,
		VisionMode:         strings.ToLower(getEnv("VISION_MODE", "urls")),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT_SECONDS", 180*time.Second),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT_SECONDS", 180*time.Second),
		BranchTimeout:      getEnvDuration("BRANCH_TIMEOUT_SECONDS", 45*time.Second),
		LogoFetchTimeout:   getEnvDuration("LOGO_FETCH_TIMEOUT_SECONDS", 10*time.Second),
		CrawlTimeout:       getEnvDuration("CRAWL_TIMEOUT_SECONDS", 60*time.Second),
		ChromeHeadless:     getEnvBool("CHROME_HEADLESS", true),
		ChromeUserAgent:    strings.TrimSpace(os.Getenv("CHROME_USER_AGENT")),
		StorageDir:         getEnv("STORAGE_DIR", "./data"),
		StorageBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_BASE_URL")), "/"),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		BrandTTL:           time.Duration(getEnvInt("BRAND_TTL_MINUTES", 24*60)) * time.Minute,
		FontSize:           float64(getEnvInt("TEXT_OVERLAY_FONT_SIZE", 48)),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.GenerationInterval < 0 {
		cfg.GenerationInterval = 0
	}
	if cfg.BrandTTL <= 0 {
		cfg.BrandTTL = 24 * time.Hour
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = 48
	}
	if cfg.VisionMode != "pixels" {
		cfg.VisionMode = "urls"
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c Config) PixelVision() bool {
	return c.VisionMode == "pixels"
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

// getEnvDuration reads whole seconds; non-positive values use the fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	seconds := getEnvInt(key, 0)
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
