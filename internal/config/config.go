package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HubConfig struct {
	Port string
	Host string
	Env  string
	Room string

	// Optional collaborators: empty values disable them.
	DatabaseURL  string
	RedisAddr    string
	RedisChannel string

	ArchiveRetentionDays int
	RateBurst            int
	RateInterval         time.Duration
	RejectMalformed      bool
}

type ClientConfig struct {
	// HubURLs lists every hub instance; the client sticks to one of them.
	HubURLs         []string
	Room            string
	UserName        string
	ProfileImageURL string
	MemberID        string
	DatabaseURL     string
	HistoryPath     string
	HistoryKey      string
}

func loadDotEnv() {
	log.Println("[CONFIG] Attempting to load .env file...")

	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] ℹ️ No .env file found, relying on system environment variables")
	} else {
		log.Println("[CONFIG] ✅ Successfully loaded .env file")
	}
}

func LoadHub() (*HubConfig, error) {
	loadDotEnv()

	cfg := &HubConfig{
		Port:         getEnv("PORT", "8080"),
		Host:         getEnv("HOST", "localhost"),
		Env:          getEnv("APP_ENV", "development"),
		Room:         getEnv("HUB_ROOM", "global"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "welfare-chat"),
	}

	var err error
	if cfg.ArchiveRetentionDays, err = getInt("ARCHIVE_RETENTION_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = getInt("HUB_RATE_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.RateInterval, err = getDuration("HUB_RATE_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RejectMalformed, err = getBool("HUB_REJECT_MALFORMED", false); err != nil {
		return nil, err
	}

	log.Printf("[CONFIG] Environment: %s", cfg.Env)
	log.Printf("[CONFIG] Target Port: %s", cfg.Port)
	log.Printf("[CONFIG] Hub room: %s", cfg.Room)

	if cfg.DatabaseURL == "" {
		log.Println("[CONFIG] ℹ️ DATABASE_URL not set, message archive disabled")
	} else {
		log.Printf("[CONFIG] Database URL detected: %s", maskDBSource(cfg.DatabaseURL))
	}

	if cfg.RedisAddr == "" {
		log.Println("[CONFIG] ℹ️ REDIS_ADDR not set, running as a single hub instance")
	} else {
		log.Printf("[CONFIG] Redis relay: %s (channel %s)", cfg.RedisAddr, cfg.RedisChannel)
	}

	log.Println("[CONFIG] All configuration variables successfully initialized")
	return cfg, nil
}

func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{
		HubURLs:         getList("HUB_URL", "ws://localhost:8080/ws"),
		Room:            getEnv("HUB_ROOM", "global"),
		UserName:        getEnv("CHAT_USER_NAME", ""),
		ProfileImageURL: getEnv("CHAT_PROFILE_IMAGE_URL", ""),
		MemberID:        getEnv("CHAT_MEMBER_ID", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		HistoryPath:     getEnv("CHAT_HISTORY_DB", "chat-history.db"),
		HistoryKey:      getEnv("CHAT_HISTORY_KEY", "chatMessages"),
	}

	if len(cfg.HubURLs) == 0 {
		return nil, fmt.Errorf("config: HUB_URL must name at least one hub")
	}
	if cfg.UserName == "" && (cfg.MemberID == "" || cfg.DatabaseURL == "") {
		return nil, fmt.Errorf("config: CHAT_USER_NAME is required unless CHAT_MEMBER_ID and DATABASE_URL are set")
	}

	log.Printf("[CONFIG] Hub URLs: %s", strings.Join(cfg.HubURLs, ", "))
	log.Printf("[CONFIG] History store: %s (key %s)", cfg.HistoryPath, cfg.HistoryKey)
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Printf("[CONFIG] ⚠️  Variable %s not found, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

// getList splits a comma separated variable, dropping empty entries.
func getList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, raw)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, strconv.FormatBool(defaultValue))
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, defaultValue.String())
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration, got %q", key, raw)
	}
	return v, nil
}

func maskDBSource(dsn string) string {
	parts := strings.Split(dsn, "@")
	if len(parts) < 2 {
		return "invalid-dsn-format"
	}
	return "postgres://****:****@" + parts[len(parts)-1]
}
