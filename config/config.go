package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var conf = mustLoad()

type Config struct {
	Server struct {
		Port                string `envconfig:"PORT" default:"8080"`
		LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
		APIKey              string `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		AdminToken          string `envconfig:"ADMIN_TOKEN" default:""`
		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
	}

	Cache struct {
		FastCapacity       int    `envconfig:"FAST_CACHE_CAPACITY" default:"200"`
		FastTTLSeconds     int    `envconfig:"FAST_CACHE_TTL_SECONDS" default:"600"`
		DurableTTLSeconds  int    `envconfig:"DURABLE_CACHE_TTL_SECONDS" default:"2592000"`
		NegativeTTLSeconds int    `envconfig:"NEGATIVE_CACHE_TTL_SECONDS" default:"21600"`
		DBPath             string `envconfig:"CACHE_DB_PATH" default:"./data/lyrics.db"`
		BackupPath         string `envconfig:"CACHE_BACKUP_PATH" default:"./data/backups"`
		StatsDBPath        string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
	}

	Resolver struct {
		ResolveTimeoutSeconds      int `envconfig:"RESOLVE_TIMEOUT_SECONDS" default:"45"`
		ProviderTimeoutSeconds     int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"10"`
		GenerativeTimeoutSeconds   int `envconfig:"GENERATIVE_TIMEOUT_SECONDS" default:"40"`
		MinLyricsLength            int `envconfig:"MIN_LYRICS_LENGTH" default:"150"`
		GoodEnoughScore            int `envconfig:"GOOD_ENOUGH_SCORE" default:"70"`
		SignificanceGap            int `envconfig:"SIGNIFICANCE_GAP" default:"10"`
		VerifyConfidenceThreshold  int `envconfig:"VERIFY_CONFIDENCE_THRESHOLD" default:"50"`
		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before a provider is skipped
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds before a skipped provider is retried
	}

	Providers struct {
		Enabled           string `envconfig:"ENABLED_PROVIDERS" default:"lrclib,kugou,ovh,genius,gemini"`
		GeniusAccessToken string `envconfig:"GENIUS_ACCESS_TOKEN" default:""`
		GeminiAPIKey      string `envconfig:"GEMINI_API_KEY" default:""`
		GeminiModel       string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
		PriorityTiersFile string `envconfig:"PRIORITY_TIERS_FILE" default:""`
	}

	Notifier struct {
		TelegramBotToken string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID   string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic        string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer       string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		SMTPHost         string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort         string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername     string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword     string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail        string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail          string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// EnabledProviders returns the configured provider names in declaration order
func (c Config) EnabledProviders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(c.Providers.Enabled, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ResolveTimeout is the overall deadline of one resolution
func (c Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Resolver.ResolveTimeoutSeconds) * time.Second
}

func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Resolver.ProviderTimeoutSeconds) * time.Second
}

func (c Config) GenerativeTimeout() time.Duration {
	return time.Duration(c.Resolver.GenerativeTimeoutSeconds) * time.Second
}

func (c Config) FastCacheTTL() time.Duration {
	return time.Duration(c.Cache.FastTTLSeconds) * time.Second
}

func (c Config) DurableCacheTTL() time.Duration {
	return time.Duration(c.Cache.DurableTTLSeconds) * time.Second
}

func (c Config) NegativeCacheTTL() time.Duration {
	return time.Duration(c.Cache.NegativeTTLSeconds) * time.Second
}

// LoadPriorityTiers reads the optional YAML file overriding provider priority scores.
// The file is a flat mapping of provider name to integer score:
//
//	lrclib: 100
//	genius: 40
//
// Returns nil when no file is configured.
func (c Config) LoadPriorityTiers() (map[string]int, error) {
	path := c.Providers.PriorityTiersFile
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read priority tiers file: %w", err)
	}

	tiers := make(map[string]int)
	if err := yaml.Unmarshal(data, &tiers); err != nil {
		return nil, fmt.Errorf("failed to parse priority tiers file: %w", err)
	}

	normalized := make(map[string]int, len(tiers))
	for name, score := range tiers {
		normalized[strings.ToLower(strings.TrimSpace(name))] = score
	}
	return normalized, nil
}
