package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"market_intel/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	YelpKey        string
	FoursquareKey  string
	GoogleKey      string
	YelpBase       string
	FoursquareBase string
	GoogleBase     string

	ProviderTimeout time.Duration
	ProviderRPS     int
	ProviderRetries int
	FallbackEnabled bool
	CacheTTL        time.Duration
	PolicyFile      string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", ""),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		YelpKey:        env("YELP_API_KEY", ""),
		FoursquareKey:  env("FOURSQUARE_API_KEY", ""),
		GoogleKey:      env("GOOGLE_API_KEY", ""),
		YelpBase:       env("YELP_BASE_URL", ""),
		FoursquareBase: env("FOURSQUARE_BASE_URL", ""),
		GoogleBase:     env("GOOGLE_BASE_URL", ""),

		ProviderTimeout: time.Duration(atoi("PROVIDER_TIMEOUT_MS", 8000)) * time.Millisecond,
		ProviderRPS:     atoi("PROVIDER_RPS", 5),
		ProviderRetries: atoi("PROVIDER_RETRIES", 0),
		FallbackEnabled: boolEnv("FALLBACK_ENABLED", true),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		PolicyFile:      env("POLICY_FILE", ""),
	}
	for k, v := range map[string]string{
		"YELP_API_KEY":       c.YelpKey,
		"FOURSQUARE_API_KEY": c.FoursquareKey,
		"GOOGLE_API_KEY":     c.GoogleKey,
	} {
		if v == "" {
			log.Warn().Str("key", k).Msg("provider API key is empty; that provider will always fail")
		}
	}
	return c
}

// LoadPolicy reads a YAML scoring policy. Keys missing from the file keep
// their DefaultPolicy values. An empty path returns the defaults.
func LoadPolicy(path string) (domain.Policy, error) {
	p := domain.DefaultPolicy()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-boolean env value")
		return def
	}
	return b
}
