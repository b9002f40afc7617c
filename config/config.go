package config

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Subscription    string
	NotifyTopic     string
	GoogleProjectID string
	DatabaseURL     string
	MetricsPort     int
	LogLevel        string
	CredentialsFile string

	// Dispatch policy overrides
	SearchRadiiKm   []float64
	FreshnessWindow time.Duration
	InitialWait     time.Duration
	RetryWait       time.Duration
	RunTimeout      time.Duration
	MaxWorkers      int
}

func Load() *Config {
	cfg := &Config{
		Subscription:    strings.TrimSpace(getEnv("JOB_EVENT_SUBSCRIPTION", os.Getenv("DISPATCH_PUBSUB_SUBSCRIPTION"))),
		NotifyTopic:     strings.TrimSpace(getEnv("NOTIFY_TOPIC", os.Getenv("DISPATCH_PUBSUB_TOPIC"))),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MetricsPort:     getEnvInt("DISPATCH_METRICS_PORT", 8080),
		LogLevel:        strings.TrimSpace(getEnv("DISPATCH_LOG_LEVEL", "info")),
		CredentialsFile: strings.TrimSpace(firstNonEmpty(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), os.Getenv("DISPATCH_GSA_CREDENTIALS"))),

		SearchRadiiKm:   getEnvFloats("DISPATCH_SEARCH_RADII_KM", []float64{5, 10, 15, 20}),
		FreshnessWindow: getEnvDuration("DISPATCH_FRESHNESS_WINDOW", 5*time.Minute),
		InitialWait:     getEnvDuration("DISPATCH_INITIAL_WAIT", 2*time.Second),
		RetryWait:       getEnvDuration("DISPATCH_RETRY_WAIT", 3*time.Second),
		RunTimeout:      getEnvDuration("DISPATCH_RUN_TIMEOUT", 30*time.Second),
		MaxWorkers:      getEnvInt("DISPATCH_MAX_WORKERS", 10),
	}

	cfg.GoogleProjectID = getGoogleProjectID(cfg.CredentialsFile, strings.TrimSpace(getEnv("DISPATCH_PUBSUB_PROJECT_ID", "")))
	if cfg.GoogleProjectID == "" {
		log.Warn().Msg("Google project ID not resolved; set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PROJECT_ID or DISPATCH_PUBSUB_PROJECT_ID")
	}
	if cfg.Subscription == "" {
		log.Warn().Msg("Pub/Sub subscription not set; set JOB_EVENT_SUBSCRIPTION or DISPATCH_PUBSUB_SUBSCRIPTION")
	}
	if cfg.NotifyTopic == "" {
		log.Warn().Msg("Pub/Sub topic not set; set NOTIFY_TOPIC or DISPATCH_PUBSUB_TOPIC")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set; the worker location store will be unreachable")
	}
	return cfg
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.MetricsPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"projectID":           c.GoogleProjectID,
		"eventSubscription":   c.Subscription,
		"notifyTopic":         c.NotifyTopic,
		"databaseConfigured":  c.DatabaseURL != "",
		"metricsPort":         c.MetricsPort,
		"logLevel":            c.LogLevel,
		"credentialsProvided": c.CredentialsFile != "",
		"searchRadiiKm":       c.SearchRadiiKm,
		"freshnessWindow":     c.FreshnessWindow.String(),
		"initialWait":         c.InitialWait.String(),
		"retryWait":           c.RetryWait.String(),
		"runTimeout":          c.RunTimeout.String(),
		"maxWorkers":          c.MaxWorkers,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		iv, err := strconv.Atoi(v)
		if err == nil {
			return iv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment; using default")
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d >= 0 {
			return d
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment; using default")
	}
	return def
}

// getEnvFloats parses a comma-separated, strictly increasing list of positive
// floats. An invalid list falls back to the default.
func getEnvFloats(key string, def []float64) []float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	prev := 0.0
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f <= prev {
			log.Warn().Str("key", key).Str("value", v).Msg("invalid radius list in environment; using default")
			return def
		}
		out = append(out, f)
		prev = f
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func projectIDFromCredentials(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	var x struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &x); err != nil {
		return "", nil
	}
	return x.ProjectID, nil
}

func getGoogleProjectID(credsFile string, explicit string) string {
	// 1) Prefer GOOGLE_APPLICATION_CREDENTIALS if set
	if p := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); p != "" {
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			return strings.TrimSpace(pid)
		}
		log.Warn().Str("credsFile", p).Msg("project_id not found in credentials file or unreadable")
	}

	// 2) Explicit override from dispatcher env
	if explicit != "" {
		return explicit
	}

	// 3) External override
	if v := strings.TrimSpace(os.Getenv("GOOGLE_PROJECT_ID")); v != "" {
		return v
	}

	// 4) Common Google envs
	if v := strings.TrimSpace(firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GCLOUD_PROJECT"), os.Getenv("GCP_PROJECT"))); v != "" {
		return v
	}

	// 5) Fallback to provided credentials file path (DISPATCH_GSA_CREDENTIALS)
	if p := strings.TrimSpace(credsFile); p != "" {
		if pid, err := projectIDFromCredentials(p); err == nil && pid != "" {
			return strings.TrimSpace(pid)
		}
	}
	return ""
}
