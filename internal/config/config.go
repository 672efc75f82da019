package config

import (
	"os"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Scenario
	Scenario string // galaxies | binary
	Bodies   int
	Seed     int64
	// Simulation parameters
	DomainSize     float64 // side length of the root square
	TimeStep       float64 // seconds per tick
	Theta          float64 // Barnes-Hut opening threshold
	Steps          int
	ReportEvery    int    // progress log cadence in steps
	MaxDepth       int    // quadtree subdivision bound
	DepthFallback  string // bucket | fuse
	OutputFile     string // per-tick CSV; empty disables it
	SnapshotEvery  int    // snapshot / websocket / database cadence in steps
	DatabaseURL    string
	DBBatchSize    int
	// HTTP monitor
	HTTPAddr             string
	CacheMaxMB           int64
	CacheMaxEntries      int64
	CacheTTL             time.Duration
	EnableRateLimit      bool
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int
	RateLimitPerIP       float64 // requests per second per IP
	RateLimitPerIPBurst  int
	// Observability settings
	LogLevel          string  // debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // host:port of the OTLP HTTP collector
	OTELSampleRate    float64 // 0.0 to 1.0
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
	ServiceVersion    string
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Scenario:      strings.ToLower(getEnvString("SIM_SCENARIO", "galaxies")),
		Bodies:        getEnvAsInt("SIM_BODIES", 2600),
		Seed:          getEnvAsInt64("SIM_SEED", time.Now().UnixNano()),
		DomainSize:    getEnvAsFloat("SIM_DOMAIN_SIZE", 1e19),
		TimeStep:      getEnvAsFloat("SIM_DT", 2e11),
		Theta:         getEnvAsFloat("SIM_THETA", 0.2),
		Steps:         getEnvAsInt("SIM_STEPS", 5000),
		ReportEvery:   getEnvAsInt("SIM_REPORT_EVERY", 50),
		MaxDepth:      getEnvAsInt("SIM_MAX_DEPTH", 100),
		DepthFallback: strings.ToLower(getEnvString("SIM_DEPTH_FALLBACK", "bucket")),
		OutputFile:    strings.TrimSpace(os.Getenv("SIM_OUTPUT_FILE")),
		SnapshotEvery: getEnvAsInt("SIM_SNAPSHOT_EVERY", 10),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBBatchSize:   getEnvAsInt("DB_BATCH_SIZE", 1000),
		// HTTP monitor
		HTTPAddr:             getEnvString("HTTP_ADDR", ":8000"),
		CacheMaxMB:           getEnvAsInt64("CACHE_MAX_MB", 64),
		CacheMaxEntries:      getEnvAsInt64("CACHE_MAX_ENTRIES", 500),
		CacheTTL:             time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 600)) * time.Second,
		EnableRateLimit:      getEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitGlobal:      getEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: getEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       getEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  getEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		// Observability settings
		LogLevel:          strings.ToLower(getEnvString("LOG_LEVEL", "info")),
		OTELEnabled:       getEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELSampleRate:    getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		ServiceVersion:    getEnvString("SERVICE_VERSION", "dev"),
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = getEnvString("ENV", "development")
	}
	if cached.SentryRelease == "" {
		cached.SentryRelease = cached.ServiceVersion
	}
	if cached.ReportEvery <= 0 {
		cached.ReportEvery = 1
	}
	if cached.SnapshotEvery <= 0 {
		cached.SnapshotEvery = 1
	}
	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
