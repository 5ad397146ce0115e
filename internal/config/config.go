// Package config loads service configuration from the process environment.
// Every value has a default; malformed values are logged and the default is
// kept, never fatal.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"voice-interrupt-filter/internal/filter"
)

// ServiceConfig holds service identity and listen addresses.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
}

// STTConfig selects and configures the speech-to-text provider.
// Provider "external" means transcripts arrive pre-recognized over the
// ingest stream and no adapter is run in-process.
type STTConfig struct {
	Provider       string
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
}

// KafkaConfig holds event publishing configuration.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicPartial  string
	TopicFinal    string
	TopicFiltered string
	Principal     string
}

// SessionLimits are per-session guardrails against unbounded streams.
type SessionLimits struct {
	MaxPartials int
	MaxDuration time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel string
}

// Configuration is the root config for the service.
type Configuration struct {
	Service       ServiceConfig
	Filter        filter.Config
	STT           STTConfig
	Kafka         KafkaConfig
	SessionLimits SessionLimits
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, applying defaults for
// anything unset or unparsable.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-interrupt-filter")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Filter: loadFilterConfig(),
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "external"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial:  envOrDefault("KAFKA_TOPIC_PARTIAL", "interaction.transcript.partial"),
			TopicFinal:    envOrDefault("KAFKA_TOPIC_FINAL", "interaction.transcript.final"),
			TopicFiltered: envOrDefault("KAFKA_TOPIC_FILTERED", "interaction.transcript.filtered"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		SessionLimits: SessionLimits{
			MaxPartials: envOrDefaultInt("SESSION_MAX_PARTIALS", 500),
			MaxDuration: envOrDefaultDuration("SESSION_MAX_DURATION", 5*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

// loadFilterConfig resolves the filter defaults with the deployment-time
// environment overrides: comma-separated phrase lists and a float
// threshold. A malformed or out-of-range threshold is ignored with a
// warning and the default retained.
func loadFilterConfig() filter.Config {
	cfg := filter.DefaultConfig()

	if phrases := envOrDefaultList("FILTER_IGNORED_PHRASES", nil); phrases != nil {
		cfg.IgnoredPhrases = phrases
		log.Info().Strs("phrases", phrases).Msg("Loaded ignored phrases from environment")
	}
	if phrases := envOrDefaultList("FILTER_INTERRUPT_PHRASES", nil); phrases != nil {
		cfg.InterruptPhrases = phrases
		log.Info().Strs("phrases", phrases).Msg("Loaded interrupt phrases from environment")
	}
	if v := os.Getenv("FILTER_MIN_CONFIDENCE"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			log.Warn().Str("value", v).Msg("Invalid confidence threshold, keeping default")
		} else {
			cfg.MinConfidence = threshold
		}
	}
	cfg.CaseSensitive = envOrDefaultBool("FILTER_CASE_SENSITIVE", cfg.CaseSensitive)

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer value, using default")
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean value, using default")
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration value, using default")
		return def
	}
	return d
}

// envOrDefaultList parses a comma-separated list, trimming whitespace and
// dropping empty entries. Returns def when the variable is unset or the
// list ends up empty.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
