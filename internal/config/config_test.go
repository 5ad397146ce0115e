package config

import (
	"os"
	"testing"
	"time"
)

var filterEnvVars = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "METRICS_PORT", "LOG_LEVEL",
	"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ", "STT_INTERIM_RESULTS",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	"KAFKA_TOPIC_PARTIAL", "KAFKA_TOPIC_FINAL", "KAFKA_TOPIC_FILTERED",
	"SESSION_MAX_PARTIALS", "SESSION_MAX_DURATION",
	"FILTER_IGNORED_PHRASES", "FILTER_INTERRUPT_PHRASES",
	"FILTER_MIN_CONFIDENCE", "FILTER_CASE_SENSITIVE",
}

func clearEnv() {
	for _, v := range filterEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-voice-interrupt-filter" {
		t.Errorf("expected default principal 'svc-voice-interrupt-filter', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Service.MetricsPort)
	}

	// Filter defaults
	if len(cfg.Filter.IgnoredPhrases) != 8 {
		t.Errorf("expected 8 default ignored phrases, got %d", len(cfg.Filter.IgnoredPhrases))
	}
	if len(cfg.Filter.InterruptPhrases) != 9 {
		t.Errorf("expected 9 default interrupt phrases, got %d", len(cfg.Filter.InterruptPhrases))
	}
	if cfg.Filter.MinConfidence != 0 {
		t.Errorf("expected default min confidence 0, got %v", cfg.Filter.MinConfidence)
	}
	if cfg.Filter.CaseSensitive {
		t.Error("expected matching to be case-insensitive by default")
	}

	// STT defaults
	if cfg.STT.Provider != "external" {
		t.Errorf("expected default STT provider 'external', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected default sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicFiltered != "interaction.transcript.filtered" {
		t.Errorf("unexpected default filtered topic: %s", cfg.Kafka.TopicFiltered)
	}

	// Session limit defaults
	if cfg.SessionLimits.MaxPartials != 500 {
		t.Errorf("expected default max partials 500, got %d", cfg.SessionLimits.MaxPartials)
	}
	if cfg.SessionLimits.MaxDuration != 5*time.Minute {
		t.Errorf("expected default max duration 5m, got %v", cfg.SessionLimits.MaxDuration)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	os.Setenv("SESSION_MAX_PARTIALS", "1000")
	os.Setenv("SESSION_MAX_DURATION", "10m")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected provider 'google', got %s", cfg.STT.Provider)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.SessionLimits.MaxPartials != 1000 {
		t.Errorf("expected max partials 1000, got %d", cfg.SessionLimits.MaxPartials)
	}
	if cfg.SessionLimits.MaxDuration != 10*time.Minute {
		t.Errorf("expected max duration 10m, got %v", cfg.SessionLimits.MaxDuration)
	}
}

func TestLoad_FilterPhraseOverrides(t *testing.T) {
	os.Setenv("FILTER_IGNORED_PHRASES", "like, you know , basically")
	os.Setenv("FILTER_INTERRUPT_PHRASES", "halt,enough")
	defer clearEnv()

	cfg := Load()

	want := []string{"like", "you know", "basically"}
	if len(cfg.Filter.IgnoredPhrases) != len(want) {
		t.Fatalf("expected %d ignored phrases, got %v", len(want), cfg.Filter.IgnoredPhrases)
	}
	for i, p := range want {
		if cfg.Filter.IgnoredPhrases[i] != p {
			t.Errorf("ignored[%d] = %q, want %q", i, cfg.Filter.IgnoredPhrases[i], p)
		}
	}

	if len(cfg.Filter.InterruptPhrases) != 2 || cfg.Filter.InterruptPhrases[0] != "halt" {
		t.Errorf("unexpected interrupt phrases: %v", cfg.Filter.InterruptPhrases)
	}
}

func TestLoad_MinConfidence(t *testing.T) {
	tests := []struct {
		value    string
		expected float64
	}{
		{"0.75", 0.75},
		{"1", 1},
		{"abc", 0},  // malformed: keep default
		{"-0.5", 0}, // out of range: keep default
		{"1.5", 0},  // out of range: keep default
	}

	for _, tt := range tests {
		os.Setenv("FILTER_MIN_CONFIDENCE", tt.value)
		cfg := Load()
		if cfg.Filter.MinConfidence != tt.expected {
			t.Errorf("FILTER_MIN_CONFIDENCE=%q: got %v, want %v", tt.value, cfg.Filter.MinConfidence, tt.expected)
		}
	}
	clearEnv()
}

func TestLoad_KafkaPrincipalFallsBackToService(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "svc-under-test")
	os.Unsetenv("KAFKA_PRINCIPAL")
	defer clearEnv()

	cfg := Load()

	if cfg.Kafka.Principal != "svc-under-test" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"false", true, false},
		{"0", true, false},
		{"notabool", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if tt.value == "" {
			os.Unsetenv("TEST_BOOL_VAR")
		} else {
			os.Setenv("TEST_BOOL_VAR", tt.value)
		}
		if got := envOrDefaultBool("TEST_BOOL_VAR", tt.def); got != tt.expected {
			t.Errorf("envOrDefaultBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
	os.Unsetenv("TEST_BOOL_VAR")
}

func TestEnvOrDefaultList_DropsEmptyEntries(t *testing.T) {
	os.Setenv("TEST_LIST_VAR", " a ,, b ,")
	defer os.Unsetenv("TEST_LIST_VAR")

	got := envOrDefaultList("TEST_LIST_VAR", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected list: %v", got)
	}
}
