package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/config"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("OVERLAP_TEST_ENV", "custom-value")

	if got := getEnvString("OVERLAP_TEST_ENV", "default"); got != "custom-value" {
		t.Fatalf("expected env override, got %s", got)
	}

	if got := getEnvString("OVERLAP_UNKNOWN_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("OVERLAP_BOOL_TRUE", "true")
	if !getEnvBool("OVERLAP_BOOL_TRUE", false) {
		t.Fatal("expected true when env variable explicitly true")
	}

	t.Setenv("OVERLAP_BOOL_ONE", "1")
	if !getEnvBool("OVERLAP_BOOL_ONE", false) {
		t.Fatal("expected true for numeric string 1")
	}

	t.Setenv("OVERLAP_BOOL_FALSE", "false")
	if getEnvBool("OVERLAP_BOOL_FALSE", true) {
		t.Fatal("expected false when env variable explicitly false")
	}

	t.Setenv("OVERLAP_BOOL_INVALID", "sometimes")
	if !getEnvBool("OVERLAP_BOOL_INVALID", true) {
		t.Fatal("expected fallback default when env value invalid")
	}

	if getEnvBool("OVERLAP_BOOL_MISSING", false) {
		t.Fatal("expected default false when env missing")
	}
}

func TestGetEnvBool_AllTrueVariants(t *testing.T) {
	trueValues := []string{"true", "TRUE", "True", "1", "yes", "YES", "Yes"}
	for _, val := range trueValues {
		t.Run(val, func(t *testing.T) {
			t.Setenv("TEST_BOOL", val)
			assert.True(t, getEnvBool("TEST_BOOL", false), "expected true for %q", val)
		})
	}
}

func TestGetEnvBool_AllFalseVariants(t *testing.T) {
	falseValues := []string{"false", "FALSE", "False", "0", "no", "NO", "No"}
	for _, val := range falseValues {
		t.Run(val, func(t *testing.T) {
			t.Setenv("TEST_BOOL", val)
			assert.False(t, getEnvBool("TEST_BOOL", true), "expected false for %q", val)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		defaultVal  time.Duration
		expected    time.Duration
		expectError bool
	}{
		{
			name:       "valid duration 10m",
			value:      "10m",
			defaultVal: 5 * time.Minute,
			expected:   10 * time.Minute,
		},
		{
			name:       "valid duration 1h",
			value:      "1h",
			defaultVal: 5 * time.Minute,
			expected:   1 * time.Hour,
		},
		{
			name:       "valid duration 30s",
			value:      "30s",
			defaultVal: 5 * time.Minute,
			expected:   30 * time.Second,
		},
		{
			name:       "empty value uses default",
			value:      "",
			defaultVal: 5 * time.Minute,
			expected:   5 * time.Minute,
		},
		{
			name:        "invalid duration uses default",
			value:       "invalid",
			defaultVal:  5 * time.Minute,
			expected:    5 * time.Minute,
			expectError: true,
		},
		{
			name:        "negative duration uses default",
			value:       "-5s",
			defaultVal:  5 * time.Minute,
			expected:    5 * time.Minute,
			expectError: true,
		},
		{
			name:        "numeric without unit uses default",
			value:       "100",
			defaultVal:  5 * time.Minute,
			expected:    5 * time.Minute,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration("test-flag", tt.value, tt.defaultVal)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseMessageDelay(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	assert.Equal(t, 2*time.Second, ParseMessageDelay("", 2*time.Second, logger))
	assert.Equal(t, 5*time.Minute, ParseMessageDelay("5m", 2*time.Second, logger))
	assert.Equal(t, 2*time.Second, ParseMessageDelay("soon", 2*time.Second, logger))
}

func TestParseArgs_Defaults(t *testing.T) {
	c, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.False(t, c.Debug)
	assert.Equal(t, "./config.yaml", c.ConfigPath)
	assert.Empty(t, c.ListenAddress)
	assert.Empty(t, c.MessageDelay)
	assert.False(t, c.DisableStartupTrigger)
	assert.False(t, c.DisableSlack)
	assert.False(t, c.DisableMail)
}

func TestParseArgs_FlagsAndEnvironment(t *testing.T) {
	t.Setenv("OVERLAP_CONFIG_PATH", "/etc/overlap/config.yaml")
	t.Setenv("OVERLAP_DISABLE_MAIL", "yes")

	c, err := ParseArgs([]string{"--debug", "--listen-address", ":9090", "--message-delay", "30s", "--disable-startup-trigger"})
	require.NoError(t, err)

	assert.True(t, c.Debug)
	assert.Equal(t, "/etc/overlap/config.yaml", c.ConfigPath)
	assert.Equal(t, ":9090", c.ListenAddress)
	assert.Equal(t, "30s", c.MessageDelay)
	assert.True(t, c.DisableStartupTrigger)
	assert.True(t, c.DisableMail)
}

func TestParseArgs_RejectsInvalidDelay(t *testing.T) {
	_, err := ParseArgs([]string{"--message-delay", "fast"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestConfig_Apply(t *testing.T) {
	cfg := config.Config{}
	cfg.Defaults()
	cfg.Mail.Host = "smtp.example.com"

	c := &Config{
		ListenAddress:         ":9090",
		StorePath:             "/var/lib/overlap/overlap.db",
		SeedFile:              "records.json",
		MessageDelay:          "1m",
		DisableStartupTrigger: true,
		DisableMail:           true,
	}
	c.Apply(&cfg)

	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, "/var/lib/overlap/overlap.db", cfg.Store.Path)
	assert.Equal(t, "records.json", cfg.Store.SeedFile)
	assert.Equal(t, "1m", cfg.Escalation.MessageDelay)
	require.NotNil(t, cfg.Escalation.TriggerOnStartup)
	assert.False(t, *cfg.Escalation.TriggerOnStartup)
	assert.False(t, cfg.Mail.Enabled())
}

func TestConfig_ApplyKeepsFileValues(t *testing.T) {
	cfg := config.Config{}
	cfg.Defaults()
	before := cfg

	(&Config{}).Apply(&cfg)

	assert.Equal(t, before, cfg)
}

func TestConfig_Print(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	c := &Config{Debug: true, ConfigPath: "./config.yaml"}
	assert.NotPanics(t, func() { c.Print(logger) })
}
