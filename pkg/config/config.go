package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath   = "OVERLAP_CONFIG_PATH"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvSlackToken   = "SLACK_BOT_TOKEN"
	EnvSMTPPassword = "OVERLAP_SMTP_PASSWORD"
)

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRS to trust for X-Forwarded-For headers (e.g., ["10.0.0.0/8", "127.0.0.1"])
}

type Frontend struct {
	BaseURL string `yaml:"baseURL"`
	// AllowedOrigins are added to the CORS allow list next to BaseURL.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Escalation struct {
	// MessageDelay is the pause after each escalation message (e.g. "2m").
	MessageDelay string `yaml:"messageDelay"`
	// TriggerOnStartup starts an escalation pass when the server comes up.
	TriggerOnStartup *bool `yaml:"triggerOnStartup"`
}

type Store struct {
	Path string `yaml:"path"`
	// SeedFile is an optional JSON records file imported at startup.
	SeedFile string `yaml:"seedFile"`
}

type Slack struct {
	Username  string `yaml:"username"`
	IconEmoji string `yaml:"iconEmoji"`
	// BotToken is sent as bearer token when set. Falls back to SLACK_BOT_TOKEN.
	BotToken string `yaml:"botToken"`
	Timeout  string `yaml:"timeout"`
}

type Mail struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SenderAddress      string `yaml:"senderAddress"`
	SenderName         string `yaml:"senderName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	RetryCount         int    `yaml:"retryCount"`
	RetryBackoffMs     int    `yaml:"retryBackoffMs"`
}

// Enabled reports whether a mail server is configured.
func (m Mail) Enabled() bool {
	return m.Host != ""
}

type Composer struct {
	// Provider is "gemini" or "template".
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"apiKey"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"baseURL"`
	CompanyName string `yaml:"companyName"`
	Timeout     string `yaml:"timeout"`
}

type Kafka struct {
	Brokers            []string `yaml:"brokers"`
	Topic              string   `yaml:"topic"`
	TLS                bool     `yaml:"tls"`
	InsecureSkipVerify bool     `yaml:"insecureSkipVerify"`
	SASLMechanism      string   `yaml:"saslMechanism"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	BatchSize          int      `yaml:"batchSize"`
	BatchTimeout       string   `yaml:"batchTimeout"`
}

type Audit struct {
	// LogSink writes audit events to the service log. Defaults to true.
	LogSink   *bool `yaml:"logSink"`
	QueueSize int   `yaml:"queueSize"`
	Kafka     Kafka `yaml:"kafka"`
}

type RateLimit struct {
	// RequestsPerSecond per client IP; 0 disables rate limiting.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Frontend   Frontend   `yaml:"frontend"`
	Escalation Escalation `yaml:"escalation"`
	Store      Store      `yaml:"store"`
	Slack      Slack      `yaml:"slack"`
	Mail       Mail       `yaml:"mail"`
	Composer   Composer   `yaml:"composer"`
	Audit      Audit      `yaml:"audit"`
	RateLimit  RateLimit  `yaml:"rateLimit"`
}

// Load loads the configuration from a file path.
// If configPath is empty, OVERLAP_CONFIG_PATH is used, then "./config.yaml".
// Defaults and environment secrets are applied to the result.
func Load(configPath ...string) (Config, error) {
	var path string

	switch {
	case len(configPath) > 0 && configPath[0] != "":
		path = configPath[0]
	case os.Getenv(EnvConfigPath) != "":
		path = os.Getenv(EnvConfigPath)
	default:
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open overlap config file %s: %w", path, err)
	}

	if err := yaml.UnmarshalStrict(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	config.Defaults()
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Defaults fills unset fields and pulls secrets from the environment.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Escalation.MessageDelay == "" {
		c.Escalation.MessageDelay = "2s"
	}
	if c.Escalation.TriggerOnStartup == nil {
		t := true
		c.Escalation.TriggerOnStartup = &t
	}
	if c.Store.Path == "" {
		c.Store.Path = "./overlap.db"
	}
	if c.Slack.Username == "" {
		c.Slack.Username = "Moat"
	}
	if c.Slack.IconEmoji == "" {
		c.Slack.IconEmoji = ":ghost:"
	}
	if c.Slack.Timeout == "" {
		c.Slack.Timeout = "10s"
	}
	if c.Slack.BotToken == "" {
		c.Slack.BotToken = os.Getenv(EnvSlackToken)
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Password == "" {
		c.Mail.Password = os.Getenv(EnvSMTPPassword)
	}
	if c.Composer.APIKey == "" {
		c.Composer.APIKey = os.Getenv(EnvGeminiAPIKey)
	}
	if c.Composer.Provider == "" {
		if c.Composer.APIKey != "" {
			c.Composer.Provider = "gemini"
		} else {
			c.Composer.Provider = "template"
		}
	}
	if c.Composer.Model == "" {
		c.Composer.Model = "gemini-2.5-pro"
	}
	if c.Composer.BaseURL == "" {
		c.Composer.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Composer.CompanyName == "" {
		c.Composer.CompanyName = "Moative"
	}
	if c.Composer.Timeout == "" {
		c.Composer.Timeout = "60s"
	}
	if c.Audit.LogSink == nil {
		t := true
		c.Audit.LogSink = &t
	}
	if c.Audit.Kafka.Topic == "" && len(c.Audit.Kafka.Brokers) > 0 {
		c.Audit.Kafka.Topic = "overlap-escalation-audit"
	}
}

// Validate checks values that Defaults cannot repair.
func (c Config) Validate() error {
	for name, v := range map[string]string{
		"escalation.messageDelay": c.Escalation.MessageDelay,
		"slack.timeout":           c.Slack.Timeout,
		"composer.timeout":        c.Composer.Timeout,
	} {
		if _, err := ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Audit.Kafka.BatchTimeout != "" {
		if _, err := ParseDuration(c.Audit.Kafka.BatchTimeout); err != nil {
			return fmt.Errorf("audit.kafka.batchTimeout: %w", err)
		}
	}
	switch c.Composer.Provider {
	case "gemini", "template":
	default:
		return fmt.Errorf("composer.provider must be gemini or template, got %q", c.Composer.Provider)
	}
	if c.Composer.Provider == "gemini" && c.Composer.APIKey == "" {
		return fmt.Errorf("composer.apiKey (or %s) is required for the gemini composer", EnvGeminiAPIKey)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rateLimit values must not be negative")
	}
	return nil
}

// ParseDuration parses a Go duration, rejecting negative values.
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}

// MustDuration parses a duration already checked by Validate.
func MustDuration(s string) time.Duration {
	d, _ := ParseDuration(s)
	return d
}
