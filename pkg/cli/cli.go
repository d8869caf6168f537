package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/config"
)

type Config struct {
	// Application flags
	Debug bool

	// Configuration flags
	ConfigPath string
	SeedFile   string
	StorePath  string

	// Overrides applied on top of the config file
	ListenAddress         string
	MessageDelay          string
	DisableStartupTrigger bool
	DisableSlack          bool
	DisableMail           bool
}

// Parse parses os.Args. It exits on invalid flags, like flag.Parse.
func Parse() *Config {
	c, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return c
}

// ParseArgs parses the given arguments on a fresh flag set.
func ParseArgs(args []string) (*Config, error) {
	config := &Config{}
	fs := flag.NewFlagSet("overlapd", flag.ContinueOnError)

	// The pattern: fs.XxxVar(&variable, "flag-name", defaultValueOrEnvValue, "help text")
	fs.BoolVar(&config.Debug, "debug", getEnvBool("OVERLAP_DEBUG", false), "Enable debug level logging")

	fs.StringVar(&config.ConfigPath, "config-path", getEnvString("OVERLAP_CONFIG_PATH", "./config.yaml"),
		"Path to the overlap escalation configuration file")
	fs.StringVar(&config.SeedFile, "seed-file", getEnvString("OVERLAP_SEED_FILE", ""),
		"JSON file with crossbeam records imported at startup (overrides store.seedFile)")
	fs.StringVar(&config.StorePath, "store-path", getEnvString("OVERLAP_STORE_PATH", ""),
		"SQLite database path (overrides store.path)")

	fs.StringVar(&config.ListenAddress, "listen-address", getEnvString("OVERLAP_LISTEN_ADDRESS", ""),
		"Address the HTTP API listens on (overrides server.listenAddress)")
	fs.StringVar(&config.MessageDelay, "message-delay", getEnvString("OVERLAP_MESSAGE_DELAY", ""),
		"Pause after each escalation message, e.g. 2s or 5m (overrides escalation.messageDelay)")
	fs.BoolVar(&config.DisableStartupTrigger, "disable-startup-trigger", getEnvBool("OVERLAP_DISABLE_STARTUP_TRIGGER", false),
		"Do not start an escalation pass when the server comes up")
	fs.BoolVar(&config.DisableSlack, "disable-slack", getEnvBool("OVERLAP_DISABLE_SLACK", false),
		"Never deliver escalation messages to Slack")
	fs.BoolVar(&config.DisableMail, "disable-mail", getEnvBool("OVERLAP_DISABLE_MAIL", false),
		"Never deliver escalation messages by mail")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if config.MessageDelay != "" {
		if _, err := parseDuration("message-delay", config.MessageDelay, 0); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// Apply overlays the flag overrides onto the loaded file configuration.
func (c *Config) Apply(cfg *config.Config) {
	if c.ListenAddress != "" {
		cfg.Server.ListenAddress = c.ListenAddress
	}
	if c.StorePath != "" {
		cfg.Store.Path = c.StorePath
	}
	if c.SeedFile != "" {
		cfg.Store.SeedFile = c.SeedFile
	}
	if c.MessageDelay != "" {
		cfg.Escalation.MessageDelay = c.MessageDelay
	}
	if c.DisableStartupTrigger {
		f := false
		cfg.Escalation.TriggerOnStartup = &f
	}
	if c.DisableMail {
		cfg.Mail.Host = ""
	}
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		"debug", c.Debug,
		"config_path", c.ConfigPath,
		"seed_file", c.SeedFile,
		"store_path", c.StorePath,
		"listen_address", c.ListenAddress,
		"message_delay", c.MessageDelay,
		"disable_startup_trigger", c.DisableStartupTrigger,
		"disable_slack", c.DisableSlack,
		"disable_mail", c.DisableMail,
	)
}

// ParseMessageDelay resolves the configured message delay, falling back to def
// with a warning when the value cannot be parsed.
func ParseMessageDelay(value string, def time.Duration, log *zap.SugaredLogger) time.Duration {
	d, err := parseDuration("message-delay", value, def)
	if err != nil {
		log.Warn(err)
	}
	return d
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		d, err := config.ParseDuration(value)
		if err != nil {
			return duration, fmt.Errorf("invalid %s %q; using default %s: %w", name, value, def.String(), err)
		}
		duration = d
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
