package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. XARL_WORKFLOW_BASE_URL
const EnvPrefix = "XARL"

// legacyEnv maps configuration keys to the environment names earlier
// deployments used. The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"mailbox.access_token":     "EMAIL_ACCESS_TOKEN",
	"workflow.base_url":        "DIFY_BASE_URL",
	"workflow.api_key":         "DIFY_API_KEY",
	"workflow.user":            "USER_ID",
	"staging.processed_dir":    "PROCESSED_DIR",
	"staging.responses_dir":    "WORKFLOW_RESPONSES_DIR",
	"notify.webhook_url":       "WEBHOOK_URL",
	"notify.wecom.corp_id":     "WECOM_CORPID",
	"notify.wecom.corp_secret": "WECOM_CORPSECRET",
	"notify.wecom.agent_id":    "WECOM_AGENTID",
}

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance, reading config.yaml from the
// usual locations when present
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile creates a new configuration instance from an explicit file.
// An empty path searches the default locations.
func NewWithFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/xarl-email-agent/")
		v.AddConfigPath("$HOME/.xarl-email-agent")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", ":8000")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Mailbox defaults
	v.SetDefault("mailbox.provider", "graph")
	v.SetDefault("mailbox.access_token", "")
	v.SetDefault("mailbox.graph_base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("mailbox.gmail_endpoint", "")
	v.SetDefault("mailbox.list_limit", 50)
	v.SetDefault("mailbox.max_messages", 10)
	v.SetDefault("mailbox.ignored_domains", []string{})
	v.SetDefault("mailbox.timeout", "30s")

	// Workflow engine defaults
	v.SetDefault("workflow.base_url", "http://localhost/v1")
	v.SetDefault("workflow.api_key", "")
	v.SetDefault("workflow.user", "xarl-email-agent")
	v.SetDefault("workflow.upload_timeout", "30s")
	v.SetDefault("workflow.run_timeout", "60s")

	// Staging defaults
	v.SetDefault("staging.download_dir", "downloaded_emails")
	v.SetDefault("staging.processed_dir", "processed_emails")
	v.SetDefault("staging.responses_dir", "workflow_responses")
	v.SetDefault("staging.cursor_file", "run_log.txt")

	// Renderer defaults
	v.SetDefault("renderer.font_path", "fonts/DejaVuSans.ttf")
	v.SetDefault("renderer.font_family", "DejaVu")

	// Notification defaults
	v.SetDefault("notify.mode", "webhook")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.wecom.base_url", "https://qyapi.weixin.qq.com/cgi-bin")
	v.SetDefault("notify.wecom.corp_id", "")
	v.SetDefault("notify.wecom.corp_secret", "")
	v.SetDefault("notify.wecom.agent_id", "")
	v.SetDefault("notify.smtp.address", "localhost:25")
	v.SetDefault("notify.smtp.from", "xarl-email-agent@localhost")
	v.SetDefault("notify.smtp.subject", "Mail workflow result")

	// Ledger defaults
	v.SetDefault("ledger.type", "memory")
	v.SetDefault("ledger.sqlite_path", "data/submissions.db")
	v.SetDefault("ledger.mysql_dsn", "user:password@tcp(localhost:3306)/xarl_email_agent")
	v.SetDefault("ledger.retention", "720h")
	v.SetDefault("ledger.cleanup_frequency", "1h")

	// Outbound HTTP defaults
	v.SetDefault("http.trace", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
