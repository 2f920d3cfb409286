package config

import (
	"errors"
	"time"
)

// ServerConfig represents the HTTP facade configuration
type ServerConfig struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// MailboxConfig represents the remote mailbox configuration
type MailboxConfig struct {
	Provider       string
	AccessToken    string
	GraphBaseURL   string
	GmailEndpoint  string
	ListLimit      int
	MaxMessages    int
	IgnoredDomains []string
	Timeout        time.Duration
}

// WorkflowConfig represents the workflow engine configuration
type WorkflowConfig struct {
	BaseURL       string
	APIKey        string
	User          string
	UploadTimeout time.Duration
	RunTimeout    time.Duration
}

// StagingConfig represents the local staging layout
type StagingConfig struct {
	DownloadDir  string
	ProcessedDir string
	ResponsesDir string
	CursorFile   string
}

// RendererConfig represents the PDF renderer configuration
type RendererConfig struct {
	FontPath   string
	FontFamily string
}

// WeComConfig represents the WeCom application credentials
type WeComConfig struct {
	BaseURL    string
	CorpID     string
	CorpSecret string
	AgentID    string
}

// SMTPConfig represents the SMTP relay used by the smtp notify mode
type SMTPConfig struct {
	Address string
	From    string
	Subject string
}

// NotifyConfig represents the notification configuration
type NotifyConfig struct {
	Mode       string
	WebhookURL string
	Timeout    time.Duration
	WeCom      WeComConfig
	SMTP       SMTPConfig
}

// LedgerConfig represents the submission ledger configuration
type LedgerConfig struct {
	Type             string
	SQLitePath       string
	MySQLDSN         string
	Retention        time.Duration
	CleanupFrequency time.Duration
}

// HTTPConfig represents outbound HTTP client settings
type HTTPConfig struct {
	Trace bool
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ShutdownTimeout: shutdown,
	}, err
}

// GetMailbox returns the mailbox configuration
func (c *Config) GetMailbox() (MailboxConfig, error) {
	timeout, err := c.GetDuration("mailbox.timeout")
	return MailboxConfig{
		Provider:       c.GetString("mailbox.provider"),
		AccessToken:    c.GetString("mailbox.access_token"),
		GraphBaseURL:   c.GetString("mailbox.graph_base_url"),
		GmailEndpoint:  c.GetString("mailbox.gmail_endpoint"),
		ListLimit:      c.GetInt("mailbox.list_limit"),
		MaxMessages:    c.GetInt("mailbox.max_messages"),
		IgnoredDomains: c.GetStringSlice("mailbox.ignored_domains"),
		Timeout:        timeout,
	}, err
}

// GetWorkflow returns the workflow engine configuration
func (c *Config) GetWorkflow() (WorkflowConfig, error) {
	upload, uploadErr := c.GetDuration("workflow.upload_timeout")
	run, runErr := c.GetDuration("workflow.run_timeout")
	return WorkflowConfig{
		BaseURL:       c.GetString("workflow.base_url"),
		APIKey:        c.GetString("workflow.api_key"),
		User:          c.GetString("workflow.user"),
		UploadTimeout: upload,
		RunTimeout:    run,
	}, errors.Join(uploadErr, runErr)
}

// GetStaging returns the staging layout configuration
func (c *Config) GetStaging() StagingConfig {
	return StagingConfig{
		DownloadDir:  c.GetString("staging.download_dir"),
		ProcessedDir: c.GetString("staging.processed_dir"),
		ResponsesDir: c.GetString("staging.responses_dir"),
		CursorFile:   c.GetString("staging.cursor_file"),
	}
}

// GetRenderer returns the renderer configuration
func (c *Config) GetRenderer() RendererConfig {
	return RendererConfig{
		FontPath:   c.GetString("renderer.font_path"),
		FontFamily: c.GetString("renderer.font_family"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() (NotifyConfig, error) {
	timeout, err := c.GetDuration("notify.timeout")
	return NotifyConfig{
		Mode:       c.GetString("notify.mode"),
		WebhookURL: c.GetString("notify.webhook_url"),
		Timeout:    timeout,
		WeCom: WeComConfig{
			BaseURL:    c.GetString("notify.wecom.base_url"),
			CorpID:     c.GetString("notify.wecom.corp_id"),
			CorpSecret: c.GetString("notify.wecom.corp_secret"),
			AgentID:    c.GetString("notify.wecom.agent_id"),
		},
		SMTP: SMTPConfig{
			Address: c.GetString("notify.smtp.address"),
			From:    c.GetString("notify.smtp.from"),
			Subject: c.GetString("notify.smtp.subject"),
		},
	}, err
}

// GetLedger returns the submission ledger configuration
func (c *Config) GetLedger() (LedgerConfig, error) {
	retention, retentionErr := c.GetDuration("ledger.retention")
	cleanup, cleanupErr := c.GetDuration("ledger.cleanup_frequency")
	return LedgerConfig{
		Type:             c.GetString("ledger.type"),
		SQLitePath:       c.GetString("ledger.sqlite_path"),
		MySQLDSN:         c.GetString("ledger.mysql_dsn"),
		Retention:        retention,
		CleanupFrequency: cleanup,
	}, errors.Join(retentionErr, cleanupErr)
}

// GetHTTP returns the outbound HTTP configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{Trace: c.GetBool("http.trace")}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
