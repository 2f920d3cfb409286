package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/logging"
)

// CLIFlags contains the persistent flags of the command line tool
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides are applied on top of the loaded configuration
	Overrides map[string]interface{}
}

// BuildCLIContainer creates and configures a dependency injection container
// for the command line tool. It shares every service with the HTTP
// container but logs to the console.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		for key, value := range flags.Overrides {
			cfg.Set(key, value)
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideServices(container); err != nil {
		return nil, err
	}

	return container, nil
}
