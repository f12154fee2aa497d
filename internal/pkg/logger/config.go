package logger

import (
	"fmt"
	"strings"
)

// Config is the logger configuration, loaded from the "log" section
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, file, both
	File             FileConfig `mapstructure:"file"`
	EnableStacktrace bool       `mapstructure:"enable_stacktrace"`
}

// FileConfig configures the rotating file sink
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/nexus-assistant.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
	"dpanic": true, "panic": true, "fatal": true,
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Level)] {
		return fmt.Errorf("invalid log level %q", c.Level)
	}

	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q, must be json or console", c.Format)
	}

	switch c.Output {
	case "console":
		return nil
	case "file", "both":
	default:
		return fmt.Errorf("invalid log output %q, must be console, file or both", c.Output)
	}

	if c.File.Filename == "" {
		return fmt.Errorf("log file name is required for %s output", c.Output)
	}
	if c.File.MaxSize <= 0 || c.File.MaxAge <= 0 {
		return fmt.Errorf("log file max_size and max_age must be positive")
	}
	if c.File.MaxBackups < 0 {
		return fmt.Errorf("log file max_backups must not be negative")
	}
	return nil
}
