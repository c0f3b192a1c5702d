package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/smollog/internal/flatten"
	"github.com/Iron-Ham/smollog/internal/logging"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/session"
)

// Config holds all configuration for smollog
type Config struct {
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Console ConsoleConfig `mapstructure:"console" yaml:"console"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SessionConfig controls how a logging session records and persists entries
type SessionConfig struct {
	// RootDir is the directory run directories are created under
	RootDir string `mapstructure:"root_dir" yaml:"root_dir"`
	// MirrorToConsole prints every record as it is created
	MirrorToConsole bool `mapstructure:"mirror_to_console" yaml:"mirror_to_console"`
	// Persist writes one file per record into the run directory
	Persist bool `mapstructure:"persist" yaml:"persist"`
	// PadWidth is the number of digits sequence numbers are padded to
	PadWidth int `mapstructure:"pad_width" yaml:"pad_width"`
}

// ConsoleConfig controls the console mirror
type ConsoleConfig struct {
	// MaxWidth truncates mirrored lines to this many cells (0 = unlimited)
	MaxWidth int `mapstructure:"max_width" yaml:"max_width"`
	// Color enables ANSI styling of labels and call sites
	Color bool `mapstructure:"color" yaml:"color"`
}

// ExportConfig controls the flatten-to-table export
type ExportConfig struct {
	// Output is the artifact file name written inside the log root
	Output string `mapstructure:"output" yaml:"output"`
	// Strict fails the export on the first record whose shape differs from the sample
	Strict bool `mapstructure:"strict" yaml:"strict"`
	// Compress writes the artifact zstd-compressed
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig controls smollog's own diagnostics
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", or "error"
	Level string `mapstructure:"level" yaml:"level"`
	// Dir receives debug.log. Empty means stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			RootDir:         session.DefaultRoot,
			MirrorToConsole: true,
			Persist:         true,
			PadWidth:        record.DefaultPadWidth,
		},
		Console: ConsoleConfig{
			MaxWidth: 0,
			Color:    true,
		},
		Export: ExportConfig{
			Output:   flatten.DefaultOutput,
			Strict:   false,
			Compress: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Session defaults
	viper.SetDefault("session.root_dir", defaults.Session.RootDir)
	viper.SetDefault("session.mirror_to_console", defaults.Session.MirrorToConsole)
	viper.SetDefault("session.persist", defaults.Session.Persist)
	viper.SetDefault("session.pad_width", defaults.Session.PadWidth)

	// Console defaults
	viper.SetDefault("console.max_width", defaults.Console.MaxWidth)
	viper.SetDefault("console.color", defaults.Console.Color)

	// Export defaults
	viper.SetDefault("export.output", defaults.Export.Output)
	viper.SetDefault("export.strict", defaults.Export.Strict)
	viper.SetDefault("export.compress", defaults.Export.Compress)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "smollog")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smollog"
	}
	return filepath.Join(home, ".config", "smollog")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// SessionOptions converts the session and console sections into options for
// session.New. Collaborators such as the filesystem and logger are left for
// the caller to fill in.
func (c *Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Root = c.Session.RootDir
	opts.MirrorToConsole = c.Session.MirrorToConsole
	opts.Persist = c.Session.Persist
	opts.PadWidth = c.Session.PadWidth
	opts.Color = c.Console.Color
	opts.MaxWidth = c.Console.MaxWidth
	return opts
}

// FlattenOptions converts the export section into options for flatten.New.
func (c *Config) FlattenOptions() flatten.Options {
	return flatten.Options{
		Output:   c.Export.Output,
		Strict:   c.Export.Strict,
		Compress: c.Export.Compress,
	}
}

// NewLogger opens the diagnostics logger described by the logging section.
func (c *Config) NewLogger() (*logging.Logger, error) {
	return logging.NewLogger(c.Logging.Dir, logging.ParseLevel(c.Logging.Level))
}
