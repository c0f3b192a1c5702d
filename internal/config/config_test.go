package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/smollog/internal/flatten"
	"github.com/Iron-Ham/smollog/internal/logging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Session.RootDir != ".logs" {
		t.Errorf("Session.RootDir = %q, want %q", cfg.Session.RootDir, ".logs")
	}
	if !cfg.Session.MirrorToConsole {
		t.Error("Session.MirrorToConsole should be true by default")
	}
	if !cfg.Session.Persist {
		t.Error("Session.Persist should be true by default")
	}
	if cfg.Session.PadWidth != 3 {
		t.Errorf("Session.PadWidth = %d, want 3", cfg.Session.PadWidth)
	}

	if cfg.Console.MaxWidth != 0 {
		t.Errorf("Console.MaxWidth = %d, want 0", cfg.Console.MaxWidth)
	}
	if !cfg.Console.Color {
		t.Error("Console.Color should be true by default")
	}

	if cfg.Export.Output != "logs.tsv" {
		t.Errorf("Export.Output = %q, want %q", cfg.Export.Output, "logs.tsv")
	}
	if cfg.Export.Strict {
		t.Error("Export.Strict should be false by default")
	}
	if cfg.Export.Compress {
		t.Error("Export.Compress should be false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/smollog" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/smollog")
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home := t.TempDir()
		t.Setenv("HOME", home)

		want := filepath.Join(home, ".config", "smollog")
		if got := ConfigDir(); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got := ConfigFile(); got != "/custom/config/smollog/config.yaml" {
		t.Errorf("ConfigFile() = %q", got)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Export.Output != flatten.DefaultOutput {
		t.Errorf("Get().Export.Output = %q, want %q", cfg.Export.Output, flatten.DefaultOutput)
	}
}

func TestLoad(t *testing.T) {
	t.Run("overrides are applied", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("session.pad_width", 5)
		viper.Set("export.strict", true)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Session.PadWidth != 5 {
			t.Errorf("Session.PadWidth = %d, want 5", cfg.Session.PadWidth)
		}
		if !cfg.Export.Strict {
			t.Error("Export.Strict should be true")
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("session.pad_width", 0)

		if _, err := Load(); err == nil {
			t.Fatal("Load() should reject pad_width 0")
		}
		if got := Get(); got.Session.PadWidth != 3 {
			t.Errorf("Get() should fall back to defaults, got pad width %d", got.Session.PadWidth)
		}
	})
}

func TestConfig_SessionOptions(t *testing.T) {
	cfg := Default()
	cfg.Session.RootDir = "/tmp/trace"
	cfg.Session.Persist = false
	cfg.Session.PadWidth = 6
	cfg.Console.Color = false
	cfg.Console.MaxWidth = 80

	opts := cfg.SessionOptions()
	if opts.Root != "/tmp/trace" {
		t.Errorf("Root = %q", opts.Root)
	}
	if opts.Persist {
		t.Error("Persist should follow the config")
	}
	if !opts.MirrorToConsole {
		t.Error("MirrorToConsole should follow the config")
	}
	if opts.PadWidth != 6 {
		t.Errorf("PadWidth = %d, want 6", opts.PadWidth)
	}
	if opts.Color {
		t.Error("Color should follow the config")
	}
	if opts.MaxWidth != 80 {
		t.Errorf("MaxWidth = %d, want 80", opts.MaxWidth)
	}
}

func TestConfig_FlattenOptions(t *testing.T) {
	cfg := Default()
	cfg.Export.Output = "trace.tsv"
	cfg.Export.Compress = true

	opts := cfg.FlattenOptions()
	if opts.Output != "trace.tsv" || !opts.Compress || opts.Strict {
		t.Errorf("FlattenOptions() = %+v", opts)
	}
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Dir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Debug("hello")
	if _, err := os.Stat(filepath.Join(cfg.Logging.Dir, logging.FileName)); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
