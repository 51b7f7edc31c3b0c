package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Bot struct {
		Prefix string   `koanf:"command_prefix"`
		Owners []string `koanf:"owners"`
	} `koanf:"bot"`
	Session struct {
		Reconnect struct {
			BaseDelay time.Duration `koanf:"base_delay"`
			MaxDelay  time.Duration `koanf:"max_delay"`
		} `koanf:"reconnect"`
	} `koanf:"session"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
bot:
  command_prefix: "!"
  owners: ["94718461889", "94700000000"]
session:
  reconnect:
    base_delay: 2s
`)
	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bot.Prefix != "!" {
		t.Errorf("prefix = %q, want !", cfg.Bot.Prefix)
	}
	if len(cfg.Bot.Owners) != 2 {
		t.Errorf("owners = %v", cfg.Bot.Owners)
	}
	if cfg.Session.Reconnect.BaseDelay != 2*time.Second {
		t.Errorf("base_delay = %v, want 2s", cfg.Session.Reconnect.BaseDelay)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	if err := NewLoader().LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() of a missing file should fail")
	}
	if err := NewLoader().LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
	bad := writeConfig(t, "bot: [unclosed")
	if err := NewLoader().LoadFile(bad); err == nil {
		t.Error("LoadFile() of invalid YAML should fail")
	}
}

func TestLoader_LoadEnv_NestedKeys(t *testing.T) {
	t.Setenv("FERGANDO_SESSION__RECONNECT__MAX_DELAY", "90s")
	t.Setenv("FERGANDO_BOT__COMMAND_PREFIX", "#")
	t.Setenv("FERGANDO_LOG__LEVEL", "debug")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatal(err)
	}
	if got := l.GetString("session.reconnect.max_delay"); got != "90s" {
		t.Errorf("session.reconnect.max_delay = %q, want 90s", got)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Session.Reconnect.MaxDelay != 90*time.Second || cfg.Bot.Prefix != "#" || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
bot:
  command_prefix: "!"
log:
  level: warn
`)
	t.Setenv("FERGANDO_LOG__LEVEL", "error")

	var cfg testConfig
	cfg.Bot.Prefix = "."
	cfg.Session.Reconnect.BaseDelay = 5 * time.Second

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Bot.Prefix != "!" {
		t.Errorf("file should override default, prefix = %q", cfg.Bot.Prefix)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("env should override file, level = %q", cfg.Log.Level)
	}
	if cfg.Session.Reconnect.BaseDelay != 5*time.Second {
		t.Errorf("unset key should keep its default, base_delay = %v", cfg.Session.Reconnect.BaseDelay)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"log.level": "debug", "bot.command_prefix": "/"}); err != nil {
		t.Fatal(err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Bot.Prefix != "/" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(l.Keys()) != 2 {
		t.Errorf("Keys() = %v", l.Keys())
	}
}
