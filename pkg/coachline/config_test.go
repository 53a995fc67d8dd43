package coachline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bridge.Addr != ":8080" || cfg.Bridge.StreamPath != "/stream" {
		t.Fatalf("unexpected bridge defaults: %+v", cfg.Bridge)
	}
	if cfg.Speech.Model != "nova-2-phonecall" || cfg.Speech.MaxConnectAttempts != 5 {
		t.Fatalf("unexpected speech defaults: %+v", cfg.Speech)
	}
	rc := cfg.Coach.RunnerConfig()
	if rc.Quiet != 3*time.Second || rc.Guard != 500*time.Millisecond {
		t.Fatalf("unexpected runner config: %+v", rc)
	}
	sc := cfg.Speech.SessionConfig()
	if sc.ConnectBackoff != 250*time.Millisecond {
		t.Fatalf("unexpected session config: %+v", sc)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SPEECH_KEY", "sk-123")
	t.Setenv("TEST_ANALYZER_KEY", "oa-456")
	path := writeConfig(t, `
speech:
  api_key: ${TEST_SPEECH_KEY}
analyzer:
  provider: openai
  settings:
    api_key: ${TEST_ANALYZER_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Speech.APIKey != "sk-123" {
		t.Fatalf("expected speech key expanded, got %q", cfg.Speech.APIKey)
	}
	if got := cfg.Analyzer.Settings["api_key"]; got != "oa-456" {
		t.Fatalf("expected analyzer key expanded, got %v", got)
	}
}

func TestLoadRejectsBadGuard(t *testing.T) {
	path := writeConfig(t, `
coach:
  quiet_ms: 1000
  guard_ms: 1000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for guard >= quiet")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
