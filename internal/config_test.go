package internal

import (
	"log/slog"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestApplicationConfig_Level(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		cfg := ApplicationConfig{LogLevel: in}
		if got := cfg.Level(); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestApplicationConfig_InvalidLevel(t *testing.T) {
	cfg := ApplicationConfig{LogLevel: "loud"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid log level should fail validation")
	}
}

func TestVaultConfig_RequiresPaths(t *testing.T) {
	cfg := VaultConfig{Path: "./vault"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing attachments/backup dirs should fail")
	}
}

func TestTMDBConfig_RegionLength(t *testing.T) {
	cfg := TMDBConfig{Region: "USA"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("three-letter region should fail")
	}
	cfg.Region = "DE"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("two-letter region should pass: %v", err)
	}
}

func TestNeedsInfoConfig_RejectsHashPrefix(t *testing.T) {
	cfg := NeedsInfoConfig{Tag: "#needsinfo"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("tag with # prefix should fail")
	}
}

func TestFullConfig_NestedValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.NeedsInfo.Tag = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch empty tag")
	}
}
