package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
log_level: debug
card:
  banner_width: 800
  banner_height: 320
  palette_size: 500
  font_paths: ["a.ttf"]
defaults:
  welcome_channel_id: "c1"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LEAVE_CHANNEL_ID", "c2")
	t.Setenv("CARD_FONT_PATHS", "x.ttf, y.otf")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Card.BannerWidth != 800 || cfg.Card.BannerHeight != 320 {
		t.Fatalf("unexpected banner size %dx%d", cfg.Card.BannerWidth, cfg.Card.BannerHeight)
	}
	if cfg.Card.PaletteSize != 64 {
		t.Fatalf("expected palette size reset to 64, got %d", cfg.Card.PaletteSize)
	}
	if cfg.Card.AvatarSize != 142 {
		t.Fatalf("expected default avatar size, got %d", cfg.Card.AvatarSize)
	}
	if len(cfg.Card.FontPaths) != 2 || cfg.Card.FontPaths[1] != "y.otf" {
		t.Fatalf("unexpected font paths %v", cfg.Card.FontPaths)
	}
	if cfg.Defaults.WelcomeChannelID != "c1" || cfg.Defaults.LeaveChannelID != "c2" {
		t.Fatalf("unexpected defaults %+v", cfg.Defaults)
	}
	if len(cfg.LinkFix.Rules) == 0 {
		t.Fatalf("expected default link fix rules")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestBuildLoggerFallsBackToInfo(t *testing.T) {
	logger, err := BuildLogger("verbose")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if logger.Core().Enabled(parseLevel("debug")) {
		t.Fatalf("debug should be disabled at default level")
	}
}
