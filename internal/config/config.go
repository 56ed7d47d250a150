package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string        `yaml:"discord_token"`
	DatabasePath  string        `yaml:"database_path"`
	LogLevel      string        `yaml:"log_level"`
	RetentionDays int           `yaml:"retention_days"`
	Health        HealthConfig  `yaml:"health"`
	Card          CardConfig    `yaml:"card"`
	Fetch         FetchConfig   `yaml:"fetch"`
	Cache         CacheConfig   `yaml:"cache"`
	Defaults      GuildDefaults `yaml:"defaults"`
	LinkFix       LinkFixConfig `yaml:"link_fix"`
	Colors        EmbedColors   `yaml:"embed_colors"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// CardConfig controls the profile card geometry and fonts.
type CardConfig struct {
	BannerWidth    int      `yaml:"banner_width"`
	BannerHeight   int      `yaml:"banner_height"`
	AvatarSize     int      `yaml:"avatar_size"`
	AvatarBorder   int      `yaml:"avatar_border"`
	AvatarInset    int      `yaml:"avatar_inset"`
	TextGap        int      `yaml:"text_gap"`
	LineSpacing    int      `yaml:"line_spacing"`
	DateMargin     int      `yaml:"date_margin"`
	FrameBorder    int      `yaml:"frame_border"`
	FrameRadius    int      `yaml:"frame_radius"`
	FrameAlpha     int      `yaml:"frame_alpha"`
	MistyAlpha     int      `yaml:"misty_alpha"`
	FontPaths      []string `yaml:"font_paths"`
	NameFontSize   float64  `yaml:"name_font_size"`
	HandleFontSize float64  `yaml:"handle_font_size"`
	DateFontSize   float64  `yaml:"date_font_size"`
	PaletteSize    int      `yaml:"palette_size"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
}

type FetchConfig struct {
	TimeoutSeconds int   `yaml:"timeout_seconds"`
	MaxBytes       int64 `yaml:"max_bytes"`
}

type CacheConfig struct {
	SettingsTTLSeconds int `yaml:"settings_ttl_seconds"`
}

// GuildDefaults apply to guilds without a stored settings row.
type GuildDefaults struct {
	WelcomeChannelID     string `yaml:"welcome_channel_id"`
	WelcomeTemplate      string `yaml:"welcome_template"`
	WelcomeImageEnabled  bool   `yaml:"welcome_image_enabled"`
	WelcomeAnimated      bool   `yaml:"welcome_animated"`
	WelcomeBannerURL     string `yaml:"welcome_banner_url"`
	WelcomeInitialRoleID string `yaml:"welcome_initial_role_id"`
	LeaveChannelID       string `yaml:"leave_channel_id"`
	LeaveTemplate        string `yaml:"leave_template"`
	LeaveImageEnabled    bool   `yaml:"leave_image_enabled"`
	LeaveAnimated        bool   `yaml:"leave_animated"`
	LeaveBannerURL       string `yaml:"leave_banner_url"`
	LinkFixEnabled       bool   `yaml:"link_fix_enabled"`
	LinkFixPreserve      bool   `yaml:"link_fix_preserve"`
}

type LinkFixConfig struct {
	WebhookName   string        `yaml:"webhook_name"`
	RateMessages  int           `yaml:"rate_messages"`
	RateWindowSec int           `yaml:"rate_window_seconds"`
	Rules         []LinkFixRule `yaml:"rules"`
}

// LinkFixRule maps a source host to an embed-friendly mirror.
type LinkFixRule struct {
	Host        string `yaml:"host"`
	Replacement string `yaml:"replacement"`
	Label       string `yaml:"label"`
	PathPrefix  string `yaml:"path_prefix"`
}

type EmbedColors struct {
	Welcome int `yaml:"welcome"`
	Leave   int `yaml:"leave"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/greeter.db",
		LogLevel:      "info",
		RetentionDays: 14,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Card:          DefaultCardConfig(),
		Fetch:         FetchConfig{TimeoutSeconds: 10, MaxBytes: 16 << 20},
		Cache:         CacheConfig{SettingsTTLSeconds: 300},
		Defaults: GuildDefaults{
			WelcomeTemplate:     "歡迎 {member} 加入 {guild}！",
			WelcomeImageEnabled: true,
			WelcomeAnimated:     true,
			LeaveTemplate:       "{member} 已離開 {guild}！",
			LeaveImageEnabled:   true,
			LeaveAnimated:       true,
			LinkFixEnabled:      true,
			LinkFixPreserve:     true,
		},
		LinkFix: LinkFixConfig{
			WebhookName:   "AutoLinkFixer",
			RateMessages:  5,
			RateWindowSec: 5,
			Rules:         DefaultLinkFixRules(),
		},
		Colors: EmbedColors{Welcome: 0x2ECC71, Leave: 0xE74C3C},
	}
}

func DefaultCardConfig() CardConfig {
	return CardConfig{
		BannerWidth:    600,
		BannerHeight:   240,
		AvatarSize:     142,
		AvatarBorder:   3,
		AvatarInset:    30,
		TextGap:        20,
		LineSpacing:    15,
		DateMargin:     15,
		FrameBorder:    6,
		FrameRadius:    20,
		FrameAlpha:     100,
		MistyAlpha:     40,
		FontPaths:      []string{"fonts/cute.ttf", "fonts/setofont.ttf"},
		NameFontSize:   65,
		HandleFontSize: 40,
		DateFontSize:   16,
		PaletteSize:    64,
		MaxConcurrent:  2,
	}
}

func DefaultLinkFixRules() []LinkFixRule {
	return []LinkFixRule{
		{Host: "twitter.com", Replacement: "fxtwitter.com", Label: "Twitter/X"},
		{Host: "x.com", Replacement: "fixupx.com", Label: "Twitter/X"},
		{Host: "bsky.app", Replacement: "fxbsky.app", Label: "Bluesky"},
		{Host: "instagram.com", Replacement: "ddinstagram.com", Label: "Instagram"},
		{Host: "youtube.com", Replacement: "koutube.com", Label: "Youtube"},
		{Host: "youtu.be", Replacement: "koutube.com", Label: "Youtube"},
		{Host: "reddit.com", Replacement: "rxddit.com", Label: "Reddit"},
		{Host: "pixiv.net", Replacement: "phixiv.net", Label: "Pixiv"},
		{Host: "open.spotify.com", Replacement: "open.fxspotify.com", Label: "Spotify", PathPrefix: "/track"},
		{Host: "bilibili.com", Replacement: "vxbilibili.com", Label: "Bilibili"},
		{Host: "threads.net", Replacement: "fixthreads.net", Label: "Thread"},
		{Host: "threads.com", Replacement: "fixthreads.net", Label: "Thread"},
		{Host: "mastodon.social", Replacement: "fxmastodon.net", Label: "Mastodon"},
		{Host: "deviantart.com", Replacement: "fixdeviantart.com", Label: "DeviantArt"},
		{Host: "tiktok.com", Replacement: "fixtiktok.com", Label: "Tiktok"},
		{Host: "twitch.tv", Replacement: "fxtwitch.com", Label: "Twitch"},
	}
}

func Load() (Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	normalizeCard(&cfg.Card)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	if paths := envString("CARD_FONT_PATHS", ""); paths != "" {
		cfg.Card.FontPaths = splitList(paths)
	}
	cfg.Card.PaletteSize = envInt("CARD_PALETTE_SIZE", cfg.Card.PaletteSize)
	cfg.Card.MaxConcurrent = envInt("CARD_MAX_CONCURRENT", cfg.Card.MaxConcurrent)
	cfg.Fetch.TimeoutSeconds = envInt("FETCH_TIMEOUT_SECONDS", cfg.Fetch.TimeoutSeconds)
	cfg.Cache.SettingsTTLSeconds = envInt("SETTINGS_TTL_SECONDS", cfg.Cache.SettingsTTLSeconds)
	cfg.Defaults.WelcomeChannelID = envString("WELCOME_CHANNEL_ID", cfg.Defaults.WelcomeChannelID)
	cfg.Defaults.WelcomeImageEnabled = envBool("WELCOME_IMAGE_ENABLED", cfg.Defaults.WelcomeImageEnabled)
	cfg.Defaults.WelcomeAnimated = envBool("WELCOME_ANIMATED", cfg.Defaults.WelcomeAnimated)
	cfg.Defaults.WelcomeBannerURL = envString("WELCOME_BANNER_URL", cfg.Defaults.WelcomeBannerURL)
	cfg.Defaults.WelcomeInitialRoleID = envString("WELCOME_INITIAL_ROLE_ID", cfg.Defaults.WelcomeInitialRoleID)
	cfg.Defaults.LeaveChannelID = envString("LEAVE_CHANNEL_ID", cfg.Defaults.LeaveChannelID)
	cfg.Defaults.LeaveImageEnabled = envBool("LEAVE_IMAGE_ENABLED", cfg.Defaults.LeaveImageEnabled)
	cfg.Defaults.LeaveAnimated = envBool("LEAVE_ANIMATED", cfg.Defaults.LeaveAnimated)
	cfg.Defaults.LeaveBannerURL = envString("LEAVE_BANNER_URL", cfg.Defaults.LeaveBannerURL)
	cfg.Defaults.LinkFixEnabled = envBool("LINK_FIX_ENABLED", cfg.Defaults.LinkFixEnabled)
	cfg.Defaults.LinkFixPreserve = envBool("LINK_FIX_PRESERVE", cfg.Defaults.LinkFixPreserve)
	cfg.Colors.Welcome = envInt("EMBED_COLOR_WELCOME", cfg.Colors.Welcome)
	cfg.Colors.Leave = envInt("EMBED_COLOR_LEAVE", cfg.Colors.Leave)
}

// normalizeCard replaces unusable geometry with the defaults.
func normalizeCard(card *CardConfig) {
	def := DefaultCardConfig()
	if card.BannerWidth <= 0 || card.BannerHeight <= 0 {
		card.BannerWidth, card.BannerHeight = def.BannerWidth, def.BannerHeight
	}
	if card.AvatarSize <= 0 {
		card.AvatarSize = def.AvatarSize
	}
	if card.AvatarBorder < 0 {
		card.AvatarBorder = 0
	}
	if card.PaletteSize < 2 || card.PaletteSize > 256 {
		card.PaletteSize = def.PaletteSize
	}
	if card.MaxConcurrent <= 0 {
		card.MaxConcurrent = 1
	}
	if card.NameFontSize <= 0 {
		card.NameFontSize = def.NameFontSize
	}
	if card.HandleFontSize <= 0 {
		card.HandleFontSize = def.HandleFontSize
	}
	if card.DateFontSize <= 0 {
		card.DateFontSize = def.DateFontSize
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
