package bot

import (
	"context"
	"sync"
	"time"

	"guild-greeter/internal/card"
	"guild-greeter/internal/config"
	"guild-greeter/internal/fetch"
	"guild-greeter/internal/modules/audit"
	"guild-greeter/internal/modules/greeting"
	"guild-greeter/internal/modules/linkfix"
	"guild-greeter/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *storage.Store
	settings *storage.SettingsCache
	audit    *audit.Logger
	session  *discordgo.Session
	greeting *greeting.Module
	linkfix  *linkfix.Module

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, renderer *card.Renderer, fetcher *fetch.Client, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	ttl := time.Duration(cfg.Cache.SettingsTTLSeconds) * time.Second
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		settings: storage.NewSettingsCache(store, ttl),
		audit:    auditLogger,
		session:  session,
		stop:     make(chan struct{}),
	}
	colors := greeting.Colors{Welcome: cfg.Colors.Welcome, Leave: cfg.Colors.Leave}
	b.greeting = greeting.New(renderer, fetcher, auditLogger, colors, logger.Named("greeting"))
	b.linkfix = linkfix.New(cfg.LinkFix, auditLogger, logger.Named("linkfix"))

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onMessageCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	b.startRetentionCleanup()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	b.greet(session, greeting.Welcome, event.GuildID, event.Member)
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	b.greet(session, greeting.Leave, event.GuildID, event.Member)
}

func (b *Bot) greet(session *discordgo.Session, kind greeting.Kind, guildID string, member *discordgo.Member) {
	if !greetable(member) {
		return
	}
	ctx := context.Background()
	settings := b.guildSettings(ctx, guildID)
	event := greeting.Event{
		Kind:      kind,
		GuildID:   guildID,
		GuildName: b.guildName(session, guildID),
		Member:    member,
		At:        time.Now(),
	}
	var self *discordgo.User
	if session.State != nil {
		self = session.State.User
	}
	if err := b.greeting.Handle(ctx, session, self, event, settings); err != nil {
		b.logger.Error("greeting failed", zap.String("guild_id", guildID), zap.Stringer("kind", kind), zap.Error(err))
	}
}

// greetable reports whether member carries a user. Bot accounts are greeted
// like everyone else.
func greetable(member *discordgo.Member) bool {
	return member != nil && member.User != nil
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	settings := b.guildSettings(ctx, msg.GuildID)
	if _, err := b.linkfix.HandleMessage(ctx, session, msg, settings); err != nil {
		b.logger.Warn("link fix failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func (b *Bot) guildName(session *discordgo.Session, guildID string) string {
	if session.State == nil {
		return ""
	}
	guild, err := session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return guild.Name
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := guildDefaults(b.cfg.Defaults, guildID)
	settings, err := b.settings.Get(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	return settings
}

func guildDefaults(d config.GuildDefaults, guildID string) storage.GuildSettings {
	return storage.GuildSettings{
		GuildID:              guildID,
		WelcomeChannelID:     d.WelcomeChannelID,
		WelcomeTemplate:      d.WelcomeTemplate,
		WelcomeImageEnabled:  d.WelcomeImageEnabled,
		WelcomeAnimated:      d.WelcomeAnimated,
		WelcomeBannerURL:     d.WelcomeBannerURL,
		WelcomeInitialRoleID: d.WelcomeInitialRoleID,
		LeaveChannelID:       d.LeaveChannelID,
		LeaveTemplate:        d.LeaveTemplate,
		LeaveImageEnabled:    d.LeaveImageEnabled,
		LeaveAnimated:        d.LeaveAnimated,
		LeaveBannerURL:       d.LeaveBannerURL,
		LinkFixEnabled:       d.LinkFixEnabled,
		LinkFixPreserve:      d.LinkFixPreserve,
	}
}

func (b *Bot) startRetentionCleanup() {
	if b.store == nil || b.cfg.RetentionDays <= 0 {
		return
	}
	go func() {
		b.cleanupAuditLogs()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				b.cleanupAuditLogs()
			}
		}
	}()
}

func (b *Bot) cleanupAuditLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays); err != nil {
		b.logger.Warn("audit retention cleanup failed", zap.Error(err))
	}
}
