// Package linkfix reposts messages with social links swapped for
// embed-friendly mirrors.
package linkfix

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guild-greeter/internal/config"
	"guild-greeter/internal/modules/audit"
	"guild-greeter/internal/storage"
	"guild-greeter/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Session is the subset of *discordgo.Session the module calls.
type Session interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Module struct {
	webhookName string
	rules       []config.LinkFixRule
	limiter     *utils.KeyedLimiter
	audit       *audit.Logger
	logger      *zap.Logger

	mu       sync.Mutex
	webhooks map[string]*discordgo.Webhook
}

func New(cfg config.LinkFixConfig, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	name := cfg.WebhookName
	if name == "" {
		name = "AutoLinkFixer"
	}
	window := time.Duration(cfg.RateWindowSec) * time.Second
	return &Module{
		webhookName: name,
		rules:       cfg.Rules,
		limiter:     utils.NewKeyedLimiter(cfg.RateMessages, window),
		audit:       auditLogger,
		logger:      logger,
		webhooks:    make(map[string]*discordgo.Webhook),
	}
}

// Rewrite swaps every enabled link in content for its mirror. The bool is
// false when nothing changed.
func Rewrite(content string, settings storage.GuildSettings, rules []config.LinkFixRule) (string, bool) {
	changed := false
	out := utils.ReplaceURLs(content, func(raw string) string {
		parsed, host, err := utils.SplitHost(raw)
		if err != nil {
			return raw
		}
		rule, ok := matchRule(rules, host, parsed.Path)
		if !ok || utils.ContainsFold(settings.LinkFixDisabled, rule.Label) {
			return raw
		}
		fixed := strings.Replace(raw, parsed.Host, rule.Replacement, 1)
		if fixed == raw {
			return raw
		}
		changed = true
		if settings.LinkFixPreserve {
			return fmt.Sprintf("[%s](%s)", rule.Label, fixed)
		}
		return fixed
	})
	return out, changed
}

func matchRule(rules []config.LinkFixRule, host, path string) (config.LinkFixRule, bool) {
	for _, rule := range rules {
		if !strings.EqualFold(rule.Host, host) {
			continue
		}
		if rule.PathPrefix != "" && !strings.HasPrefix(path, rule.PathPrefix) {
			continue
		}
		return rule, true
	}
	return config.LinkFixRule{}, false
}

// HandleMessage reposts msg through the channel webhook when any link was
// rewritten and deletes the original. It reports whether a repost happened.
func (m *Module) HandleMessage(ctx context.Context, session Session, msg *discordgo.MessageCreate, settings storage.GuildSettings) (bool, error) {
	if msg.Author == nil || msg.Author.Bot || msg.WebhookID != "" {
		return false, nil
	}
	if !settings.LinkFixEnabled {
		return false, nil
	}
	if len(settings.LinkFixChannels) > 0 && !utils.ContainsFold(settings.LinkFixChannels, msg.ChannelID) {
		return false, nil
	}

	fixed, changed := Rewrite(msg.Content, settings, m.rules)
	if !changed {
		return false, nil
	}
	if !m.limiter.Allow(msg.ChannelID, time.Now()) {
		m.logger.Debug("link fix rate limited", zap.String("channel_id", msg.ChannelID))
		return false, nil
	}

	webhook, err := m.webhook(session, msg.ChannelID)
	if err != nil {
		return false, fmt.Errorf("webhook for %s: %w", msg.ChannelID, err)
	}
	params := &discordgo.WebhookParams{
		Content:   fixed,
		Username:  authorName(msg),
		AvatarURL: msg.Author.AvatarURL(""),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if _, err := session.WebhookExecute(webhook.ID, webhook.Token, false, params); err != nil {
		m.forgetWebhook(msg.ChannelID)
		return false, fmt.Errorf("execute webhook: %w", err)
	}
	if err := session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		m.logger.Warn("delete original failed", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID), zap.Error(err))
	}

	m.audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.Author.ID, audit.EventLinkFixed, "channel="+msg.ChannelID)
	return true, nil
}

// webhook returns the named webhook for channelID, creating it on first use.
func (m *Module) webhook(session Session, channelID string) (*discordgo.Webhook, error) {
	m.mu.Lock()
	cached := m.webhooks[channelID]
	m.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	hooks, err := session.ChannelWebhooks(channelID)
	if err != nil {
		return nil, err
	}
	var found *discordgo.Webhook
	for _, hook := range hooks {
		// Hooks created by other applications have no token.
		if hook != nil && hook.Name == m.webhookName && hook.Token != "" {
			found = hook
			break
		}
	}
	if found == nil {
		found, err = session.WebhookCreate(channelID, m.webhookName, "")
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.webhooks[channelID] = found
	m.mu.Unlock()
	return found, nil
}

func (m *Module) forgetWebhook(channelID string) {
	m.mu.Lock()
	delete(m.webhooks, channelID)
	m.mu.Unlock()
}

func authorName(msg *discordgo.MessageCreate) string {
	if msg.Member != nil && msg.Member.Nick != "" {
		return msg.Member.Nick
	}
	if msg.Author.GlobalName != "" {
		return msg.Author.GlobalName
	}
	return msg.Author.Username
}
