package linkfix

import (
	"context"
	"errors"
	"testing"

	"guild-greeter/internal/config"
	"guild-greeter/internal/modules/audit"
	"guild-greeter/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeSession struct {
	hooks      []*discordgo.Webhook
	created    int
	listed     int
	executed   []*discordgo.WebhookParams
	deleted    []string
	executeErr error
}

func (s *fakeSession) ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	s.listed++
	return s.hooks, nil
}

func (s *fakeSession) WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	s.created++
	hook := &discordgo.Webhook{ID: "w-new", Token: "t", Name: name, ChannelID: channelID}
	s.hooks = append(s.hooks, hook)
	return hook, nil
}

func (s *fakeSession) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if s.executeErr != nil {
		return nil, s.executeErr
	}
	s.executed = append(s.executed, data)
	return nil, nil
}

func (s *fakeSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	s.deleted = append(s.deleted, messageID)
	return nil
}

func testSettings() storage.GuildSettings {
	return storage.GuildSettings{GuildID: "g1", LinkFixEnabled: true}
}

func testMessage(id, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "neko", GlobalName: "Neko"},
	}}
}

func newTestModule(rate int) *Module {
	cfg := config.LinkFixConfig{WebhookName: "AutoLinkFixer", RateMessages: rate, RateWindowSec: 60, Rules: config.DefaultLinkFixRules()}
	return New(cfg, audit.NewLogger(nil, zap.NewNop()), zap.NewNop())
}

func TestRewrite(t *testing.T) {
	rules := config.DefaultLinkFixRules()
	settings := testSettings()

	out, changed := Rewrite("see https://www.x.com/a/status/1 now", settings, rules)
	if !changed || out != "see https://fixupx.com/a/status/1 now" {
		t.Fatalf("unexpected rewrite %q", out)
	}

	settings.LinkFixPreserve = true
	out, _ = Rewrite("https://twitter.com/a https://example.com/b", settings, rules)
	if out != "[Twitter/X](https://fxtwitter.com/a) https://example.com/b" {
		t.Fatalf("unexpected preserved rewrite %q", out)
	}

	settings.LinkFixDisabled = []string{"twitter/x"}
	if _, changed := Rewrite("https://twitter.com/a", settings, rules); changed {
		t.Fatalf("disabled platform must not be rewritten")
	}
	if _, changed := Rewrite("no links here", settings, rules); changed {
		t.Fatalf("unexpected change")
	}
}

func TestRewritePathPrefix(t *testing.T) {
	rules := config.DefaultLinkFixRules()
	if out, changed := Rewrite("https://open.spotify.com/track/abc", testSettings(), rules); !changed || out != "https://open.fxspotify.com/track/abc" {
		t.Fatalf("expected track rewrite, got %q", out)
	}
	if _, changed := Rewrite("https://open.spotify.com/album/abc", testSettings(), rules); changed {
		t.Fatalf("albums are not rewritten")
	}
}

func TestHandleMessageReposts(t *testing.T) {
	module := newTestModule(5)
	session := &fakeSession{hooks: []*discordgo.Webhook{{ID: "other", Name: "AutoLinkFixer"}}}

	done, err := module.HandleMessage(context.Background(), session, testMessage("m1", "https://x.com/a"), testSettings())
	if err != nil || !done {
		t.Fatalf("expected repost, got %v %v", done, err)
	}
	if session.created != 1 {
		t.Fatalf("expected webhook created when existing one has no token")
	}
	if len(session.executed) != 1 || session.executed[0].Content != "https://fixupx.com/a" || session.executed[0].Username != "Neko" {
		t.Fatalf("unexpected webhook params %+v", session.executed)
	}
	if len(session.deleted) != 1 || session.deleted[0] != "m1" {
		t.Fatalf("expected original deleted")
	}

	if _, err := module.HandleMessage(context.Background(), session, testMessage("m2", "https://x.com/b"), testSettings()); err != nil {
		t.Fatalf("second repost: %v", err)
	}
	if session.listed != 1 || session.created != 1 {
		t.Fatalf("expected cached webhook reuse, listed=%d created=%d", session.listed, session.created)
	}
}

func TestHandleMessageRestrictions(t *testing.T) {
	module := newTestModule(5)
	session := &fakeSession{}
	ctx := context.Background()

	disabled := testSettings()
	disabled.LinkFixEnabled = false
	if done, _ := module.HandleMessage(ctx, session, testMessage("m1", "https://x.com/a"), disabled); done {
		t.Fatalf("disabled guild must not repost")
	}

	restricted := testSettings()
	restricted.LinkFixChannels = []string{"c2"}
	if done, _ := module.HandleMessage(ctx, session, testMessage("m1", "https://x.com/a"), restricted); done {
		t.Fatalf("channel outside allow-list must not repost")
	}

	bot := testMessage("m1", "https://x.com/a")
	bot.Author.Bot = true
	if done, _ := module.HandleMessage(ctx, session, bot, testSettings()); done {
		t.Fatalf("bot messages must be ignored")
	}
	if len(session.executed) != 0 {
		t.Fatalf("unexpected webhook executions")
	}
}

func TestHandleMessageRateLimit(t *testing.T) {
	module := newTestModule(1)
	session := &fakeSession{}
	ctx := context.Background()
	if done, _ := module.HandleMessage(ctx, session, testMessage("m1", "https://x.com/a"), testSettings()); !done {
		t.Fatalf("expected first repost")
	}
	if done, _ := module.HandleMessage(ctx, session, testMessage("m2", "https://x.com/b"), testSettings()); done {
		t.Fatalf("expected rate limit")
	}
}

func TestHandleMessageExecuteFailureDropsCache(t *testing.T) {
	module := newTestModule(5)
	session := &fakeSession{executeErr: errors.New("unknown webhook")}
	if _, err := module.HandleMessage(context.Background(), session, testMessage("m1", "https://x.com/a"), testSettings()); err == nil {
		t.Fatalf("expected execute error")
	}
	if len(session.deleted) != 0 {
		t.Fatalf("original must stay when repost fails")
	}
	if len(module.webhooks) != 0 {
		t.Fatalf("expected webhook cache cleared")
	}
}
