// Package greeting posts welcome and leave embeds with a rendered profile card.
package greeting

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"guild-greeter/internal/card"
	"guild-greeter/internal/modules/audit"
	"guild-greeter/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const dateLayout = "2006/01/02 15:04"

type Kind int

const (
	Welcome Kind = iota
	Leave
)

func (k Kind) String() string {
	if k == Leave {
		return "leave"
	}
	return "welcome"
}

// Session is the subset of *discordgo.Session the module calls.
type Session interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Renderer interface {
	Render(ctx context.Context, req card.Request) *card.Card
}

type Fetcher interface {
	Pair(ctx context.Context, avatarURL, bannerURL string) (avatar, banner []byte, err error)
}

// Colors are embed colours per event kind.
type Colors struct {
	Welcome int
	Leave   int
}

// Event is one member join or leave.
type Event struct {
	Kind      Kind
	GuildID   string
	GuildName string
	Member    *discordgo.Member
	At        time.Time
}

// Message is everything BuildMessage needs.
type Message struct {
	Kind           Kind
	Template       string
	MemberName     string
	GuildName      string
	AvatarURL      string
	CreatedAt      time.Time
	At             time.Time
	Color          int
	BotName        string
	BotAvatarURL   string
	Card           *card.Card
	ImageRequested bool
}

type Module struct {
	renderer Renderer
	fetcher  Fetcher
	audit    *audit.Logger
	colors   Colors
	logger   *zap.Logger
}

func New(renderer Renderer, fetcher Fetcher, auditLogger *audit.Logger, colors Colors, logger *zap.Logger) *Module {
	return &Module{renderer: renderer, fetcher: fetcher, audit: auditLogger, colors: colors, logger: logger}
}

// Handle sends the greeting for event. The bot user supplies the footer.
func (m *Module) Handle(ctx context.Context, session Session, bot *discordgo.User, event Event, settings storage.GuildSettings) error {
	if event.Member == nil || event.Member.User == nil {
		return nil
	}
	user := event.Member.User
	opts := optionsFor(event.Kind, settings)

	if event.Kind == Welcome && settings.WelcomeInitialRoleID != "" {
		if err := session.GuildMemberRoleAdd(event.GuildID, user.ID, settings.WelcomeInitialRoleID); err != nil {
			m.logger.Error("initial role assignment failed",
				zap.String("guild_id", event.GuildID),
				zap.String("user_id", user.ID),
				zap.String("role_id", settings.WelcomeInitialRoleID),
				zap.Error(err))
		}
	}

	if opts.channelID == "" {
		m.logger.Debug("greeting disabled", zap.String("guild_id", event.GuildID), zap.Stringer("kind", event.Kind))
		return nil
	}

	name := displayName(event.Member)
	avatarURL := user.AvatarURL("1024")
	createdAt, _ := discordgo.SnowflakeTimestamp(user.ID)
	createdAt = createdAt.UTC()

	var rendered *card.Card
	if opts.imageEnabled {
		rendered = m.renderCard(ctx, session, event, opts, name, avatarURL, createdAt)
	}

	msg := Message{
		Kind:           event.Kind,
		Template:       opts.template,
		MemberName:     name,
		GuildName:      event.GuildName,
		AvatarURL:      avatarURL,
		CreatedAt:      createdAt,
		At:             event.At,
		Color:          m.color(event.Kind),
		Card:           rendered,
		ImageRequested: opts.imageEnabled,
	}
	if bot != nil {
		msg.BotName = bot.Username
		msg.BotAvatarURL = bot.AvatarURL("")
	}

	if _, err := session.ChannelMessageSendComplex(opts.channelID, BuildMessage(msg)); err != nil {
		m.audit.Log(ctx, audit.LevelWarn, event.GuildID, user.ID, audit.EventGreetingFailed,
			fmt.Sprintf("kind=%s channel=%s err=%v", event.Kind, opts.channelID, err))
		return fmt.Errorf("send %s message: %w", event.Kind, err)
	}

	detail := fmt.Sprintf("kind=%s channel=%s card=none", event.Kind, opts.channelID)
	if rendered != nil {
		detail = fmt.Sprintf("kind=%s channel=%s card=%s", event.Kind, opts.channelID, rendered.Kind)
	}
	m.audit.Log(ctx, audit.LevelInfo, event.GuildID, user.ID, audit.EventGreetingSent, detail)
	return nil
}

func (m *Module) renderCard(ctx context.Context, session Session, event Event, opts eventOptions, name, avatarURL string, createdAt time.Time) *card.Card {
	user := event.Member.User
	bannerURL := opts.bannerURL
	// Member payloads carry no banner hash, so the full user is fetched.
	if full, err := session.User(user.ID); err != nil {
		m.logger.Warn("fetch user failed", zap.String("user_id", user.ID), zap.Error(err))
	} else if url := full.BannerURL("1024"); url != "" {
		bannerURL = url
	}
	if bannerURL == "" {
		bannerURL = avatarURL
	}

	avatar, banner, err := m.fetcher.Pair(ctx, avatarURL, bannerURL)
	if err != nil {
		m.logger.Error("card source download failed",
			zap.String("guild_id", event.GuildID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil
	}

	return m.renderer.Render(ctx, card.Request{
		Banner: banner,
		Avatar: avatar,
		Profile: card.Profile{
			DisplayName:   name,
			Username:      user.Username,
			Discriminator: user.Discriminator,
			Date:          formatDate(createdAt),
		},
		Animated: opts.animated,
	})
}

func (m *Module) color(kind Kind) int {
	if kind == Leave {
		return m.colors.Leave
	}
	return m.colors.Welcome
}

// BuildMessage assembles the embed and optional attachment for a greeting.
func BuildMessage(msg Message) *discordgo.MessageSend {
	title := strings.NewReplacer("{member}", msg.MemberName, "{guild}", msg.GuildName).Replace(msg.Template)
	embed := &discordgo.MessageEmbed{
		Title:     title,
		Color:     msg.Color,
		Timestamp: msg.At.UTC().Format(time.RFC3339),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    msg.MemberName,
			IconURL: msg.AvatarURL,
		},
	}
	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}

	if msg.Card != nil {
		filename := msg.Card.Filename(msg.Kind.String() + "_profile")
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + filename}
		contentType := "image/png"
		if msg.Card.Kind == card.Animated {
			contentType = "image/gif"
		}
		send.Files = []*discordgo.File{{
			Name:        filename,
			ContentType: contentType,
			Reader:      bytes.NewReader(msg.Card.Data),
		}}
	} else if msg.ImageRequested {
		noun := "歡迎"
		if msg.Kind == Leave {
			noun = "離開"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("⚠️ **無法生成%s橫幅**", noun),
			Value: fmt.Sprintf("請確保用戶有設定橫幅，或伺服器有設定自定義%s橫幅。若無，將使用頭像作為替代橫幅。", noun),
		})
	}

	atName := "📥 **加入伺服器於**"
	if msg.Kind == Leave {
		atName = "📤 **離開伺服器於**"
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "📅 **帳號創建於**", Value: formatDate(msg.CreatedAt), Inline: true},
		&discordgo.MessageEmbedField{Name: atName, Value: formatDate(msg.At), Inline: true},
	)
	if msg.BotName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("由 %s 提供服務", msg.BotName),
			IconURL: msg.BotAvatarURL,
		}
	}
	return send
}

type eventOptions struct {
	channelID    string
	template     string
	imageEnabled bool
	animated     bool
	bannerURL    string
}

func optionsFor(kind Kind, settings storage.GuildSettings) eventOptions {
	if kind == Leave {
		return eventOptions{
			channelID:    settings.LeaveChannelID,
			template:     settings.LeaveTemplate,
			imageEnabled: settings.LeaveImageEnabled,
			animated:     settings.LeaveAnimated,
			bannerURL:    settings.LeaveBannerURL,
		}
	}
	return eventOptions{
		channelID:    settings.WelcomeChannelID,
		template:     settings.WelcomeTemplate,
		imageEnabled: settings.WelcomeImageEnabled,
		animated:     settings.WelcomeAnimated,
		bannerURL:    settings.WelcomeBannerURL,
	}
}

// displayName prefers the guild nickname, then the global name.
func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "未知日期"
	}
	return t.UTC().Format(dateLayout)
}
