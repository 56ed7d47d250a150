package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db       *sql.DB
	postgres bool
}

// GuildSettings is the per-guild greeting and link fixing configuration.
type GuildSettings struct {
	GuildID              string
	WelcomeChannelID     string
	WelcomeTemplate      string
	WelcomeImageEnabled  bool
	WelcomeAnimated      bool
	WelcomeBannerURL     string
	WelcomeInitialRoleID string
	LeaveChannelID       string
	LeaveTemplate        string
	LeaveImageEnabled    bool
	LeaveAnimated        bool
	LeaveBannerURL       string
	LinkFixEnabled       bool
	LinkFixPreserve      bool
	LinkFixChannels      []string
	LinkFixDisabled      []string
}

type AuditLog struct {
	GuildID   string
	UserID    string
	Level     string
	Event     string
	Details   string
	CreatedAt time.Time
}

// New opens dsn. postgres:// and postgresql:// DSNs use pgx; anything else is
// a SQLite path.
func New(dsn string) (*Store, error) {
	driver, postgres := "sqlite", false
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, postgres = "pgx", true
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if !postgres {
		// :memory: databases are per connection.
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, postgres: postgres}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT welcome_channel_id, welcome_template, welcome_image_enabled, welcome_animated,
		welcome_banner_url, welcome_initial_role_id, leave_channel_id, leave_template,
		leave_image_enabled, leave_animated, leave_banner_url, link_fix_enabled,
		link_fix_preserve, link_fix_channels, link_fix_disabled
		FROM guild_settings WHERE guild_id = ?`), guildID)

	result := defaults
	result.GuildID = guildID

	var welcomeImage, welcomeAnimated, leaveImage, leaveAnimated, linkFix, preserve int
	var channels, disabled string
	err := row.Scan(
		&result.WelcomeChannelID,
		&result.WelcomeTemplate,
		&welcomeImage,
		&welcomeAnimated,
		&result.WelcomeBannerURL,
		&result.WelcomeInitialRoleID,
		&result.LeaveChannelID,
		&result.LeaveTemplate,
		&leaveImage,
		&leaveAnimated,
		&result.LeaveBannerURL,
		&linkFix,
		&preserve,
		&channels,
		&disabled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.WelcomeImageEnabled = welcomeImage == 1
	result.WelcomeAnimated = welcomeAnimated == 1
	result.LeaveImageEnabled = leaveImage == 1
	result.LeaveAnimated = leaveAnimated == 1
	result.LinkFixEnabled = linkFix == 1
	result.LinkFixPreserve = preserve == 1
	result.LinkFixChannels = splitList(channels)
	result.LinkFixDisabled = splitList(disabled)
	if result.WelcomeTemplate == "" {
		result.WelcomeTemplate = defaults.WelcomeTemplate
	}
	if result.LeaveTemplate == "" {
		result.LeaveTemplate = defaults.LeaveTemplate
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO guild_settings (
			guild_id, welcome_channel_id, welcome_template, welcome_image_enabled, welcome_animated,
			welcome_banner_url, welcome_initial_role_id, leave_channel_id, leave_template,
			leave_image_enabled, leave_animated, leave_banner_url, link_fix_enabled,
			link_fix_preserve, link_fix_channels, link_fix_disabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			welcome_channel_id = excluded.welcome_channel_id,
			welcome_template = excluded.welcome_template,
			welcome_image_enabled = excluded.welcome_image_enabled,
			welcome_animated = excluded.welcome_animated,
			welcome_banner_url = excluded.welcome_banner_url,
			welcome_initial_role_id = excluded.welcome_initial_role_id,
			leave_channel_id = excluded.leave_channel_id,
			leave_template = excluded.leave_template,
			leave_image_enabled = excluded.leave_image_enabled,
			leave_animated = excluded.leave_animated,
			leave_banner_url = excluded.leave_banner_url,
			link_fix_enabled = excluded.link_fix_enabled,
			link_fix_preserve = excluded.link_fix_preserve,
			link_fix_channels = excluded.link_fix_channels,
			link_fix_disabled = excluded.link_fix_disabled
	`),
		settings.GuildID,
		settings.WelcomeChannelID,
		settings.WelcomeTemplate,
		boolToInt(settings.WelcomeImageEnabled),
		boolToInt(settings.WelcomeAnimated),
		settings.WelcomeBannerURL,
		settings.WelcomeInitialRoleID,
		settings.LeaveChannelID,
		settings.LeaveTemplate,
		boolToInt(settings.LeaveImageEnabled),
		boolToInt(settings.LeaveAnimated),
		settings.LeaveBannerURL,
		boolToInt(settings.LinkFixEnabled),
		boolToInt(settings.LinkFixPreserve),
		strings.Join(settings.LinkFixChannels, ","),
		strings.Join(settings.LinkFixDisabled, ","),
	)
	return err
}

func (s *Store) AddAuditLog(ctx context.Context, log AuditLog) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_logs (guild_id, user_id, level, event, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), log.GuildID, log.UserID, log.Level, log.Event, log.Details, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT guild_id, user_id, level, event, details, created_at
		FROM audit_logs
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		var created int64
		if err := rows.Scan(&log.GuildID, &log.UserID, &log.Level, &log.Event, &log.Details, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) CleanupAuditLogs(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM audit_logs WHERE created_at < ?`), cutoff.Unix())
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
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

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
