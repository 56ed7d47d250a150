package storage

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// SettingsCache keeps recently read guild settings in memory so member and
// message events do not hit the database every time.
type SettingsCache struct {
	store *Store
	cache *cache.Cache
}

func NewSettingsCache(store *Store, ttl time.Duration) *SettingsCache {
	return &SettingsCache{store: store, cache: cache.New(ttl, 2*ttl)}
}

func (c *SettingsCache) Get(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	if cached, ok := c.cache.Get(guildID); ok {
		return cached.(GuildSettings), nil
	}
	settings, err := c.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		return GuildSettings{}, err
	}
	c.cache.SetDefault(guildID, settings)
	return settings, nil
}

func (c *SettingsCache) Upsert(ctx context.Context, settings GuildSettings) error {
	if err := c.store.UpsertGuildSettings(ctx, settings); err != nil {
		return err
	}
	c.cache.Delete(settings.GuildID)
	return nil
}
