package music_player

import (
	"time"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/resolver"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
	"github.com/sglre6355/jukebox/internal/modules/music_player/infrastructure"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	DefaultVolume int           `env:"DEFAULT_VOLUME" envDefault:"100"`
	PlaylistLimit int           `env:"PLAYLIST_LIMIT" envDefault:"50"`

	NotifyRate  float64 `env:"NOTIFY_RATE" envDefault:"1"`
	NotifyBurst int     `env:"NOTIFY_BURST" envDefault:"5"`

	YtdlpEnabled bool   `env:"YTDLP_ENABLED" envDefault:"true"`
	YtdlpProxy   string `env:"YTDLP_PROXY"`

	// DatabasePath enables the play history recorder when set.
	DatabasePath string `env:"DATABASE_PATH"`

	// RedisAddress enables the playback event publisher when set.
	RedisAddress       string `env:"REDIS_ADDRESS"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"jukebox:playback"`
}

// normalize clamps values that would otherwise break the player.
func (c *Config) normalize() {
	if c.PlaylistLimit <= 0 || c.PlaylistLimit > resolver.MaxPlaylistSongs {
		c.PlaylistLimit = resolver.MaxPlaylistSongs
	}
	c.DefaultVolume = max(domain.MinVolume, min(domain.MaxVolume, c.DefaultVolume))
	if c.NotifyRate <= 0 {
		c.NotifyRate = infrastructure.DefaultNotifyRate
	}
	if c.NotifyBurst <= 0 {
		c.NotifyBurst = infrastructure.DefaultNotifyBurst
	}
	if c.RedisChannelPrefix == "" {
		c.RedisChannelPrefix = infrastructure.DefaultRedisChannelPrefix
	}
}
