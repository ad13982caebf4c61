package domain

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// QueueStore is the authoritative table of guild queues.
type QueueStore interface {
	// GetQueue returns the guild's queue, creating a default one on first use.
	// Concurrent calls for the same guild always return the same queue.
	GetQueue(guildID snowflake.ID) *Queue

	// Delete evicts the guild's queue.
	Delete(guildID snowflake.ID)

	// Len returns the number of tracked guilds.
	Len() int
}

// PlayRecord is one started song in a guild's play history.
type PlayRecord struct {
	GuildID     snowflake.ID
	Title       string
	URL         string
	Source      string
	Duration    time.Duration
	RequestedBy snowflake.ID
	PlayedAt    time.Time
}

// PlayHistory reads recorded plays.
type PlayHistory interface {
	// RecentPlays returns the guild's most recent plays, newest first.
	RecentPlays(ctx context.Context, guildID snowflake.ID, limit int) ([]PlayRecord, error)
}
