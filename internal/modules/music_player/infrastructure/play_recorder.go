package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// recorderTimeout bounds a single database write.
const recorderTimeout = 5 * time.Second

// PlayRecorder stores started songs in a SQLite database.
type PlayRecorder struct {
	db *sql.DB
}

// OpenPlayRecorder opens the database at path and creates the schema.
func OpenPlayRecorder(ctx context.Context, path string) (*PlayRecorder, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open play history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = db.ExecContext(initCtx, `CREATE TABLE IF NOT EXISTS plays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		source TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		requested_by TEXT,
		played_at DATETIME NOT NULL
	)`)
	if err == nil {
		_, err = db.ExecContext(initCtx, `CREATE INDEX IF NOT EXISTS plays_guild_played_at ON plays (guild_id, played_at)`)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create play history schema: %w", err)
	}

	return &PlayRecorder{db: db}, nil
}

// HandlePlaybackEvent records song_started events and ignores the rest.
func (r *PlayRecorder) HandlePlaybackEvent(event domain.PlaybackEvent) error {
	if event.Type != domain.EventSongStarted || event.Song == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()

	song := event.Song
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plays (guild_id, title, url, source, duration_ms, requested_by, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.GuildID.String(),
		song.Title,
		song.URL,
		song.SourceName,
		song.Duration.Milliseconds(),
		song.RequestedBy.String(),
		event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	slog.Debug("recorded play", "guild", event.GuildID, "title", song.Title)
	return nil
}

// RecentPlays returns the guild's most recent plays, newest first.
func (r *PlayRecorder) RecentPlays(ctx context.Context, guildID snowflake.ID, limit int) ([]domain.PlayRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title, url, source, duration_ms, requested_by, played_at
		FROM plays WHERE guild_id = ? ORDER BY played_at DESC, id DESC LIMIT ?`,
		guildID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.PlayRecord
	for rows.Next() {
		var (
			rec         domain.PlayRecord
			source      sql.NullString
			durationMS  int64
			requestedBy sql.NullString
		)
		if err := rows.Scan(&rec.Title, &rec.URL, &source, &durationMS, &requestedBy, &rec.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		rec.GuildID = guildID
		rec.Source = source.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if requestedBy.Valid {
			rec.RequestedBy, _ = snowflake.Parse(requestedBy.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (r *PlayRecorder) Close() error {
	return r.db.Close()
}

// Ensure PlayRecorder implements ports.PlaybackEventHandler and domain.PlayHistory.
var (
	_ ports.PlaybackEventHandler = (*PlayRecorder)(nil)
	_ domain.PlayHistory         = (*PlayRecorder)(nil)
)
