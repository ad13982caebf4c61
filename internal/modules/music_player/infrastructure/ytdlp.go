package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// ytdlpFields is the tab separated metadata printed for each entry.
const ytdlpFields = "%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(extractor_key)s"

// ytdlpFlatFields is the metadata available for flat playlist entries.
const ytdlpFlatFields = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(id)s\t%(ie_key)s"

// YtdlpConfig configures yt-dlp invocations.
type YtdlpConfig struct {
	Proxy         string
	PlaylistLimit int
}

func (c YtdlpConfig) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()

	if c.Proxy != "" {
		cmd.Proxy(c.Proxy)
	}
	return cmd
}

// YtdlpLookup resolves links with yt-dlp's extractors.
// It covers sites Lavalink has no source manager for.
type YtdlpLookup struct {
	config YtdlpConfig
}

// NewYtdlpLookup creates a new YtdlpLookup.
func NewYtdlpLookup(config YtdlpConfig) *YtdlpLookup {
	if config.PlaylistLimit <= 0 {
		config.PlaylistLimit = 50
	}
	return &YtdlpLookup{config: config}
}

func (l *YtdlpLookup) Name() string { return "ytdlp" }

// Supports reports true for links only. Free-text search goes to the search providers.
func (l *YtdlpLookup) Supports(kind domain.QueryKind) bool {
	return kind == domain.QueryKindTrack || kind == domain.QueryKindPlaylist
}

// Lookup extracts metadata for a link.
func (l *YtdlpLookup) Lookup(ctx context.Context, query domain.SearchQuery) ([]domain.Song, error) {
	if query.Kind == domain.QueryKindPlaylist {
		res, err := l.config.command().
			FlatPlaylist().
			Print(ytdlpFlatFields).
			PlaylistItems(fmt.Sprintf("1-%d", l.config.PlaylistLimit)).
			Run(ctx, "--yes-playlist", query.Query)
		if err != nil {
			return nil, fmt.Errorf("yt-dlp playlist failed: %w", err)
		}
		return parseYtdlpFlatEntries(res.Stdout), nil
	}

	res, err := l.config.command().
		NoPlaylist().
		Print(ytdlpFields).
		Run(ctx, "--skip-download", query.Query)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata failed: %w", err)
	}
	return parseYtdlpEntries(res.Stdout), nil
}

// YtdlpStreamProvider resolves a direct audio URL with yt-dlp for Lavalink's HTTP source.
type YtdlpStreamProvider struct {
	config YtdlpConfig
}

// NewYtdlpStreamProvider creates a new YtdlpStreamProvider.
func NewYtdlpStreamProvider(config YtdlpConfig) *YtdlpStreamProvider {
	return &YtdlpStreamProvider{config: config}
}

func (p *YtdlpStreamProvider) Name() string { return "ytdlp" }

// Locate extracts the best audio format URL for the song.
func (p *YtdlpStreamProvider) Locate(ctx context.Context, song domain.Song) (ports.StreamLocator, error) {
	if song.URL == "" {
		return ports.StreamLocator{}, ErrNoStreamSource
	}

	res, err := p.config.command().
		Format("bestaudio[ext=webm]/bestaudio").
		NoPlaylist().
		Print("%(url)s").
		Run(ctx, "--skip-download", song.URL)
	if err != nil {
		return ports.StreamLocator{}, fmt.Errorf("yt-dlp stream failed: %w", err)
	}

	url := firstLine(res.Stdout)
	if url == "" {
		return ports.StreamLocator{}, ErrNoStreamSource
	}
	return ports.StreamLocator{Provider: p.Name(), Identifier: url}, nil
}

func parseYtdlpEntries(stdout string) []domain.Song {
	var songs []domain.Song
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 6 || fields[0] == "" {
			continue
		}
		duration := parseYtdlpDuration(fields[3])
		songs = append(songs, domain.Song{
			Title:        fields[1],
			URL:          fields[0],
			Duration:     duration,
			ThumbnailURL: ytdlpValue(fields[4]),
			Author:       ytdlpValue(fields[2]),
			SourceName:   fields[5],
			IsStream:     duration == 0,
		})
	}
	return songs
}

func parseYtdlpFlatEntries(stdout string) []domain.Song {
	var songs []domain.Song
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			continue
		}

		url := fields[0]
		source := ytdlpValue(fields[5])
		// Flat YouTube entries carry a bare id in place of a URL
		if strings.EqualFold(source, "youtube") {
			if id := ytdlpValue(fields[4]); id != "" {
				url = "https://www.youtube.com/watch?v=" + id
			}
		}
		if ytdlpValue(url) == "" {
			continue
		}

		songs = append(songs, domain.Song{
			Title:      fields[1],
			URL:        url,
			Duration:   parseYtdlpDuration(fields[3]),
			Author:     ytdlpValue(fields[2]),
			SourceName: source,
		})
	}
	return songs
}

// parseYtdlpDuration parses seconds as printed by yt-dlp, e.g. "213" or "213.0".
func parseYtdlpDuration(s string) time.Duration {
	seconds, err := strconv.ParseFloat(ytdlpValue(s), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// ytdlpValue maps yt-dlp's "NA" placeholder to an empty string.
func ytdlpValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// Ensure the yt-dlp adapters implement their ports.
var (
	_ ports.LookupProvider = (*YtdlpLookup)(nil)
	_ ports.StreamProvider = (*YtdlpStreamProvider)(nil)
)
