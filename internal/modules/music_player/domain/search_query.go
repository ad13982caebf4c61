package domain

import (
	"net/url"
	"strings"
)

// QueryKind classifies user input for routing to a lookup provider.
type QueryKind int

const (
	QueryKindSearch   QueryKind = iota // free-text search term
	QueryKindTrack                     // link to a single media item
	QueryKindPlaylist                  // link to a collection
)

func (k QueryKind) String() string {
	switch k {
	case QueryKindTrack:
		return "track"
	case QueryKindPlaylist:
		return "playlist"
	default:
		return "search"
	}
}

// SearchSource represents the source for searching songs.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
)

// SearchQuery represents a classified user query.
type SearchQuery struct {
	Query  string // The search term or URL
	Kind   QueryKind
	Source SearchSource // Only meaningful for QueryKindSearch
}

// NewSearchQuery classifies user input.
// URLs are tracks unless they point at a collection; everything else is a YouTube search.
func NewSearchQuery(input string) SearchQuery {
	input = strings.TrimSpace(input)

	if !isURL(input) {
		return SearchQuery{Query: input, Kind: QueryKindSearch, Source: SourceYouTube}
	}
	if isPlaylistURL(input) {
		return SearchQuery{Query: input, Kind: QueryKindPlaylist}
	}
	return SearchQuery{Query: input, Kind: QueryKindTrack}
}

// IsURL returns true for track and playlist queries.
func (q SearchQuery) IsURL() bool {
	return q.Kind != QueryKindSearch
}

// LavalinkQuery returns the query string formatted for Lavalink.
func (q SearchQuery) LavalinkQuery() string {
	if q.IsURL() {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

func isPlaylistURL(input string) bool {
	if strings.HasPrefix(input, "www.") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(host, "youtube.com"):
		// watch?v=...&list=... plays the single video
		return path == "/playlist" || (u.Query().Has("list") && !u.Query().Has("v"))
	case host == "soundcloud.com":
		return strings.Contains(path, "/sets/")
	case host == "open.spotify.com":
		return strings.HasPrefix(path, "/playlist/") || strings.HasPrefix(path, "/album/")
	case strings.HasSuffix(host, "bandcamp.com"):
		return strings.HasPrefix(path, "/album/")
	default:
		return false
	}
}
