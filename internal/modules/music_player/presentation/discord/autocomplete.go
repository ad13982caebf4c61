package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	// Discord allows at most 25 autocomplete choices of up to 100 characters.
	maxChoices       = 25
	maxChoiceLength  = 100
	minQueryLength   = 2
	autocompleteWait = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	search ports.LookupProvider
}

// NewAutocompleteHandler creates a new AutocompleteHandler backed by a search lookup.
func NewAutocompleteHandler(search ports.LookupProvider) *AutocompleteHandler {
	return &AutocompleteHandler{search: search}
}

// HandlePlay handles autocomplete for the play command.
// URLs are not searched; they are offered back unchanged.
func (h *AutocompleteHandler) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	q := domain.NewSearchQuery(query)
	if len([]rune(q.Query)) < minQueryLength || q.IsURL() || !h.search.Supports(q.Kind) {
		return respondChoices(r, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteWait)
	defer cancel()

	songs, err := h.search.Lookup(ctx, q)
	if err != nil {
		slog.Debug("autocomplete search failed", "provider", h.search.Name(), "error", err)
		return respondChoices(r, nil)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(songs), maxChoices))
	for _, song := range songs {
		if len(choices) == maxChoices {
			break
		}
		// Choice values are limited to 100 characters too.
		if song.URL == "" || len(song.URL) > maxChoiceLength {
			continue
		}
		name := fmt.Sprintf("🎵 %s - %s", song.Title, song.Author)
		if song.Author == "" {
			name = "🎵 " + song.Title
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceLength),
			Value: song.URL,
		})
	}

	return respondChoices(r, choices)
}

func respondChoices(r bot.Responder, choices []*discordgo.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
