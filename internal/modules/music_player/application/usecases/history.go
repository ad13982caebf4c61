package usecases

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultHistoryLimit is the number of plays returned when no limit is given.
const DefaultHistoryLimit = 10

// ErrHistoryDisabled is returned when no play history store is configured.
var ErrHistoryDisabled = errors.New("play history is not enabled")

// HistoryService reads the guild's play history.
type HistoryService struct {
	history domain.PlayHistory
}

// NewHistoryService creates a new HistoryService. A nil history disables it.
func NewHistoryService(history domain.PlayHistory) *HistoryService {
	return &HistoryService{history: history}
}

// Recent returns up to limit recently started songs, newest first.
func (h *HistoryService) Recent(ctx context.Context, guildID snowflake.ID, limit int) ([]domain.PlayRecord, error) {
	if h == nil || h.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return h.history.RecentPlays(ctx, guildID, limit)
}
