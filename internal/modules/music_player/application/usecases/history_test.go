package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

type mockHistory struct {
	records []domain.PlayRecord
	err     error

	gotLimit int
}

func (m *mockHistory) RecentPlays(_ context.Context, _ snowflake.ID, limit int) ([]domain.PlayRecord, error) {
	m.gotLimit = limit
	return m.records, m.err
}

func TestHistoryService_Recent(t *testing.T) {
	history := &mockHistory{records: []domain.PlayRecord{{Title: "a"}, {Title: "b"}}}
	svc := NewHistoryService(history)

	records, err := svc.Recent(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
	if history.gotLimit != DefaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", DefaultHistoryLimit, history.gotLimit)
	}
}

func TestHistoryService_Disabled(t *testing.T) {
	svc := NewHistoryService(nil)

	_, err := svc.Recent(context.Background(), 1, 5)
	if !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("expected ErrHistoryDisabled, got %v", err)
	}
}
