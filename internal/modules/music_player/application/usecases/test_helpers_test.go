package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/engine"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

func mockSong(title string) domain.Song {
	return domain.Song{
		Title:       title,
		URL:         "https://example.com/" + title,
		Author:      "Artist",
		Duration:    3 * time.Minute,
		RequestedBy: snowflake.ID(123),
	}
}

// mockPlayer returns canned results and records the requests it receives.
type mockPlayer struct {
	ok        bool
	err       error
	volume    int
	enabled   bool
	snapshots []domain.QueueSnapshot // returned in order, the last one repeats
	playRes   engine.PlayResult
	playErr   error

	playReq   *engine.PlayRequest
	skipN     int
	seekPos   time.Duration
	loopMode  string
	snapCalls int
}

func (m *mockPlayer) Play(_ context.Context, req engine.PlayRequest) (engine.PlayResult, error) {
	m.playReq = &req
	return m.playRes, m.playErr
}

func (m *mockPlayer) Pause(context.Context, snowflake.ID) (bool, error)    { return m.ok, m.err }
func (m *mockPlayer) Resume(context.Context, snowflake.ID) (bool, error)   { return m.ok, m.err }
func (m *mockPlayer) Previous(context.Context, snowflake.ID) (bool, error) { return m.ok, m.err }
func (m *mockPlayer) Stop(context.Context, snowflake.ID) (bool, error)     { return m.ok, m.err }
func (m *mockPlayer) Shuffle(context.Context, snowflake.ID) (bool, error)  { return m.ok, m.err }

func (m *mockPlayer) Skip(_ context.Context, _ snowflake.ID, n int) (bool, error) {
	m.skipN = n
	return m.ok, m.err
}

func (m *mockPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume int) (int, error) {
	m.volume = max(domain.MinVolume, min(domain.MaxVolume, volume))
	return m.volume, m.err
}

func (m *mockPlayer) SetLoop(_ context.Context, _ snowflake.ID, mode string) (bool, error) {
	m.loopMode = mode
	return m.ok, m.err
}

func (m *mockPlayer) Seek(_ context.Context, _ snowflake.ID, position time.Duration) (bool, error) {
	m.seekPos = position
	return m.ok, m.err
}

func (m *mockPlayer) ToggleFilter(_ context.Context, _ snowflake.ID, name string) (bool, error) {
	if _, err := domain.ParseFilter(name); err != nil {
		return false, err
	}
	return m.enabled, m.err
}

func (m *mockPlayer) Snapshot(context.Context, snowflake.ID) (domain.QueueSnapshot, error) {
	if len(m.snapshots) == 0 {
		return domain.QueueSnapshot{}, m.err
	}
	idx := min(m.snapCalls, len(m.snapshots)-1)
	m.snapCalls++
	return m.snapshots[idx], m.err
}

type mockVoiceState struct {
	channelID *snowflake.ID
	err       error
}

func (m *mockVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (*snowflake.ID, error) {
	return m.channelID, m.err
}

func ptr[T any](v T) *T {
	return &v
}

// snapshotOf builds a snapshot of a playing queue with the given titles.
func snapshotOf(titles ...string) domain.QueueSnapshot {
	snap := domain.QueueSnapshot{Volume: domain.DefaultVolume}
	for _, title := range titles {
		snap.Songs = append(snap.Songs, mockSong(title))
	}
	if len(snap.Songs) > 0 {
		snap.Playing = true
		snap.State = domain.StatePlaying
		snap.CurrentSong = &snap.Songs[0]
	}
	return snap
}
