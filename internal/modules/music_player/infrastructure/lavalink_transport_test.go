package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const testBotID = snowflake.ID(999)

type voiceCall struct {
	guildID   string
	channelID string
}

// fakeGateway answers joins with the voice events Discord would send.
type fakeGateway struct {
	mu        sync.Mutex
	calls     []voiceCall
	transport *LavalinkTransport
	silent    bool
	err       error
}

func (g *fakeGateway) ChannelVoiceJoinManual(gID, cID string, _, _ bool) error {
	g.mu.Lock()
	g.calls = append(g.calls, voiceCall{guildID: gID, channelID: cID})
	g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	if cID == "" || g.silent {
		return nil
	}
	go func() {
		g.transport.OnVoiceServerUpdate(&discordgo.VoiceServerUpdate{GuildID: gID, Token: "token", Endpoint: "endpoint"})
		g.transport.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
			GuildID:   gID,
			ChannelID: cID,
			UserID:    testBotID.String(),
			SessionID: "discord-session",
		}})
	}()
	return nil
}

func (g *fakeGateway) joins() []voiceCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]voiceCall(nil), g.calls...)
}

type forwardedState struct {
	guildID   snowflake.ID
	channelID *snowflake.ID
}

// fakeLink records the voice updates forwarded to Lavalink.
type fakeLink struct {
	mu      sync.Mutex
	states  []forwardedState
	servers []string
}

func (l *fakeLink) Player(snowflake.ID) disgolink.Player         { return nil }
func (l *fakeLink) ExistingPlayer(snowflake.ID) disgolink.Player { return nil }
func (l *fakeLink) BestNode() disgolink.Node                     { return nil }

func (l *fakeLink) OnVoiceStateUpdate(_ context.Context, guildID snowflake.ID, channelID *snowflake.ID, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, forwardedState{guildID: guildID, channelID: channelID})
}

func (l *fakeLink) OnVoiceServerUpdate(_ context.Context, _ snowflake.ID, token string, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.servers = append(l.servers, token)
}

func newFakeTransport() (*LavalinkTransport, *fakeGateway, *fakeLink, *[]ports.Signal) {
	gateway := &fakeGateway{}
	link := &fakeLink{}
	tr := newLavalinkTransport(gateway, testBotID)
	tr.link = link
	gateway.transport = tr

	var mu sync.Mutex
	signals := &[]ports.Signal{}
	tr.SetSignalHandler(func(sig ports.Signal) {
		mu.Lock()
		defer mu.Unlock()
		*signals = append(*signals, sig)
	})
	return tr, gateway, link, signals
}

func TestLavalinkTransport_Open(t *testing.T) {
	tr, gateway, link, _ := newFakeTransport()

	session, err := tr.Open(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID == "" || session.GuildID != 1 || session.ChannelID != 10 {
		t.Errorf("unexpected session %+v", session)
	}
	if calls := gateway.joins(); len(calls) != 1 || calls[0].channelID != "10" {
		t.Errorf("unexpected gateway calls %v", calls)
	}

	link.mu.Lock()
	defer link.mu.Unlock()
	if len(link.states) != 1 || len(link.servers) != 1 {
		t.Fatalf("expected one forwarded voice update, got %d states and %d servers", len(link.states), len(link.servers))
	}
	if link.states[0].channelID == nil || *link.states[0].channelID != 10 {
		t.Errorf("expected forwarded channel 10, got %v", link.states[0].channelID)
	}
}

func TestLavalinkTransport_OpenCancelled(t *testing.T) {
	tr, gateway, _, _ := newFakeTransport()
	gateway.silent = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Open(ctx, 1, 10)

	var connErr *domain.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	calls := gateway.joins()
	if len(calls) != 2 || calls[1].channelID != "" {
		t.Errorf("expected join followed by leave, got %v", calls)
	}
}

func TestLavalinkTransport_OpenJoinFails(t *testing.T) {
	tr, gateway, _, _ := newFakeTransport()
	gateway.err = errors.New("missing permissions")

	_, err := tr.Open(context.Background(), 1, 10)

	var connErr *domain.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.ChannelID != 10 {
		t.Errorf("expected channel 10, got %d", connErr.ChannelID)
	}
}

func TestLavalinkTransport_UnexpectedDisconnect(t *testing.T) {
	tr, _, _, signals := newFakeTransport()

	session, err := tr.Open(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		GuildID: "1",
		UserID:  testBotID.String(),
	}})

	if len(*signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(*signals))
	}
	sig := (*signals)[0]
	if sig.Kind != ports.SignalDisconnected || sig.SessionID != session.ID {
		t.Errorf("unexpected signal %+v", sig)
	}
}

func TestLavalinkTransport_CloseIsNotADisconnect(t *testing.T) {
	tr, gateway, _, signals := newFakeTransport()

	session, err := tr.Open(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Close(context.Background(), session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		GuildID: "1",
		UserID:  testBotID.String(),
	}})

	if len(*signals) != 0 {
		t.Errorf("expected no signals, got %v", *signals)
	}
	calls := gateway.joins()
	if calls[len(calls)-1].channelID != "" {
		t.Errorf("expected a leave, got %v", calls)
	}

	// Closing again is a no-op
	if err := tr.Close(context.Background(), session); err != nil {
		t.Errorf("unexpected error on second close: %v", err)
	}
}

func TestLavalinkTransport_IgnoresOtherUsers(t *testing.T) {
	tr, _, link, _ := newFakeTransport()

	tr.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
		GuildID:   "1",
		ChannelID: "10",
		UserID:    "12345",
	}})

	if len(link.states) != 0 {
		t.Errorf("expected no forwarded updates, got %v", link.states)
	}
}

func TestLavalinkTransport_TrackEnded(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		reason   lavalink.TrackEndReason
		wantKind *ports.SignalKind
	}{
		{name: "finished", encoded: "track-a", reason: lavalink.TrackEndReasonFinished, wantKind: ptrTo(ports.SignalFinished)},
		{name: "load failed", encoded: "track-a", reason: lavalink.TrackEndReasonLoadFailed, wantKind: ptrTo(ports.SignalError)},
		{name: "replaced", encoded: "track-a", reason: lavalink.TrackEndReasonReplaced},
		{name: "stopped", encoded: "track-a", reason: lavalink.TrackEndReasonStopped},
		{name: "other track", encoded: "track-b", reason: lavalink.TrackEndReasonFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _, _, signals := newFakeTransport()
			session, err := tr.Open(context.Background(), 1, 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tr.sessions[1].bound = &boundTrack{resourceID: "res-1", encoded: "track-a"}

			tr.trackEnded(1, tt.encoded, tt.reason)

			if tt.wantKind == nil {
				if len(*signals) != 0 {
					t.Errorf("expected no signal, got %v", *signals)
				}
				return
			}
			if len(*signals) != 1 {
				t.Fatalf("expected 1 signal, got %d", len(*signals))
			}
			sig := (*signals)[0]
			if sig.Kind != *tt.wantKind || sig.ResourceID != "res-1" || sig.SessionID != session.ID {
				t.Errorf("unexpected signal %+v", sig)
			}
		})
	}
}

func TestLavalinkTransport_ExceptionReportedOnce(t *testing.T) {
	tr, _, _, signals := newFakeTransport()
	if _, err := tr.Open(context.Background(), 1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.sessions[1].bound = &boundTrack{resourceID: "res-1", encoded: "track-a"}

	tr.trackFailed(1, "track-a", errors.New("403 forbidden"))
	tr.trackEnded(1, "track-a", lavalink.TrackEndReasonLoadFailed)

	if len(*signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(*signals))
	}
	if (*signals)[0].Kind != ports.SignalError || (*signals)[0].Err == nil {
		t.Errorf("unexpected signal %+v", (*signals)[0])
	}
}

func TestLavalinkTransport_OperationsRequireSession(t *testing.T) {
	tr, _, _, _ := newFakeTransport()
	stale := ports.Session{ID: "stale", GuildID: 1, ChannelID: 10}

	if err := tr.Pause(context.Background(), stale, true); !errors.Is(err, ErrNoSession) {
		t.Errorf("Pause: expected ErrNoSession, got %v", err)
	}
	if err := tr.Stop(context.Background(), stale); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop: expected ErrNoSession, got %v", err)
	}

	_, err := tr.BindAudio(context.Background(), stale, ports.AudioRequest{
		Song:   domain.Song{Title: "A"},
		Stream: ports.StreamLocator{Provider: "lavalink", Encoded: "track-a"},
	})
	var streamErr *domain.StreamError
	if !errors.As(err, &streamErr) || streamErr.Provider != "lavalink" {
		t.Errorf("BindAudio: expected StreamError, got %v", err)
	}
}

func TestLavalinkFilters(t *testing.T) {
	f := lavalinkFilters([]domain.Filter{domain.Filter8D, domain.FilterBassBoost, domain.FilterNightcore})
	if f.Rotation == nil || f.Equalizer == nil || f.Timescale == nil {
		t.Errorf("expected rotation, equalizer and timescale, got %+v", f)
	}
	if f.Timescale != nil && f.Timescale.Speed <= 1 {
		t.Errorf("expected nightcore to speed up, got %v", f.Timescale.Speed)
	}

	if empty := lavalinkFilters(nil); empty.Timescale != nil || empty.Rotation != nil || empty.Equalizer != nil {
		t.Errorf("expected no filters, got %+v", empty)
	}
}

func ptrTo[T any](v T) *T {
	return &v
}
