package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	testGuild   = snowflake.ID(100)
	testVoice   = snowflake.ID(200)
	testText    = snowflake.ID(300)
	testUser    = snowflake.ID(400)
	testTimeout = time.Second
)

// memoryStore is a minimal QueueStore; the real one lives in infrastructure.
type memoryStore struct {
	mu     sync.Mutex
	queues map[snowflake.ID]*domain.Queue
}

func newMemoryStore() *memoryStore {
	return &memoryStore{queues: make(map[snowflake.ID]*domain.Queue)}
}

func (s *memoryStore) GetQueue(guildID snowflake.ID) *domain.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[guildID]
	if !ok {
		q = domain.NewQueue(guildID, domain.DefaultVolume)
		s.queues[guildID] = q
	}
	return q
}

func (s *memoryStore) Delete(guildID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, guildID)
}

func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// fakeResolver returns one song per comma separated title in the query.
type fakeResolver struct {
	gate    chan struct{} // when set, Resolve blocks until it is closed
	entered chan struct{} // receives once Resolve is blocked on gate
}

func (r *fakeResolver) Resolve(ctx context.Context, query string, requester snowflake.ID) ([]domain.Song, error) {
	if r.gate != nil {
		r.entered <- struct{}{}
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if query == "nothing" {
		return nil, &domain.ResolutionError{Query: query, Err: domain.ErrNoResults}
	}

	var songs []domain.Song
	start := 0
	for i := 0; i <= len(query); i++ {
		if i == len(query) || query[i] == ',' {
			title := query[start:i]
			songs = append(songs, domain.Song{
				Title:       title,
				URL:         "https://example.com/" + title,
				Duration:    3 * time.Minute,
				RequestedBy: requester,
			})
			start = i + 1
		}
	}
	return songs, nil
}

// slowStream never locates songs titled "slow" before ctx is done.
type slowStream struct {
	name string
}

func (s slowStream) Name() string { return s.name }

func (s slowStream) Locate(ctx context.Context, song domain.Song) (ports.StreamLocator, error) {
	if song.Title == "slow" {
		<-ctx.Done()
		return ports.StreamLocator{}, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return ports.StreamLocator{}, err
	}
	return ports.StreamLocator{Provider: s.name, Identifier: song.URL}, nil
}

type fakeStream struct {
	name string
}

func (s fakeStream) Name() string { return s.name }

func (s fakeStream) Locate(_ context.Context, song domain.Song) (ports.StreamLocator, error) {
	return ports.StreamLocator{Provider: s.name, Identifier: song.URL}, nil
}

// fakeTransport records every call and lets tests emit signals.
type fakeTransport struct {
	mu         sync.Mutex
	handler    ports.SignalHandler
	openErr    error
	failing    map[string]bool // provider names whose binds fail
	failTitles map[string]bool // song titles no provider can bind
	sessions   map[snowflake.ID]ports.Session
	resources  map[snowflake.ID]ports.Resource
	violations int // Open while a session was already open
	opens      int
	closes     int // closes of an open session
	stops      int
	binds      []ports.AudioRequest
	volumes    []int
	seeks      []time.Duration
	filters    [][]domain.Filter
	paused     bool
	nextID     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failing:    make(map[string]bool),
		failTitles: make(map[string]bool),
		sessions:   make(map[snowflake.ID]ports.Session),
		resources:  make(map[snowflake.ID]ports.Resource),
	}
}

func (t *fakeTransport) id(prefix string) string {
	t.nextID++
	return fmt.Sprintf("%s-%d", prefix, t.nextID)
}

func (t *fakeTransport) Open(_ context.Context, guildID, channelID snowflake.ID) (ports.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openErr != nil {
		return ports.Session{}, &domain.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: t.openErr}
	}
	if _, ok := t.sessions[guildID]; ok {
		t.violations++
	}
	s := ports.Session{ID: t.id("session"), GuildID: guildID, ChannelID: channelID}
	t.sessions[guildID] = s
	t.opens++
	return s, nil
}

func (t *fakeTransport) BindAudio(_ context.Context, session ports.Session, req ports.AudioRequest) (ports.Resource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failing[req.Stream.Provider] || t.failTitles[req.Song.Title] {
		return ports.Resource{}, &domain.StreamError{Provider: req.Stream.Provider, Song: req.Song.Title, Err: errors.New("unavailable")}
	}
	res := ports.Resource{ID: t.id("resource"), SessionID: session.ID, Provider: req.Stream.Provider}
	t.resources[session.GuildID] = res
	t.binds = append(t.binds, req)
	t.paused = false
	return res, nil
}

func (t *fakeTransport) Stop(_ context.Context, session ports.Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	delete(t.resources, session.GuildID)
	return nil
}

func (t *fakeTransport) Pause(_ context.Context, _ ports.Session, paused bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = paused
	return nil
}

func (t *fakeTransport) Seek(_ context.Context, _ ports.Session, position time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeks = append(t.seeks, position)
	return nil
}

func (t *fakeTransport) SetVolume(_ context.Context, _ ports.Session, volume int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volumes = append(t.volumes, volume)
	return nil
}

func (t *fakeTransport) SetFilters(_ context.Context, _ ports.Session, filters []domain.Filter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filters = append(t.filters, filters)
	return nil
}

func (t *fakeTransport) Close(_ context.Context, session ports.Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if open, ok := t.sessions[session.GuildID]; ok && open.ID == session.ID {
		delete(t.sessions, session.GuildID)
		delete(t.resources, session.GuildID)
		t.closes++
	}
	return nil
}

func (t *fakeTransport) SetSignalHandler(handler ports.SignalHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// emit sends a signal about the guild's current session and resource.
func (t *fakeTransport) emit(guildID snowflake.ID, kind ports.SignalKind) {
	t.mu.Lock()
	sig := ports.Signal{
		Kind:       kind,
		GuildID:    guildID,
		SessionID:  t.sessions[guildID].ID,
		ResourceID: t.resources[guildID].ID,
	}
	if kind == ports.SignalError {
		sig.Err = errors.New("stream broke")
	}
	handler := t.handler
	t.mu.Unlock()

	handler(sig)
}

func (t *fakeTransport) openSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *fakeTransport) counts() (opens, closes, violations int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens, t.closes, t.violations
}

func (t *fakeTransport) lastBind() ports.AudioRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.binds[len(t.binds)-1]
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.PlaybackEvent
}

func (s *fakeSink) Send(event domain.PlaybackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) types() []domain.PlaybackEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.PlaybackEventType, len(s.events))
	for i, ev := range s.events {
		result[i] = ev.Type
	}
	return result
}

// fakeClock replaces time.AfterFunc so idle expiry is driven by the test.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		active := !t.stopped && !t.fired
		t.stopped = true
		return active
	}
}

// FireAll runs every timer that was neither stopped nor fired.
func (c *fakeClock) FireAll() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// FireStale runs every timer callback, including stopped ones, as a late time.AfterFunc would.
func (c *fakeClock) FireStale() {
	c.mu.Lock()
	all := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()

	for _, t := range all {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type testEngine struct {
	*Engine
	transport *fakeTransport
	resolver  *fakeResolver
	sink      *fakeSink
	store     *memoryStore
	clock     *fakeClock
}

type testOption func(deps *Dependencies, cfg *Config)

func newTestEngine(t *testing.T, opts ...testOption) *testEngine {
	t.Helper()

	transport := newFakeTransport()
	resolver := &fakeResolver{}
	sink := &fakeSink{}
	store := newMemoryStore()
	clock := &fakeClock{}

	deps := Dependencies{
		Store:     store,
		Resolver:  resolver,
		Transport: transport,
		Streams:   []ports.StreamProvider{fakeStream{name: "primary"}, fakeStream{name: "fallback"}},
		Sink:      sink,
	}
	cfg := Config{IdleTimeout: time.Minute}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	e, err := New(deps, cfg)
	require.NoError(t, err)
	e.reaper.afterFunc = clock.AfterFunc

	t.Cleanup(func() { e.Close(context.Background()) })

	return &testEngine{
		Engine:    e,
		transport: transport,
		resolver:  resolver,
		sink:      sink,
		store:     store,
		clock:     clock,
	}
}

func (te *testEngine) play(t *testing.T, query string) PlayResult {
	t.Helper()
	result, err := te.Play(testCtx(t), PlayRequest{
		GuildID:               testGuild,
		VoiceChannelID:        testVoice,
		NotificationChannelID: testText,
		RequesterID:           testUser,
		Query:                 query,
	})
	require.NoError(t, err)
	return result
}

func (te *testEngine) snapshot(t *testing.T) domain.QueueSnapshot {
	t.Helper()
	snap, err := te.Snapshot(testCtx(t), testGuild)
	require.NoError(t, err)
	return snap
}

// finish emits a natural completion and waits until the worker has handled it.
func (te *testEngine) finish(t *testing.T) domain.QueueSnapshot {
	t.Helper()
	te.transport.emit(testGuild, ports.SignalFinished)
	return te.snapshot(t)
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func titlesOf(songs []domain.Song) []string {
	result := make([]string, len(songs))
	for i, s := range songs {
		result[i] = s.Title
	}
	return result
}
