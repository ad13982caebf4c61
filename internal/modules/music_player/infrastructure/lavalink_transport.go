package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

var (
	// ErrNoSession is returned when an operation targets a session that is not open.
	ErrNoSession = errors.New("no open voice session")
	// ErrNoNode is returned when no Lavalink node is available.
	ErrNoNode = errors.New("no available Lavalink node")
	// ErrTrackUnavailable is returned when Lavalink cannot load a stream.
	ErrTrackUnavailable = errors.New("track unavailable")
)

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// voiceGateway is the part of the Discord session used to join and leave voice channels.
type voiceGateway interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// lavalinkClient is the part of disgolink.Client the transport drives.
type lavalinkClient interface {
	Player(guildID snowflake.ID) disgolink.Player
	ExistingPlayer(guildID snowflake.ID) disgolink.Player
	BestNode() disgolink.Node
	OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token string, endpoint string)
}

// voiceSession is the transport's view of an open session.
type voiceSession struct {
	id        string
	channelID snowflake.ID
	bound     *boundTrack
}

// boundTrack is the Lavalink track backing a resource.
type boundTrack struct {
	resourceID string
	encoded    string
}

// LavalinkTransport implements ports.Transport on top of DisGoLink.
type LavalinkTransport struct {
	link    lavalinkClient
	gateway voiceGateway
	botID   snowflake.ID

	mu       sync.Mutex
	sessions map[snowflake.ID]*voiceSession
	joins    map[snowflake.ID]*voiceHandshake
	handler  ports.SignalHandler

	updates *voiceUpdates

	closeLink func()
}

// NewLavalinkTransport creates a LavalinkTransport and connects to the Lavalink node.
func NewLavalinkTransport(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkTransport, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	t := newLavalinkTransport(session, botID)

	link := disgolink.New(botID,
		disgolink.WithListenerFunc(t.onTrackStart),
		disgolink.WithListenerFunc(t.onTrackEnd),
		disgolink.WithListenerFunc(t.onTrackException),
		disgolink.WithListenerFunc(t.onTrackStuck),
	)
	t.link = link
	t.closeLink = link.Close

	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return t, nil
}

func newLavalinkTransport(gateway voiceGateway, botID snowflake.ID) *LavalinkTransport {
	return &LavalinkTransport{
		gateway:  gateway,
		botID:    botID,
		sessions: make(map[snowflake.ID]*voiceSession),
		joins:    make(map[snowflake.ID]*voiceHandshake),
		updates:  newVoiceUpdates(),
	}
}

// SetSignalHandler registers the consumer of transport signals.
func (t *LavalinkTransport) SetSignalHandler(handler ports.SignalHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Open joins the voice channel and waits until Discord confirms the connection.
func (t *LavalinkTransport) Open(ctx context.Context, guildID, channelID snowflake.ID) (ports.Session, error) {
	join := newVoiceHandshake()

	t.mu.Lock()
	t.joins[guildID] = join
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.joins, guildID)
		t.mu.Unlock()
	}()

	connErr := func(err error) error {
		return &domain.ConnectionError{GuildID: guildID, ChannelID: channelID, Err: err}
	}

	if err := t.gateway.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true); err != nil {
		return ports.Session{}, connErr(fmt.Errorf("failed to join voice channel: %w", err))
	}

	timer := time.NewTimer(voiceConnectionTimeout)
	defer timer.Stop()

	select {
	case <-join.ready:
	case <-ctx.Done():
		t.leave(guildID)
		return ports.Session{}, connErr(ctx.Err())
	case <-timer.C:
		t.leave(guildID)
		return ports.Session{}, connErr(errors.New("timeout waiting for voice connection"))
	}

	session := ports.Session{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		ChannelID: channelID,
	}

	t.mu.Lock()
	t.sessions[guildID] = &voiceSession{id: session.ID, channelID: channelID}
	t.mu.Unlock()

	return session, nil
}

// BindAudio loads the located stream and starts it on the session's player.
func (t *LavalinkTransport) BindAudio(
	ctx context.Context,
	session ports.Session,
	req ports.AudioRequest,
) (ports.Resource, error) {
	streamErr := func(err error) error {
		return &domain.StreamError{Provider: req.Stream.Provider, Song: req.Song.Title, Err: err}
	}

	if _, err := t.current(session); err != nil {
		return ports.Resource{}, streamErr(err)
	}

	encoded := req.Stream.Encoded
	if encoded == "" {
		track, err := t.loadTrack(ctx, req.Stream.Identifier)
		if err != nil {
			return ports.Resource{}, streamErr(err)
		}
		encoded = track.Encoded
	}

	resource := ports.Resource{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Provider:  req.Stream.Provider,
	}

	// Record the binding first so that end events for the replaced track are ignored
	t.mu.Lock()
	vs, ok := t.sessions[session.GuildID]
	if ok && vs.id == session.ID {
		vs.bound = &boundTrack{resourceID: resource.ID, encoded: encoded}
	}
	t.mu.Unlock()
	if !ok {
		return ports.Resource{}, streamErr(ErrNoSession)
	}

	err := t.link.Player(session.GuildID).Update(ctx,
		lavalink.WithEncodedTrack(encoded),
		lavalink.WithVolume(req.Volume),
		lavalink.WithFilters(lavalinkFilters(req.Filters)),
		lavalink.WithPaused(false),
	)
	if err != nil {
		t.unbind(session)
		return ports.Resource{}, streamErr(fmt.Errorf("failed to play track: %w", err))
	}

	return resource, nil
}

// Stop stops the current playback.
func (t *LavalinkTransport) Stop(ctx context.Context, session ports.Session) error {
	if _, err := t.current(session); err != nil {
		return err
	}
	t.unbind(session)

	if err := t.link.Player(session.GuildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Pause pauses or resumes the current playback.
func (t *LavalinkTransport) Pause(ctx context.Context, session ports.Session, paused bool) error {
	if _, err := t.current(session); err != nil {
		return err
	}
	if err := t.link.Player(session.GuildID).Update(ctx, lavalink.WithPaused(paused)); err != nil {
		return fmt.Errorf("failed to set paused=%t: %w", paused, err)
	}
	return nil
}

// Seek moves the playback position of the current track.
func (t *LavalinkTransport) Seek(ctx context.Context, session ports.Session, position time.Duration) error {
	if _, err := t.current(session); err != nil {
		return err
	}
	err := t.link.Player(session.GuildID).Update(ctx,
		lavalink.WithPosition(lavalink.Duration(position.Milliseconds())),
	)
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// SetVolume sets the player volume.
func (t *LavalinkTransport) SetVolume(ctx context.Context, session ports.Session, volume int) error {
	if _, err := t.current(session); err != nil {
		return err
	}
	if err := t.link.Player(session.GuildID).Update(ctx, lavalink.WithVolume(volume)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// SetFilters replaces the player's audio filters.
func (t *LavalinkTransport) SetFilters(ctx context.Context, session ports.Session, filters []domain.Filter) error {
	if _, err := t.current(session); err != nil {
		return err
	}
	err := t.link.Player(session.GuildID).Update(ctx, lavalink.WithFilters(lavalinkFilters(filters)))
	if err != nil {
		return fmt.Errorf("failed to set filters: %w", err)
	}
	return nil
}

// Close destroys the player and leaves the voice channel.
// The resulting voice state update is not reported as a disconnect.
func (t *LavalinkTransport) Close(ctx context.Context, session ports.Session) error {
	t.mu.Lock()
	vs, ok := t.sessions[session.GuildID]
	if !ok || vs.id != session.ID {
		t.mu.Unlock()
		return nil
	}
	delete(t.sessions, session.GuildID)
	t.mu.Unlock()

	if player := t.link.ExistingPlayer(session.GuildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", session.GuildID, "error", err)
		}
	}

	return t.leave(session.GuildID)
}

// Shutdown disconnects from every Lavalink node. Sessions must be closed first.
func (t *LavalinkTransport) Shutdown() {
	if t.closeLink != nil {
		t.closeLink()
	}
}

// LoadTracks loads tracks from the best Lavalink node.
func (t *LavalinkTransport) LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	node := t.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return result, nil
}

// loadTrack resolves an identifier to the single track to play.
func (t *LavalinkTransport) loadTrack(ctx context.Context, identifier string) (lavalink.Track, error) {
	result, err := t.LoadTracks(ctx, identifier)
	if err != nil {
		return lavalink.Track{}, err
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil
	case lavalink.Search:
		if len(data) > 0 {
			return data[0], nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0], nil
		}
	case lavalink.Exception:
		return lavalink.Track{}, fmt.Errorf("%w: %s", ErrTrackUnavailable, data.Message)
	}
	return lavalink.Track{}, ErrTrackUnavailable
}

func (t *LavalinkTransport) current(session ports.Session) (*voiceSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	vs, ok := t.sessions[session.GuildID]
	if !ok || vs.id != session.ID {
		return nil, ErrNoSession
	}
	return vs, nil
}

func (t *LavalinkTransport) unbind(session ports.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if vs, ok := t.sessions[session.GuildID]; ok && vs.id == session.ID {
		vs.bound = nil
	}
}

func (t *LavalinkTransport) leave(guildID snowflake.ID) error {
	t.updates.clear(guildID)
	if err := t.gateway.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (t *LavalinkTransport) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	if update, ok := t.updates.setServer(guildID, event.Token, event.Endpoint); ok {
		t.forwardVoiceUpdate(guildID, update)
	}
	t.markJoin(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (t *LavalinkTransport) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != t.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		t.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		t.updates.clear(guildID)
		t.onDisconnect(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	if update, ok := t.updates.setState(guildID, &channelID, event.SessionID); ok {
		t.forwardVoiceUpdate(guildID, update)
	}
	t.markJoin(guildID, true)
}

func (t *LavalinkTransport) markJoin(guildID snowflake.ID, isVoiceState bool) {
	t.mu.Lock()
	join := t.joins[guildID]
	t.mu.Unlock()

	if join != nil {
		join.mark(isVoiceState)
	}
}

// forwardVoiceUpdate sends a complete voice update to Lavalink, state first.
func (t *LavalinkTransport) forwardVoiceUpdate(guildID snowflake.ID, update voiceUpdate) {
	slog.Debug("forwarding voice update to Lavalink",
		"guild", guildID,
		"channel", update.channelID,
		"hasSessionID", update.sessionID != "",
	)

	t.link.OnVoiceStateUpdate(context.Background(), guildID, update.channelID, update.sessionID)
	t.link.OnVoiceServerUpdate(context.Background(), guildID, update.token, update.endpoint)
}

// onDisconnect reports a session the platform dropped without a Close.
func (t *LavalinkTransport) onDisconnect(guildID snowflake.ID) {
	t.mu.Lock()
	vs, ok := t.sessions[guildID]
	if ok {
		delete(t.sessions, guildID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	slog.Warn("voice session dropped", "guild", guildID, "channel", vs.channelID)
	t.emit(ports.Signal{Kind: ports.SignalDisconnected, GuildID: guildID, SessionID: vs.id})
}

func (t *LavalinkTransport) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (t *LavalinkTransport) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)
	t.trackEnded(player.GuildID(), event.Track.Encoded, event.Reason)
}

func (t *LavalinkTransport) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
	t.trackFailed(player.GuildID(), event.Track.Encoded, errors.New(event.Exception.Message))
}

func (t *LavalinkTransport) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
	t.trackFailed(player.GuildID(), event.Track.Encoded, fmt.Errorf("track stuck for %dms", event.Threshold))
}

// trackEnded maps a Lavalink end reason to a signal for the bound resource.
// Stopped, replaced and cleaned up tracks were ended by the transport itself.
func (t *LavalinkTransport) trackEnded(guildID snowflake.ID, encoded string, reason lavalink.TrackEndReason) {
	var kind ports.SignalKind
	switch reason {
	case lavalink.TrackEndReasonFinished:
		kind = ports.SignalFinished
	case lavalink.TrackEndReasonLoadFailed:
		kind = ports.SignalError
	default:
		return
	}

	t.mu.Lock()
	vs, ok := t.sessions[guildID]
	if !ok || vs.bound == nil || vs.bound.encoded != encoded {
		t.mu.Unlock()
		return
	}
	bound := *vs.bound
	vs.bound = nil
	t.mu.Unlock()

	sig := ports.Signal{Kind: kind, GuildID: guildID, SessionID: vs.id, ResourceID: bound.resourceID}
	if kind == ports.SignalError {
		sig.Err = ErrTrackUnavailable
	}
	t.emit(sig)
}

// trackFailed reports a mid-stream failure once per bound resource.
// Lavalink follows an exception with a loadFailed end event, which is then ignored.
func (t *LavalinkTransport) trackFailed(guildID snowflake.ID, encoded string, err error) {
	t.mu.Lock()
	vs, ok := t.sessions[guildID]
	if !ok || vs.bound == nil || vs.bound.encoded != encoded {
		t.mu.Unlock()
		return
	}
	resourceID := vs.bound.resourceID
	vs.bound = nil
	t.mu.Unlock()

	t.emit(ports.Signal{Kind: ports.SignalError, GuildID: guildID, SessionID: vs.id, ResourceID: resourceID, Err: err})
}

func (t *LavalinkTransport) emit(sig ports.Signal) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	if handler == nil {
		slog.Debug("dropping transport signal without handler", "guild", sig.GuildID, "kind", sig.Kind)
		return
	}
	handler(sig)
}

// lavalinkFilters converts enabled filters to Lavalink filter settings.
// Nightcore and vaporwave both use the timescale filter; the later one in the list wins.
func lavalinkFilters(filters []domain.Filter) lavalink.Filters {
	var f lavalink.Filters
	for _, filter := range filters {
		switch filter {
		case domain.FilterBassBoost:
			f.Equalizer = &lavalink.Equalizer{0: 0.25, 1: 0.2, 2: 0.15, 3: 0.1, 4: 0.05}
		case domain.FilterNightcore:
			f.Timescale = &lavalink.Timescale{Speed: 1.2, Pitch: 1.2, Rate: 1}
		case domain.FilterVaporwave:
			f.Timescale = &lavalink.Timescale{Speed: 0.85, Pitch: 0.8, Rate: 1}
		case domain.Filter8D:
			f.Rotation = &lavalink.Rotation{RotationHz: 1}
		}
	}
	return f
}

// Ensure LavalinkTransport implements ports.Transport.
var _ ports.Transport = (*LavalinkTransport)(nil)
