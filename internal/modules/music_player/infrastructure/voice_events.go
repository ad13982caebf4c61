package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// voiceHandshake tracks a pending voice join until both gateway events arrive.
type voiceHandshake struct {
	mu        sync.Mutex
	gotState  bool
	gotServer bool
	ready     chan struct{}
}

func newVoiceHandshake() *voiceHandshake {
	return &voiceHandshake{ready: make(chan struct{})}
}

// mark records a received event and closes ready once both are present.
func (h *voiceHandshake) mark(isVoiceState bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if isVoiceState {
		h.gotState = true
	} else {
		h.gotServer = true
	}

	if h.gotState && h.gotServer {
		select {
		case <-h.ready:
		default:
			close(h.ready)
		}
	}
}

// voiceUpdate holds the halves of a voice connection update.
// Lavalink rejects a partial voice state, so both halves are forwarded together.
type voiceUpdate struct {
	channelID *snowflake.ID
	sessionID string
	token     string
	endpoint  string

	hasState  bool
	hasServer bool
}

// voiceUpdates buffers voice updates per guild.
type voiceUpdates struct {
	mu      sync.Mutex
	pending map[snowflake.ID]*voiceUpdate
}

func newVoiceUpdates() *voiceUpdates {
	return &voiceUpdates{pending: make(map[snowflake.ID]*voiceUpdate)}
}

func (v *voiceUpdates) entry(guildID snowflake.ID) *voiceUpdate {
	u, ok := v.pending[guildID]
	if !ok {
		u = &voiceUpdate{}
		v.pending[guildID] = u
	}
	return u
}

// setState stores the voice state half. It returns the complete update and
// true when the server half is already present.
func (v *voiceUpdates) setState(guildID snowflake.ID, channelID *snowflake.ID, sessionID string) (voiceUpdate, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.entry(guildID)
	u.channelID = channelID
	u.sessionID = sessionID
	u.hasState = true
	return v.takeIfComplete(guildID, u)
}

// setServer stores the voice server half. It returns the complete update and
// true when the state half is already present.
func (v *voiceUpdates) setServer(guildID snowflake.ID, token, endpoint string) (voiceUpdate, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	u := v.entry(guildID)
	u.token = token
	u.endpoint = endpoint
	u.hasServer = true
	return v.takeIfComplete(guildID, u)
}

func (v *voiceUpdates) takeIfComplete(guildID snowflake.ID, u *voiceUpdate) (voiceUpdate, bool) {
	if !u.hasState || !u.hasServer {
		return voiceUpdate{}, false
	}
	delete(v.pending, guildID)
	return *u, true
}

func (v *voiceUpdates) clear(guildID snowflake.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pending, guildID)
}
