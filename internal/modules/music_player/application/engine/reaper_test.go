package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

type expiryRecorder struct {
	mu     sync.Mutex
	guilds []snowflake.ID
}

func (r *expiryRecorder) record(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guilds = append(r.guilds, guildID)
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.guilds)
}

func newTestReaper() (*IdleReaper, *fakeClock, *expiryRecorder) {
	rec := &expiryRecorder{}
	clock := &fakeClock{}
	r := NewIdleReaper(rec.record)
	r.afterFunc = clock.AfterFunc
	return r, clock, rec
}

func TestIdleReaper_ArmFiresOnce(t *testing.T) {
	r, clock, rec := newTestReaper()

	r.Arm(1, time.Minute)
	assert.True(t, r.Armed(1))

	clock.FireAll()
	clock.FireAll()
	clock.FireStale()

	assert.Equal(t, 1, rec.count())
	assert.False(t, r.Armed(1))
}

func TestIdleReaper_RearmReplacesTimer(t *testing.T) {
	r, clock, rec := newTestReaper()

	r.Arm(1, time.Minute)
	r.Arm(1, time.Minute)

	assert.Equal(t, 1, clock.Pending())
	clock.FireStale()
	assert.Equal(t, 1, rec.count(), "the replaced timer must not report")
}

func TestIdleReaper_Disarm(t *testing.T) {
	r, clock, rec := newTestReaper()

	assert.False(t, r.Disarm(1))
	r.Arm(1, time.Minute)
	assert.True(t, r.Disarm(1))

	clock.FireStale()
	assert.Zero(t, rec.count())
}

func TestIdleReaper_GuildsAreIndependent(t *testing.T) {
	r, clock, rec := newTestReaper()

	r.Arm(1, time.Minute)
	r.Arm(2, time.Minute)
	r.Disarm(1)
	clock.FireAll()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, snowflake.ID(2), rec.guilds[0])
}

func TestIdleReaper_Stop(t *testing.T) {
	r, clock, rec := newTestReaper()
	r.Arm(1, time.Minute)
	r.Arm(2, time.Minute)

	r.Stop()

	assert.Zero(t, clock.Pending())
	clock.FireStale()
	assert.Zero(t, rec.count())
}

func TestIdleReaper_RealTimer(t *testing.T) {
	rec := &expiryRecorder{}
	r := NewIdleReaper(rec.record)

	r.Arm(1, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, r.Armed(1))
}

func TestEngine_ReaperClosesIdleSessionOnce(t *testing.T) {
	te := newTestEngine(t)
	te.play(t, "A")
	te.finish(t)

	te.clock.FireAll()
	snap := te.snapshot(t)

	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Zero(t, te.transport.openSessions())
	_, closes, _ := te.transport.counts()
	assert.Equal(t, 1, closes)
	assert.Contains(t, te.sink.types(), domain.EventSessionReaped)

	te.clock.FireStale()
	te.snapshot(t)
	_, closes, _ = te.transport.counts()
	assert.Equal(t, 1, closes, "no double close")
}

func TestEngine_PlayBeforeExpiryCancelsReap(t *testing.T) {
	te := newTestEngine(t)
	te.play(t, "A")
	te.finish(t)
	require.True(t, te.reaper.Armed(testGuild))

	te.play(t, "B")
	assert.False(t, te.reaper.Armed(testGuild))

	// a timer callback that was already running when play disarmed it
	te.clock.FireStale()
	snap := te.snapshot(t)

	assert.Equal(t, domain.StatePlaying, snap.State)
	_, closes, _ := te.transport.counts()
	assert.Zero(t, closes)
	assert.Equal(t, 1, te.transport.openSessions())
}

func TestEngine_ReapAfterRetryReopensSession(t *testing.T) {
	te := newTestEngine(t)
	te.play(t, "A")
	te.finish(t)
	te.clock.FireAll()
	te.snapshot(t)

	result := te.play(t, "B")

	assert.True(t, result.Started)
	opens, closes, violations := te.transport.counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, closes)
	assert.Zero(t, violations)
}
