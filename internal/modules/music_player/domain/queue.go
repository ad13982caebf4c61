package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
)

const (
	// MaxHistory is the number of finished songs kept for previous().
	MaxHistory = 10
	// DefaultVolume is the volume of a newly created queue.
	DefaultVolume = 100
	MinVolume     = 0
	MaxVolume     = 100
)

// Queue holds the pending songs and playback flags of one guild.
// The song at index 0 is the current song while playing.
//
// A Queue is not safe for concurrent use; the playback engine owns it and
// mutates it from the guild's worker only.
type Queue struct {
	guildID               snowflake.ID
	songs                 []Song
	volume                int
	loopMode              LoopMode
	shuffleEnabled        bool
	playing               bool
	paused                bool
	history               []Song
	filters               map[Filter]struct{}
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID
	generation            uint64
}

// NewQueue creates an empty, idle queue for the guild.
func NewQueue(guildID snowflake.ID, volume int) *Queue {
	return &Queue{
		guildID: guildID,
		songs:   make([]Song, 0),
		volume:  clampVolume(volume),
		history: make([]Song, 0, MaxHistory),
		filters: make(map[Filter]struct{}),
	}
}

func (q *Queue) GuildID() snowflake.ID { return q.guildID }

// Len returns the number of songs including the current one.
func (q *Queue) Len() int { return len(q.songs) }

// IsEmpty returns true if the queue has no songs.
func (q *Queue) IsEmpty() bool { return len(q.songs) == 0 }

// Head returns the song at index 0, or nil if the queue is empty.
func (q *Queue) Head() *Song {
	if q.IsEmpty() {
		return nil
	}
	song := q.songs[0]
	return &song
}

// CurrentSong returns the song being played, or nil when not playing.
func (q *Queue) CurrentSong() *Song {
	if !q.playing {
		return nil
	}
	return q.Head()
}

// Songs returns a copy of all songs.
func (q *Queue) Songs() []Song {
	return slices.Clone(q.songs)
}

// Upcoming returns a copy of the songs after the head.
func (q *Queue) Upcoming() []Song {
	if len(q.songs) < 2 {
		return []Song{}
	}
	return slices.Clone(q.songs[1:])
}

// History returns a copy of the finished songs, oldest first.
func (q *Queue) History() []Song {
	return slices.Clone(q.history)
}

// Append adds songs to the tail and returns the position of the first one.
func (q *Queue) Append(songs ...Song) int {
	pos := len(q.songs)
	q.songs = append(q.songs, songs...)
	return pos
}

// RemoveUpcoming removes up to n songs directly after the head and returns how many were removed.
func (q *Queue) RemoveUpcoming(n int) int {
	if n <= 0 || len(q.songs) < 2 {
		return 0
	}
	n = min(n, len(q.songs)-1)
	q.songs = slices.Delete(q.songs, 1, 1+n)
	return n
}

// Retire moves the head into history, evicting the oldest entry when full.
func (q *Queue) Retire() {
	if q.IsEmpty() {
		return
	}
	q.pushHistory(q.songs[0])
	q.songs = slices.Delete(q.songs, 0, 1)
	q.ensureInvariants()
}

// Rotate moves the head to the tail.
func (q *Queue) Rotate() {
	if len(q.songs) < 2 {
		return
	}
	head := q.songs[0]
	q.songs = append(q.songs[1:], head)
}

// Drop removes the head without recording it in history.
func (q *Queue) Drop() {
	if q.IsEmpty() {
		return
	}
	q.songs = slices.Delete(q.songs, 0, 1)
	q.ensureInvariants()
}

// Rewind pops the most recent history entry and makes it the new head.
// It returns false if history is empty.
func (q *Queue) Rewind() bool {
	if len(q.history) == 0 {
		return false
	}
	last := q.history[len(q.history)-1]
	q.history = q.history[:len(q.history)-1]
	q.songs = slices.Insert(q.songs, 0, last)
	return true
}

func (q *Queue) pushHistory(song Song) {
	if len(q.history) >= MaxHistory {
		q.history = slices.Delete(q.history, 0, len(q.history)-MaxHistory+1)
	}
	q.history = append(q.history, song)
}

// ShuffleUpcoming permutes the songs after the head and enables shuffle.
// It returns false when there are fewer than two upcoming songs.
func (q *Queue) ShuffleUpcoming() bool {
	if len(q.songs) < 3 {
		return false
	}
	lo.Shuffle(q.songs[1:])
	q.shuffleEnabled = true
	return true
}

func (q *Queue) ShuffleEnabled() bool { return q.shuffleEnabled }

func (q *Queue) LoopMode() LoopMode { return q.loopMode }

func (q *Queue) SetLoopMode(mode LoopMode) { q.loopMode = mode }

func (q *Queue) Volume() int { return q.volume }

// SetVolume stores the volume clamped to [MinVolume, MaxVolume] and returns the stored value.
func (q *Queue) SetVolume(v int) int {
	q.volume = clampVolume(v)
	return q.volume
}

func clampVolume(v int) int {
	return max(MinVolume, min(MaxVolume, v))
}

func (q *Queue) IsPlaying() bool { return q.playing }

func (q *Queue) IsPaused() bool { return q.paused }

// SetPlaying marks the head as playing. It is ignored on an empty queue.
func (q *Queue) SetPlaying(playing bool) {
	q.playing = playing && !q.IsEmpty()
	if !q.playing {
		q.paused = false
	}
}

// SetPaused updates the paused flag. Only a playing queue can be paused.
func (q *Queue) SetPaused(paused bool) {
	q.paused = paused && q.playing
}

// ToggleFilter enables or disables f and returns whether it is now enabled.
func (q *Queue) ToggleFilter(f Filter) bool {
	if _, ok := q.filters[f]; ok {
		delete(q.filters, f)
		return false
	}
	q.filters[f] = struct{}{}
	return true
}

// Filters returns the enabled filters in a stable order.
func (q *Queue) Filters() []Filter {
	return slices.Sorted(maps.Keys(q.filters))
}

func (q *Queue) VoiceChannelID() snowflake.ID { return q.voiceChannelID }

func (q *Queue) SetVoiceChannelID(id snowflake.ID) { q.voiceChannelID = id }

func (q *Queue) NotificationChannelID() snowflake.ID { return q.notificationChannelID }

func (q *Queue) SetNotificationChannelID(id snowflake.ID) { q.notificationChannelID = id }

// Generation identifies the current incarnation of the queue.
// It changes every time the queue is reset or its session is lost.
func (q *Queue) Generation() uint64 { return q.generation }

// Invalidate bumps the generation so results computed against the old one are discarded.
func (q *Queue) Invalidate() { q.generation++ }

// Reset clears the songs and playback flags. History, volume, loop mode and filters survive.
func (q *Queue) Reset() {
	q.songs = q.songs[:0]
	q.playing = false
	q.paused = false
	q.shuffleEnabled = false
	q.Invalidate()
}

func (q *Queue) ensureInvariants() {
	if q.IsEmpty() {
		q.playing = false
		q.paused = false
	}
}

// Snapshot returns a read-only copy of the queue.
func (q *Queue) Snapshot(state PlaybackState) QueueSnapshot {
	return QueueSnapshot{
		GuildID:               q.guildID,
		State:                 state,
		Songs:                 q.Songs(),
		CurrentSong:           q.CurrentSong(),
		History:               q.History(),
		Volume:                q.volume,
		LoopMode:              q.loopMode,
		ShuffleEnabled:        q.shuffleEnabled,
		Playing:               q.playing,
		Paused:                q.paused,
		Filters:               q.Filters(),
		VoiceChannelID:        q.voiceChannelID,
		NotificationChannelID: q.notificationChannelID,
	}
}

// QueueSnapshot is a detached copy of a Queue.
type QueueSnapshot struct {
	GuildID               snowflake.ID
	State                 PlaybackState
	Songs                 []Song
	CurrentSong           *Song
	History               []Song
	Volume                int
	LoopMode              LoopMode
	ShuffleEnabled        bool
	Playing               bool
	Paused                bool
	Filters               []Filter
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
}

// Upcoming returns the songs after the head.
func (s QueueSnapshot) Upcoming() []Song {
	if len(s.Songs) < 2 {
		return []Song{}
	}
	return s.Songs[1:]
}

// TotalDuration sums the durations of all non-stream songs.
func (s QueueSnapshot) TotalDuration() (total time.Duration) {
	for _, song := range s.Songs {
		if !song.IsStream {
			total += song.Duration
		}
	}
	return total
}
