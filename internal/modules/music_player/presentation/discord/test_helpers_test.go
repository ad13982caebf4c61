package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/engine"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

func testSong(title string) domain.Song {
	return domain.Song{
		Title:       title,
		URL:         "https://example.com/" + title,
		Author:      "Artist",
		Duration:    3 * time.Minute,
		RequestedBy: snowflake.ID(3),
	}
}

// stubPlayer implements usecases.Player with canned results.
type stubPlayer struct {
	ok       bool
	err      error
	enabled  bool
	snapshot domain.QueueSnapshot
	playRes  engine.PlayResult
	playErr  error

	seeked bool
}

func (p *stubPlayer) Play(context.Context, engine.PlayRequest) (engine.PlayResult, error) {
	return p.playRes, p.playErr
}

func (p *stubPlayer) Pause(context.Context, snowflake.ID) (bool, error)           { return p.ok, p.err }
func (p *stubPlayer) Resume(context.Context, snowflake.ID) (bool, error)          { return p.ok, p.err }
func (p *stubPlayer) Skip(context.Context, snowflake.ID, int) (bool, error)       { return p.ok, p.err }
func (p *stubPlayer) Previous(context.Context, snowflake.ID) (bool, error)        { return p.ok, p.err }
func (p *stubPlayer) Stop(context.Context, snowflake.ID) (bool, error)            { return p.ok, p.err }
func (p *stubPlayer) SetLoop(context.Context, snowflake.ID, string) (bool, error) { return p.ok, p.err }
func (p *stubPlayer) Shuffle(context.Context, snowflake.ID) (bool, error)         { return p.ok, p.err }

func (p *stubPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume int) (int, error) {
	return max(domain.MinVolume, min(domain.MaxVolume, volume)), p.err
}

func (p *stubPlayer) Seek(context.Context, snowflake.ID, time.Duration) (bool, error) {
	p.seeked = true
	return p.ok, p.err
}

func (p *stubPlayer) ToggleFilter(_ context.Context, _ snowflake.ID, name string) (bool, error) {
	if _, err := domain.ParseFilter(name); err != nil {
		return false, err
	}
	return p.enabled, p.err
}

func (p *stubPlayer) Snapshot(context.Context, snowflake.ID) (domain.QueueSnapshot, error) {
	return p.snapshot, p.err
}

type stubVoiceState struct {
	channelID *snowflake.ID
}

func (s *stubVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (*snowflake.ID, error) {
	return s.channelID, nil
}

type stubHistory struct {
	records []domain.PlayRecord
}

func (s *stubHistory) RecentPlays(context.Context, snowflake.ID, int) ([]domain.PlayRecord, error) {
	return s.records, nil
}

// newTestHandlers wires CommandHandlers to a stub player. The caller is in voice channel 55.
func newTestHandlers(player *stubPlayer, history domain.PlayHistory) *CommandHandlers {
	channelID := snowflake.ID(55)
	return NewCommandHandlers(
		usecases.NewPlaybackService(player),
		usecases.NewQueueService(player, &stubVoiceState{channelID: &channelID}),
		usecases.NewHistoryService(history),
	)
}

func commandInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "1",
			ChannelID: "2",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "3"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

// respondedEmbed returns the single embed of the last response.
func respondedEmbed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()
	if r.LastResponse == nil || r.LastResponse.Data == nil || len(r.LastResponse.Data.Embeds) != 1 {
		t.Fatalf("expected a response with one embed, got %+v", r.LastResponse)
	}
	return r.LastResponse.Data.Embeds[0]
}

// editedEmbed returns the single embed of the last edit.
func editedEmbed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()
	if r.LastEdit == nil || r.LastEdit.Embeds == nil || len(*r.LastEdit.Embeds) != 1 {
		t.Fatalf("expected an edit with one embed, got %+v", r.LastEdit)
	}
	return (*r.LastEdit.Embeds)[0]
}

// playingSnapshot returns a snapshot playing the first title with the rest upcoming.
func playingSnapshot(titles ...string) domain.QueueSnapshot {
	snap := domain.QueueSnapshot{Volume: domain.DefaultVolume}
	for _, title := range titles {
		snap.Songs = append(snap.Songs, testSong(title))
	}
	if len(snap.Songs) > 0 {
		snap.State = domain.StatePlaying
		snap.Playing = true
		snap.CurrentSong = &snap.Songs[0]
	}
	return snap
}
