package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"

	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// commandTimeout bounds a single command, including song resolution and voice join.
const commandTimeout = 30 * time.Second

// errGuildOnly is returned for interactions outside of a guild.
var errGuildOnly = errors.New("this command can only be used in a server")

// userErrors are rendered verbatim. Anything else is logged and reported generically.
var userErrors = []error{
	errGuildOnly,
	usecases.ErrUserNotInVoice,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrNoResults,
	usecases.ErrLoadFailed,
	usecases.ErrConnectionFailed,
	usecases.ErrSuperseded,
	usecases.ErrNoHistory,
	usecases.ErrInvalidLoopMode,
	usecases.ErrNothingToShuffle,
	usecases.ErrInvalidPosition,
	usecases.ErrUnknownFilter,
	usecases.ErrHistoryDisabled,
	errInvalidSeekPosition,
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	playback *usecases.PlaybackService
	queue    *usecases.QueueService
	history  *usecases.HistoryService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	history *usecases.HistoryService,
) *CommandHandlers {
	return &CommandHandlers{
		playback: playback,
		queue:    queue,
		history:  history,
	}
}

// HandlePlay handles the /play command.
// Resolution and voice join can take longer than Discord's response window,
// so the response is deferred and edited once the songs are enqueued.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, errors.New("invalid notification channel"))
	}

	query := stringOption(i.ApplicationCommandData().Options, "query")

	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.queue.Play(ctx, usecases.PlayInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: channelID,
		Query:                 query,
	})
	if err != nil {
		return editEmbed(r, errorEmbed(err))
	}

	return editEmbed(r, successEmbed(describeEnqueued(output)))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Pause(ctx, guildID); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Paused.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Resume(ctx, guildID); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Resumed.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	count := int(intOption(i.ApplicationCommandData().Options, "count", 1))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.Skip(ctx, usecases.SkipInput{GuildID: guildID, Count: count})
	if err != nil {
		return respondError(r, err)
	}

	var description string
	switch {
	case output.SkippedSong == nil:
		description = "Skipped."
	case count > 1:
		description = fmt.Sprintf("Skipped %s and %d more.", songLink(*output.SkippedSong), count-1)
	default:
		description = fmt.Sprintf("Skipped %s.", songLink(*output.SkippedSong))
	}
	if output.NextSong == nil {
		description += " The queue is now empty."
	}
	return respondSuccess(r, description)
}

// HandlePrevious handles the /previous command.
func (h *CommandHandlers) HandlePrevious(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	song, err := h.playback.Previous(ctx, guildID)
	if err != nil {
		return respondError(r, err)
	}
	if song == nil {
		return respondSuccess(r, "Playing the previous song again.")
	}
	return respondSuccess(r, fmt.Sprintf("Playing %s again.", songLink(*song)))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Stop(ctx, guildID); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	level := int(intOption(i.ApplicationCommandData().Options, "level", domain.DefaultVolume))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	volume, err := h.playback.SetVolume(ctx, guildID, level)
	if err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Volume set to **%d%%**.", volume))
}

// HandleLoop handles the /loop command.
func (h *CommandHandlers) HandleLoop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	mode := stringOption(i.ApplicationCommandData().Options, "mode")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.SetLoopMode(ctx, guildID, mode)
	if err != nil {
		return respondError(r, err)
	}

	var description string
	switch output.Mode {
	case domain.LoopModeSong:
		description = "Now looping the current song."
	case domain.LoopModeQueue:
		description = "Now looping the queue."
	default:
		description = "Loop disabled."
	}
	return respondSuccess(r, description)
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Shuffle(ctx, guildID); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Shuffled the upcoming songs.")
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	position, err := parseSeekPosition(stringOption(i.ApplicationCommandData().Options, "position"))
	if err != nil {
		return respondError(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.playback.Seek(ctx, usecases.SeekInput{GuildID: guildID, Position: position}); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Jumped to **%s**.", domain.FormatDuration(position)))
}

// HandleFilter handles the /filter command.
func (h *CommandHandlers) HandleFilter(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	name := stringOption(i.ApplicationCommandData().Options, "name")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.playback.ToggleFilter(ctx, guildID, name)
	if err != nil {
		return respondError(r, err)
	}

	state := "Disabled"
	if output.Enabled {
		state = "Enabled"
	}
	description := fmt.Sprintf("%s **%s**.", state, output.Filter)
	if len(output.Active) > 0 {
		description += fmt.Sprintf(" Active filters: %s.", joinFilters(output.Active))
	}
	return respondSuccess(r, description)
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	page := int(intOption(i.ApplicationCommandData().Options, "page", 1))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.queue.List(ctx, usecases.QueueListInput{
		GuildID: guildID,
		Page:    page,
	})
	if err != nil {
		return respondError(r, err)
	}

	return respondEmbed(r, queueEmbed(output))
}

// HandleHistory handles the /history command.
func (h *CommandHandlers) HandleHistory(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, err := invoker(i)
	if err != nil {
		return respondError(r, err)
	}

	limit := int(intOption(i.ApplicationCommandData().Options, "limit", usecases.DefaultHistoryLimit))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	records, err := h.history.Recent(ctx, guildID, limit)
	if err != nil {
		return respondError(r, err)
	}

	embed := &discordgo.MessageEmbed{Title: "Recently Played"}
	if len(records) == 0 {
		embed.Description = "Nothing has been played yet."
		return respondEmbed(r, embed)
	}

	var sb strings.Builder
	for idx, rec := range records {
		title := rec.Title
		if rec.URL != "" {
			title = fmt.Sprintf("[%s](%s)", rec.Title, rec.URL)
		}
		fmt.Fprintf(&sb, "%d\\. %s <t:%d:R>\n", idx+1, title, rec.PlayedAt.Unix())
	}
	embed.Description = sb.String()
	return respondEmbed(r, embed)
}

// Option helpers.

func invoker(i *discordgo.InteractionCreate) (guildID, userID snowflake.ID, err error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return 0, 0, errGuildOnly
	}

	guildID, err = snowflake.Parse(i.GuildID)
	if err != nil {
		return 0, 0, errors.New("invalid guild")
	}

	userID, err = snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return 0, 0, errors.New("invalid user")
	}

	return guildID, userID, nil
}

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	return lo.Find(options, func(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
		return opt.Name == name
	})
}

func stringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := findOption(options, name); ok {
		return opt.StringValue()
	}
	return ""
}

func intOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
	fallback int64,
) int64 {
	if opt, ok := findOption(options, name); ok {
		return opt.IntValue()
	}
	return fallback
}

var errInvalidSeekPosition = errors.New("position must be seconds, mm:ss or hh:mm:ss")

// parseSeekPosition parses "90", "1:30" or "1:02:03".
func parseSeekPosition(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidSeekPosition
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errInvalidSeekPosition
	}

	var total int
	for idx, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, errInvalidSeekPosition
		}
		// Only the leading field may exceed 59.
		if idx > 0 && n >= 60 {
			return 0, errInvalidSeekPosition
		}
		total = total*60 + n
	}

	return time.Duration(total) * time.Second, nil
}

// Rendering helpers.

func describeEnqueued(output *usecases.PlayOutput) string {
	if len(output.Songs) == 0 {
		return "Nothing was added."
	}

	if len(output.Songs) > 1 {
		if output.Started {
			return fmt.Sprintf("Added **%d songs** to the queue, starting with %s.",
				len(output.Songs), songLink(output.Songs[0]))
		}
		return fmt.Sprintf("Added **%d songs** to the queue at position %d.",
			len(output.Songs), output.Position)
	}

	song := output.Songs[0]
	if output.Started {
		return fmt.Sprintf("Playing %s `%s`.", songLink(song), song.FormattedDuration())
	}
	return fmt.Sprintf("Added %s `%s` to the queue at position %d.",
		songLink(song), song.FormattedDuration(), output.Position)
}

func queueEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	// Build title with loop and shuffle indicators
	title := "Queue"
	switch output.LoopMode {
	case domain.LoopModeSong:
		title += " \U0001F502" // 🔂
	case domain.LoopModeQueue:
		title += " \U0001F501" // 🔁
	}
	if output.ShuffleEnabled {
		title += " \U0001F500" // 🔀
	}

	embed := &discordgo.MessageEmbed{Title: title}

	footer := fmt.Sprintf("Page %d/%d · %d upcoming · %s · Volume %d%%",
		output.CurrentPage, output.TotalPages, output.TotalSongs,
		domain.FormatDuration(output.TotalDuration), output.Volume)
	if len(output.Filters) > 0 {
		footer += " · " + joinFilters(output.Filters)
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}

	if output.CurrentSong == nil && output.TotalSongs == 0 {
		embed.Description = "Queue is empty."
		return embed
	}

	var sb strings.Builder
	if output.CurrentSong != nil {
		heading := "### Now Playing\n"
		if output.Paused {
			heading = "### Paused\n"
		}
		sb.WriteString(heading)
		writeSongLine(&sb, 0, *output.CurrentSong)
	}

	if len(output.Songs) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, song := range output.Songs {
			writeSongLine(&sb, output.PageOffset+idx, song)
		}
	}

	embed.Description = sb.String()
	return embed
}

// writeSongLine writes a single song line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
// Position 0 is the current song and is written without a number.
func writeSongLine(sb *strings.Builder, position int, song domain.Song) {
	if position > 0 {
		fmt.Fprintf(sb, "%d\\. ", position)
	}
	fmt.Fprintf(sb, "%s `%s`", songLink(song), song.FormattedDuration())
	if song.RequestedBy != 0 {
		fmt.Fprintf(sb, " <@%d>", song.RequestedBy)
	}
	sb.WriteString("\n")
}

func songLink(song domain.Song) string {
	if song.URL != "" {
		return fmt.Sprintf("[%s](%s)", song.Title, song.URL)
	}
	return fmt.Sprintf("**%s**", song.Title)
}

func joinFilters(filters []domain.Filter) string {
	return strings.Join(lo.Map(filters, func(f domain.Filter, _ int) string {
		return string(f)
	}), ", ")
}

// Response helpers.

func errorMessage(err error) string {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			msg := target.Error()
			return strings.ToUpper(msg[:1]) + msg[1:] + "."
		}
	}

	slog.Error("music command failed", "error", err)
	return "Something went wrong, try again later."
}

func successEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}
}

func errorEmbed(err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: errorMessage(err),
		Color:       colorError,
	}
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, successEmbed(description))
}

func respondError(r bot.Responder, err error) error {
	return respondEmbed(r, errorEmbed(err))
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	embeds := []*discordgo.MessageEmbed{embed}
	return r.Edit(&discordgo.WebhookEdit{Embeds: &embeds})
}
