package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song or playlist from a URL or search",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "URL or search term",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "Number of songs to skip, including the current one",
					Required:    false,
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "previous",
			Description: "Play the previous song again",
		},
		{
			Name:        "stop",
			Description: "Stop playback, clear the queue and leave the voice channel",
		},
		{
			Name:        "volume",
			Description: "Set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "level",
					Description: "Volume from 0 to 100",
					Required:    true,
					MinValue:    floatPtr(0),
					MaxValue:    100,
				},
			},
		},
		{
			Name:        "loop",
			Description: "Set the loop mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Loop mode to set",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: domain.LoopModeOff.String()},
						{Name: "Song", Value: domain.LoopModeSong.String()},
						{Name: "Queue", Value: domain.LoopModeQueue.String()},
					},
				},
			},
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the upcoming songs",
		},
		{
			Name:        "seek",
			Description: "Jump to a position in the current song",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "position",
					Description: "Position as seconds, mm:ss or hh:mm:ss",
					Required:    true,
				},
			},
		},
		{
			Name:        "filter",
			Description: "Toggle an audio filter",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Filter to toggle",
					Required:    true,
					Choices:     filterChoices(),
				},
			},
		},
		{
			Name:        "queue",
			Description: "Show the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number",
					Required:    false,
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "history",
			Description: "Show recently played songs",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of songs to show",
					Required:    false,
					MinValue:    floatPtr(1),
					MaxValue:    25,
				},
			},
		},
	}
}

func filterChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.AvailableFilters))
	for _, f := range domain.AvailableFilters {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(f),
			Value: string(f),
		})
	}
	return choices
}

func floatPtr(f float64) *float64 {
	return &f
}
