package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/engine"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/resolver"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
	"github.com/sglre6355/jukebox/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/jukebox/internal/modules/music_player/presentation/discord"
)

const (
	initTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	transport *infrastructure.LavalinkTransport
	engine    *engine.Engine

	// Notification fan-out
	eventBus      *infrastructure.ChannelEventBus
	notifications *infrastructure.NotificationEventHandler
	publisher     *infrastructure.RedisEventPublisher
	recorder      *infrastructure.PlayRecorder
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":     m.commandHandlers.HandlePlay,
		"pause":    m.commandHandlers.HandlePause,
		"resume":   m.commandHandlers.HandleResume,
		"skip":     m.commandHandlers.HandleSkip,
		"previous": m.commandHandlers.HandlePrevious,
		"stop":     m.commandHandlers.HandleStop,
		"volume":   m.commandHandlers.HandleVolume,
		"loop":     m.commandHandlers.HandleLoop,
		"shuffle":  m.commandHandlers.HandleShuffle,
		"seek":     m.commandHandlers.HandleSeek,
		"filter":   m.commandHandlers.HandleFilter,
		"queue":    m.commandHandlers.HandleQueue,
		"history":  m.commandHandlers.HandleHistory,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		m.eventHandlers.HandleVoiceServerUpdate,
		m.eventHandlers.HandleVoiceStateUpdate,
		m.eventHandlers.HandleGuildDelete,
		m.handleInteractionCreate,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	cfg.normalize()
	m.config = cfg
	return nil
}

// Init connects to Lavalink and wires the playback engine.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}
	cfg := m.config

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	transport, err := infrastructure.NewLavalinkTransport(ctx, deps.Session, infrastructure.LavalinkConfig{
		Address:  cfg.LavalinkAddress,
		Password: cfg.LavalinkPassword,
		Secure:   cfg.LavalinkSecure,
	})
	if err != nil {
		return err
	}
	m.transport = transport

	// Lookup providers in resolver priority order
	search := infrastructure.NewYouTubeSearchLookup()
	lookups := []ports.LookupProvider{infrastructure.NewLavalinkLookup(transport)}
	streams := []ports.StreamProvider{infrastructure.NewLavalinkStreamProvider()}
	if cfg.YtdlpEnabled {
		ytdlpConfig := infrastructure.YtdlpConfig{
			Proxy:         cfg.YtdlpProxy,
			PlaylistLimit: cfg.PlaylistLimit,
		}
		lookups = append(lookups, infrastructure.NewYtdlpLookup(ytdlpConfig))
		streams = append(streams, infrastructure.NewYtdlpStreamProvider(ytdlpConfig))
	}
	lookups = append(lookups, search, infrastructure.NewYouTubeMusicLookup())

	// Playback events fan out to every subscribed sink
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	userInfoProv := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)
	m.notifications = infrastructure.NewNotificationEventHandler(
		notifier,
		userInfoProv,
		cfg.NotifyRate,
		cfg.NotifyBurst,
	)
	m.eventBus.Subscribe(m.notifications)

	if cfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		m.publisher = infrastructure.NewRedisEventPublisher(client, cfg.RedisChannelPrefix)
		if err := m.publisher.Ping(ctx); err != nil {
			slog.Warn("redis is unreachable, playback events will be retried per publish",
				"address", cfg.RedisAddress, "error", err)
		}
		m.eventBus.Subscribe(m.publisher)
	}

	var history domain.PlayHistory
	if cfg.DatabasePath != "" {
		recorder, err := infrastructure.OpenPlayRecorder(ctx, cfg.DatabasePath)
		if err != nil {
			m.closeSinks()
			transport.Shutdown()
			return err
		}
		m.recorder = recorder
		m.eventBus.Subscribe(recorder)
		history = recorder
	}

	m.engine, err = engine.New(engine.Dependencies{
		Store:     infrastructure.NewMemoryQueueStore(cfg.DefaultVolume),
		Resolver:  resolver.New(cfg.PlaylistLimit, lookups...),
		Transport: transport,
		Streams:   streams,
		Sink:      m.eventBus,
	}, engine.Config{
		IdleTimeout: cfg.IdleTimeout,
	})
	if err != nil {
		m.closeSinks()
		transport.Shutdown()
		return fmt.Errorf("failed to create playback engine: %w", err)
	}

	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)

	m.commandHandlers = discord.NewCommandHandlers(
		usecases.NewPlaybackService(m.engine),
		usecases.NewQueueService(m.engine, voiceState),
		usecases.NewHistoryService(history),
	)
	m.autocomplete = discord.NewAutocompleteHandler(search)
	m.eventHandlers = discord.NewEventHandlers(transport, m.engine, m.notifications)

	slog.Info("initialized music player",
		"lookups", len(lookups),
		"streams", len(streams),
		"idle_timeout", cfg.IdleTimeout,
		"redis", m.publisher != nil,
		"history", m.recorder != nil,
	)

	return nil
}

// Shutdown leaves every voice channel and closes all connections.
func (m *MusicPlayerModule) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Close the engine first so its final events still reach the sinks
	if m.engine != nil {
		m.engine.Close(ctx)
	}

	m.closeSinks()

	if m.transport != nil {
		m.transport.Shutdown()
	}

	return nil
}

func (m *MusicPlayerModule) closeSinks() {
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if m.recorder != nil {
		if err := m.recorder.Close(); err != nil {
			slog.Warn("failed to close play history database", "error", err)
		}
	}
}

func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != "play" {
		return
	}

	if err := m.autocomplete.HandlePlay(s, i, bot.NewDiscordResponder(s, i.Interaction)); err != nil {
		slog.Warn("failed to respond to autocomplete", "command", data.Name, "error", err)
	}
}
