package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/config"
	"github.com/jukebot/jukebot/internal/music/playback"
	"github.com/jukebot/jukebot/internal/music/providers"
	"github.com/jukebot/jukebot/internal/music/providers/spotify"
	"github.com/jukebot/jukebot/internal/music/providers/youtube"
	"github.com/jukebot/jukebot/internal/music/stream"
	"github.com/jukebot/jukebot/internal/music/voice"
	"github.com/jukebot/jukebot/internal/sounds"
	"github.com/jukebot/jukebot/internal/storage"
)

// Bot owns the Discord session and everything playback needs: the session
// manager, the provider registry and the sound board.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	store   *storage.Storage
	log     zerolog.Logger
	manager *playback.Manager
	reg     *providers.Registry
	signer  *sounds.Signer
}

func NewBot(cfg *config.Config, store *storage.Storage, signer *sounds.Signer, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	opener := stream.NewOpener(stream.OpenerConfig{
		YTDLPPath: cfg.YTDLPPath,
		ProxyURL:  cfg.ProxyURL,
		Logger:    log.With().Str("component", "stream").Logger(),
	})

	manager := playback.NewManager(
		voice.NewConnector(dg, log.With().Str("component", "voice").Logger()),
		voice.NewTransport(opener, log.With().Str("component", "voice").Logger()),
		playback.WithIdleTimeout(cfg.IdleTimeout()),
		playback.WithLogger(log.With().Str("component", "playback").Logger()),
	)

	reg := providers.NewRegistry(
		spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		youtube.New(),
	)

	return &Bot{
		dg:      dg,
		cfg:     cfg,
		store:   store,
		log:     log,
		manager: manager,
		reg:     reg,
		signer:  signer,
	}, nil
}

// Run opens the gateway session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing Discord session")
	return nil
}

// --- bot.Music / bot.Sounds ---

func (b *Bot) Playback() *playback.Manager     { return b.manager }
func (b *Bot) Providers() *providers.Registry  { return b.reg }
func (b *Bot) Store() *storage.Storage         { return b.store }
func (b *Bot) SoundURL(fileName string) string { return b.signer.SignedURL(fileName) }

// FindUserVoiceState finds the voice channel a user is currently in.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*bot.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &bot.VoiceState{ChannelID: vs.ChannelID, UserID: vs.UserID}, nil
		}
	}
	return nil, fmt.Errorf("user not in any voice channel")
}
