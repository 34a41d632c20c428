// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jukebot/jukebot/internal/command"
	"github.com/jukebot/jukebot/internal/command/core"
	"github.com/jukebot/jukebot/internal/command/music"
	"github.com/jukebot/jukebot/internal/command/sound"
	"github.com/jukebot/jukebot/internal/config"
	"github.com/jukebot/jukebot/internal/discord"
	"github.com/jukebot/jukebot/internal/logging"
	"github.com/jukebot/jukebot/internal/sounds"
	"github.com/jukebot/jukebot/internal/storage"
	v "github.com/jukebot/jukebot/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFile)
	logger.Info().Str("version", v.AppVersion).Msgf("starting %s", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open datastore")
	}
	defer store.Close()

	signer := sounds.NewSigner(cfg.SoundSecret, cfg.SoundPublicURL, cfg.SoundURLTTL())
	soundSrv := sounds.NewServer(cfg.SoundDir, signer, logger.With().Str("component", "sounds").Logger())

	bot, err := discord.NewBot(cfg, store, signer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot")
	}

	command.Register(
		&music.MusicCommand{Bot: bot},
		command.WithGuildOnly(),
		command.WithCommandLogger(logger),
	)
	command.Register(
		&sound.SoundCommand{Bot: bot},
		command.WithGuildOnly(),
		command.WithCommandLogger(logger),
	)
	command.Register(&core.PingCommand{})

	errCh := make(chan error, 2)
	go func() {
		if err := soundSrv.Run(ctx, cfg.SoundBindAddr); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("bot error")
		}
		cancel()
	case <-ctx.Done():
	}

	logger.Info().Msg("exited cleanly")
}
