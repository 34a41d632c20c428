package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jukebot/jukebot/internal/command"
)

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("bot is up")

	var defs []*discordgo.ApplicationCommand
	for _, cmd := range command.All() {
		if sp, ok := cmd.(command.SlashProvider); ok {
			defs = append(defs, sp.SlashDefinition())
		}
	}

	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", defs); err != nil {
		b.log.Error().Err(err).Msg("failed to register slash commands")
		return
	}
	b.log.Info().Int("count", len(defs)).Msg("slash commands registered")
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	cmd, ok := command.Get(name)
	if !ok {
		b.log.Warn().Str("command", name).Msg("unknown slash command")
		return
	}

	go func() {
		err := cmd.Run(&command.SlashContext{
			Session: s,
			Event:   i,
			Storage: b.store,
		})
		if err != nil {
			b.log.Error().Err(err).Str("command", name).Msg("command failed")
		}
	}()
}
