package core

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/command"
)

type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check that the bot is alive" }
func (c *PingCommand) Group() string       { return "core" }
func (c *PingCommand) Category() string    { return "🕯️ Information" }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *PingCommand) Run(ctx interface{}) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	return bot.RespondEphemeral(sc.Session, sc.Event,
		fmt.Sprintf("🏓 Pong! Gateway latency: %dms", sc.Session.HeartbeatLatency().Milliseconds()))
}
