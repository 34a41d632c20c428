package command

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error {
	return w.wrap(ctx)
}

// SlashDefinition delegates to the inner command so wrapping keeps the
// registration surface intact.
func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// WithGuildOnly rejects invocations outside a guild (DMs).
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				if v, ok := ctx.(*SlashContext); ok && v.Event.GuildID == "" {
					return v.Session.InteractionRespond(v.Event.Interaction, &discordgo.InteractionResponse{
						Type: discordgo.InteractionResponseChannelMessageWithSource,
						Data: &discordgo.InteractionResponseData{
							Content: "You must be in a server to use this command.",
							Flags:   discordgo.MessageFlagsEphemeral,
						},
					})
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithCommandLogger records invocations to storage and the log before
// running the command.
func WithCommandLogger(log zerolog.Logger) Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx interface{}) error {
				if v, ok := ctx.(*SlashContext); ok && v.Event.Member != nil {
					user := v.Event.Member.User
					log.Info().
						Str("command", cmd.Name()).
						Str("guild", v.Event.GuildID).
						Str("user", user.Username).
						Msg("command invoked")
					if v.Storage != nil {
						if err := logCommand(v, cmd.Name()); err != nil {
							log.Warn().Err(err).Msg("failed to record command history")
						}
					}
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// logCommand resolves channel and guild names from session state before
// writing the history record.
func logCommand(v *SlashContext, commandName string) error {
	channelName := ""
	if channel, err := v.Session.State.Channel(v.Event.ChannelID); err == nil {
		channelName = channel.Name
	}
	guildName := ""
	if guild, err := v.Session.State.Guild(v.Event.GuildID); err == nil {
		guildName = guild.Name
	}
	user := v.Event.Member.User
	return v.Storage.SetCommand(
		v.Event.GuildID, v.Event.ChannelID, channelName, guildName,
		user.ID, user.Username, commandName,
	)
}
