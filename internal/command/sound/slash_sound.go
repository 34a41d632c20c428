package sound

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/command"
	"github.com/jukebot/jukebot/internal/music/format"
	"github.com/jukebot/jukebot/internal/music/playback"
)

type SoundCommand struct {
	Bot bot.Sounds
}

func (c *SoundCommand) Name() string        { return "sound" }
func (c *SoundCommand) Description() string { return "Play sound board clips" }
func (c *SoundCommand) Group() string       { return "sound" }
func (c *SoundCommand) Category() string    { return "🔊 Sound board" }

func (c *SoundCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Play a sound by name",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "name",
						Description: "Sound name",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List available sounds",
			},
		},
	}
}

func (c *SoundCommand) Run(ctx interface{}) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	s := sc.Session
	e := sc.Event

	if len(e.ApplicationCommandData().Options) == 0 {
		return bot.RespondEphemeral(s, e, "Missing subcommand.")
	}
	sub := e.ApplicationCommandData().Options[0]

	switch sub.Name {
	case "play":
		name := ""
		if len(sub.Options) > 0 {
			name = sub.Options[0].StringValue()
		}
		return c.runPlay(s, e, name)
	case "list":
		return c.runList(s, e)
	default:
		return bot.RespondEphemeral(s, e, fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}
}

func (c *SoundCommand) runPlay(s *discordgo.Session, e *discordgo.InteractionCreate, name string) error {
	voiceState, err := c.Bot.FindUserVoiceState(e.GuildID, e.Member.User.ID)
	if err != nil {
		return bot.RespondEphemeral(s, e, "❌ You need to be in a voice channel!")
	}

	fileName, err := c.Bot.Store().GetSound(name)
	if err != nil {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ Error: %v", err))
	}
	if fileName == "" {
		return bot.RespondEphemeral(s, e, "❌ Sound not found.")
	}

	// Sound clips jump the queue but never preempt a stream in flight.
	track := playback.Track{
		Provider: "sound",
		Title:    name,
		Artist:   "Sound board",
		Album:    "Sound board",
		URL:      c.Bot.SoundURL(fileName),
	}
	target := playback.Target{GuildID: e.GuildID, ChannelID: voiceState.ChannelID}
	notify := &soundNotifier{session: s, channelID: e.ChannelID}

	if _, err := c.Bot.Playback().Enqueue(e.GuildID, target, notify, []playback.Track{track}, true); err != nil {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ Error: %v", err))
	}

	return bot.RespondEphemeral(s, e, fmt.Sprintf("🔊 Playing **%s**!", name))
}

func (c *SoundCommand) runList(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	sounds, err := c.Bot.Store().AllSounds()
	if err != nil {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ Error: %v", err))
	}
	if len(sounds) == 0 {
		return bot.RespondEphemeral(s, e, "ℹ️ No sounds configured.")
	}

	names := make([]string, 0, len(sounds))
	for name := range sounds {
		names = append(names, name)
	}
	sort.Strings(names)

	return bot.RespondEphemeral(s, e, "🔊 **Available sounds**\n`"+strings.Join(names, "`, `")+"`")
}

// soundNotifier only reports failures; the ephemeral reply already covers
// the happy path and "now playing" spam per clip would be noise.
type soundNotifier struct {
	session   *discordgo.Session
	channelID string
}

func (n *soundNotifier) NowPlaying(playback.Track) {}

func (n *soundNotifier) TrackFailed(t playback.Track, reason error) {
	_ = bot.Message(n.session, n.channelID, format.TrackFailed(t, reason))
}
