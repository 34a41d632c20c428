package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/command"
	"github.com/jukebot/jukebot/internal/music/format"
	"github.com/jukebot/jukebot/internal/music/playback"
	"github.com/jukebot/jukebot/internal/music/providers"
)

const queuePageSize = 10

type MusicCommand struct {
	Bot bot.Music
}

func (c *MusicCommand) Name() string        { return "music" }
func (c *MusicCommand) Description() string { return "Play and control music" }
func (c *MusicCommand) Group() string       { return "music" }
func (c *MusicCommand) Category() string    { return "🎵 Music" }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Play a track, album or playlist",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "input",
						Description: "Link or search query",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "provider",
						Description: "Override provider auto-detection",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Spotify", Value: "spotify"},
							{Name: "YouTube", Value: "youtube"},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "next",
						Description: "Put the result at the front of the queue",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the current queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip the currently playing track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Clear the queue (current track keeps playing)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: "Join your voice channel",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leave",
				Description: "Leave the voice channel",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx interface{}) error {
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
		var input, provider string
		var playNext bool
		for _, opt := range sub.Options {
			switch opt.Name {
			case "input":
				input = opt.StringValue()
			case "provider":
				provider = opt.StringValue()
			case "next":
				playNext = opt.BoolValue()
			}
		}
		return c.runPlay(s, e, input, provider, playNext)
	case "queue":
		return c.runQueue(s, e)
	case "skip":
		return c.runSkip(s, e)
	case "clear":
		return c.runClear(s, e)
	case "join":
		return c.runJoin(s, e)
	case "leave":
		return c.runLeave(s, e)
	default:
		return bot.RespondEphemeral(s, e, fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}
}

func (c *MusicCommand) runPlay(s *discordgo.Session, e *discordgo.InteractionCreate, input, provider string, playNext bool) error {
	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	guildID := e.GuildID
	voiceState, err := c.Bot.FindUserVoiceState(guildID, e.Member.User.ID)
	if err != nil {
		return bot.EditResponse(s, e, "❌ You need to be in a voice channel!")
	}

	tracks, kind, usedProvider, err := c.Bot.Providers().Resolve(context.Background(), input, provider)
	if err != nil {
		if errors.Is(err, providers.ErrNoResults) {
			return bot.EditResponse(s, e, "❌ No results found for that query.")
		}
		return bot.EditResponse(s, e, fmt.Sprintf("❌ Error: %v", err))
	}

	target := playback.Target{GuildID: guildID, ChannelID: voiceState.ChannelID}
	notify := &channelNotifier{session: s, channelID: e.ChannelID}

	result, err := c.Bot.Playback().Enqueue(guildID, target, notify, tracks, playNext)
	if err != nil {
		if errors.Is(err, playback.ErrNotInSession) {
			return bot.EditResponse(s, e, "❌ You need to be in a voice channel!")
		}
		return bot.EditResponse(s, e, fmt.Sprintf("❌ Error: %v", err))
	}

	return bot.EditResponse(s, e, playFeedback(tracks, kind, usedProvider, playNext, result))
}

// playFeedback renders "started" vs "added" vs "playing next" for single
// tracks and collections.
func playFeedback(tracks []playback.Track, kind providers.Kind, provider string, playNext bool, result playback.EnqueueResult) string {
	if result.Added == 1 {
		line := format.TrackLine(tracks[0])
		switch {
		case !result.AlreadyActive:
			return fmt.Sprintf("✅ **Starting playback** (via %s)\n%s", provider, line)
		case playNext:
			return fmt.Sprintf("▶️ **Playing next** (via %s)\n%s", provider, line)
		default:
			return fmt.Sprintf("📋 **Added to queue** (via %s)\n%s", provider, line)
		}
	}

	label := "Playlist"
	if kind == providers.KindAlbum {
		label = "Album"
	}
	switch {
	case !result.AlreadyActive:
		return fmt.Sprintf("✅ **Starting playback** — %s with %d tracks (via %s)", label, result.Added, provider)
	case playNext:
		return fmt.Sprintf("▶️ **Queued next — %d tracks** from %s (via %s)", result.Added, label, provider)
	default:
		return fmt.Sprintf("📋 **Added %d tracks** from %s to the queue (via %s)", result.Added, label, provider)
	}
}

func (c *MusicCommand) runQueue(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	nowPlaying := c.Bot.Playback().NowPlaying(e.GuildID)
	queue := c.Bot.Playback().Queue(e.GuildID)

	if nowPlaying == nil && len(queue) == 0 {
		return bot.RespondEphemeral(s, e, "ℹ️ Nothing is playing and the queue is empty.")
	}
	return bot.Respond(s, e, format.QueuePage(nowPlaying, queue, 0, queuePageSize))
}

func (c *MusicCommand) runSkip(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	if !c.Bot.Playback().Skip(e.GuildID) {
		return bot.RespondEphemeral(s, e, "❌ Nothing is playing right now.")
	}

	remaining := len(c.Bot.Playback().Queue(e.GuildID))
	if remaining == 0 {
		return bot.Respond(s, e, "⏭️ Skipped. Queue is now empty.")
	}
	return bot.Respond(s, e, fmt.Sprintf("⏭️ Skipped. **%d** %s remaining in queue.",
		remaining, pluralTrack(remaining)))
}

func (c *MusicCommand) runClear(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	cleared := c.Bot.Playback().Clear(e.GuildID)
	if cleared == 0 {
		return bot.RespondEphemeral(s, e, "ℹ️ The queue is already empty.")
	}
	return bot.Respond(s, e, fmt.Sprintf("🗑️ Cleared **%d** %s from the queue.",
		cleared, pluralTrack(cleared)))
}

func (c *MusicCommand) runJoin(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	voiceState, err := c.Bot.FindUserVoiceState(e.GuildID, e.Member.User.ID)
	if err != nil {
		return bot.RespondEphemeral(s, e, "❌ You need to be in a voice channel!")
	}
	target := playback.Target{GuildID: e.GuildID, ChannelID: voiceState.ChannelID}
	if err := c.Bot.Playback().Join(context.Background(), e.GuildID, target); err != nil {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ Error: %v", err))
	}
	return bot.Respond(s, e, "✅ Joined the voice channel!")
}

func (c *MusicCommand) runLeave(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	if !c.Bot.Playback().Leave(e.GuildID) {
		return bot.RespondEphemeral(s, e, "ℹ️ I'm not in a voice channel.")
	}
	return bot.Respond(s, e, "👋 Left the voice channel.")
}

func pluralTrack(n int) string {
	if n == 1 {
		return "track"
	}
	return "tracks"
}

// channelNotifier posts playback status into the text channel the command
// came from.
type channelNotifier struct {
	session   *discordgo.Session
	channelID string
}

func (n *channelNotifier) NowPlaying(t playback.Track) {
	_ = bot.Message(n.session, n.channelID, format.NowPlaying(t))
}

func (n *channelNotifier) TrackFailed(t playback.Track, reason error) {
	_ = bot.Message(n.session, n.channelID, format.TrackFailed(t, reason))
}
