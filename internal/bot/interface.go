package bot

import (
	"github.com/jukebot/jukebot/internal/music/playback"
	"github.com/jukebot/jukebot/internal/music/providers"
	"github.com/jukebot/jukebot/internal/storage"
)

// VoiceState holds minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}

// Music is the surface the music command needs from the Discord bot.
type Music interface {
	Playback() *playback.Manager
	Providers() *providers.Registry
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}

// Sounds is the surface the sound command needs from the Discord bot.
type Sounds interface {
	Playback() *playback.Manager
	Store() *storage.Storage
	SoundURL(fileName string) string
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}
