package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jukebot/jukebot/internal/storage"
)

// Command is one slash command: metadata plus a Run that receives a
// context struct matching how it was invoked.
type Command interface {
	Name() string
	Description() string
	Group() string
	Category() string
	Run(ctx interface{}) error
}

// SlashProvider is implemented by commands that register a slash definition.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashContext is what the runtime passes when a slash command executes.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
}
