package internal

import "github.com/vignesh-goutham/bondstress/pkg/notification"

// Interaction is the subset of a Discord interaction the bot reads
type Interaction struct {
	Type      int              `json:"type"`
	Token     string           `json:"token"`
	Member    *Member          `json:"member,omitempty"`
	Data      *InteractionData `json:"data,omitempty"`
	GuildID   string           `json:"guild_id,omitempty"`
	ChannelID string           `json:"channel_id,omitempty"`
}

type Member struct {
	User User `json:"user"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type InteractionData struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Options []CommandOption `json:"options,omitempty"`
}

// CommandOption is one slash command argument
type CommandOption struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Value any    `json:"value"`
}

// Response represents a Discord interaction response
type Response struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

type ResponseData struct {
	Content string                      `json:"content,omitempty"`
	Embeds  []notification.DiscordEmbed `json:"embeds,omitempty"`
	Flags   int                         `json:"flags,omitempty"`
}

const (
	// Discord interaction types
	InteractionTypePing               = 1
	InteractionTypeApplicationCommand = 2

	// Discord response types
	ResponseTypePong                     = 1
	ResponseTypeChannelMessageWithSource = 4

	// Response flags
	ResponseFlagEphemeral = 64
)

func (d *InteractionData) option(name string) string {
	for _, o := range d.Options {
		if o.Name == name {
			if s, ok := o.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
