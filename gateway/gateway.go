package gateway

import "context"

// Attachment is one file attached to an inbound message. ContentType may be
// empty; the platform does not always supply it.
type Attachment struct {
	ContentType string
	Filename    string
}

// MessageEvent is an inbound guild message.
type MessageEvent struct {
	MessageID   string
	ChannelID   string
	GuildID     string
	AuthorID    string
	BotAuthor   bool
	Attachments []Attachment
}

// CommandEvent is an inbound administrative slash command.
type CommandEvent struct {
	Kind      string // "newtask", "close", "open" or "end"
	GuildID   string
	ChannelID string // channel the command was issued from
	InvokerID string
	// InvokerAdmin is the platform-level administrator bit, resolved at the
	// boundary. Membership in a configured admin role is checked separately
	// via MemberRoles.
	InvokerAdmin bool

	// newtask arguments.
	Name        string
	UserLimit   int
	Amount      string
	Description string
	Link        string

	// close/open/end optional target; empty means the originating channel.
	TargetChannelID string
}

// Responder acknowledges a command. Each handler must resolve it exactly
// once on every path, either Reply or Defer followed by Edit.
type Responder interface {
	Reply(content string, ephemeral bool) error
	Defer(ephemeral bool) error
	Edit(content string) error
}

// Gateway is the messaging-platform boundary the core calls into.
type Gateway interface {
	CreateRole(ctx context.Context, guildID, name string) (roleID string, err error)
	DeleteRole(ctx context.Context, guildID, roleID string) error

	// CreateTaskChannel provisions a text channel under parentID with
	// default participant permissions (view, send, read history) and
	// elevated permissions for adminID.
	CreateTaskChannel(ctx context.Context, guildID, name, parentID, adminID string) (channelID string, err error)
	DeleteChannel(ctx context.Context, channelID string) error
	SetChannelParent(ctx context.Context, channelID, parentID string) error

	// SetSendMessages flips the send-messages permission for the general
	// participant role in a channel.
	SetSendMessages(ctx context.Context, guildID, channelID string, allow bool) error

	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)

	// ListChannelNames returns the names of the guild's text channels, for
	// sequential task numbering.
	ListChannelNames(ctx context.Context, guildID string) ([]string, error)
}
