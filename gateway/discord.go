package gateway

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Bot adapts a discordgo session to the Gateway interface and converts
// platform events into the core's event types.
type Bot struct {
	session *discordgo.Session

	// OnMessage and OnCommand must be set before Open.
	OnMessage func(ctx context.Context, ev MessageEvent)
	OnCommand func(ctx context.Context, ev CommandEvent, r Responder)
}

func NewBot(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers

	b := &Bot{session: session}
	session.AddHandler(b.ready)
	session.AddHandler(b.messageCreate)
	session.AddHandler(b.interactionCreate)
	return b, nil
}

func (b *Bot) Open() error {
	return b.session.Open()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// RegisterCommands overwrites the guild's slash commands with the bot's set.
func (b *Bot) RegisterCommands(appID, guildID string) error {
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, guildID, commandSet())
	return err
}

func (b *Bot) ready(s *discordgo.Session, _ *discordgo.Ready) {
	log.Printf("[gateway] logged in as %s", s.State.User.String())
	if err := s.UpdateWatchStatus(0, "Deleting Deadlines"); err != nil {
		log.Printf("[gateway] set presence: %v", err)
	}
}

func (b *Bot) messageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if b.OnMessage == nil || m.GuildID == "" {
		return
	}
	ev := MessageEvent{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		AuthorID:  m.Author.ID,
		BotAuthor: m.Author.Bot,
	}
	for _, att := range m.Attachments {
		ev.Attachments = append(ev.Attachments, Attachment{
			ContentType: att.ContentType,
			Filename:    att.Filename,
		})
	}
	b.OnMessage(context.Background(), ev)
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.OnCommand == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.Member == nil {
		return // guild commands only
	}
	data := i.ApplicationCommandData()
	ev := CommandEvent{
		Kind:         data.Name,
		GuildID:      i.GuildID,
		ChannelID:    i.ChannelID,
		InvokerID:    i.Member.User.ID,
		InvokerAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, opt := range data.Options {
		switch opt.Name {
		case "name":
			ev.Name = opt.StringValue()
		case "userlimit":
			ev.UserLimit = int(opt.IntValue())
		case "amount":
			ev.Amount = opt.StringValue()
		case "description":
			ev.Description = opt.StringValue()
		case "link":
			ev.Link = opt.StringValue()
		case "channel":
			if ch := opt.ChannelValue(nil); ch != nil {
				ev.TargetChannelID = ch.ID
			}
		}
	}
	b.OnCommand(context.Background(), ev, &interactionResponder{session: s, interaction: i.Interaction})
}

type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Reply(content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (r *interactionResponder) Defer(ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func (r *interactionResponder) Edit(content string) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

/* -------- Gateway implementation -------- */

func (b *Bot) CreateRole(ctx context.Context, guildID, name string) (string, error) {
	role, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (b *Bot) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return b.session.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx))
}

func (b *Bot) CreateTaskChannel(ctx context.Context, guildID, name, parentID, adminID string) (string, error) {
	everyone := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory)
	admin := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionManageChannels)
	ch, err := b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:    guildID, // @everyone shares the guild ID
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: everyone,
			},
			{
				ID:    adminID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: admin,
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (b *Bot) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := b.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) SetChannelParent(ctx context.Context, channelID, parentID string) error {
	_, err := b.session.ChannelEdit(channelID, &discordgo.ChannelEdit{ParentID: parentID}, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) SetSendMessages(ctx context.Context, guildID, channelID string, allow bool) error {
	base := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
	send := int64(discordgo.PermissionSendMessages)
	if allow {
		return b.session.ChannelPermissionSet(channelID, guildID,
			discordgo.PermissionOverwriteTypeRole, base|send, 0, discordgo.WithContext(ctx))
	}
	return b.session.ChannelPermissionSet(channelID, guildID,
		discordgo.PermissionOverwriteTypeRole, base, send, discordgo.WithContext(ctx))
}

func (b *Bot) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := b.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (b *Bot) PinMessage(ctx context.Context, channelID, messageID string) error {
	return b.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx))
}

func (b *Bot) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return b.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func (b *Bot) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return b.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (b *Bot) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := b.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return member.Roles, nil
}

func (b *Bot) ListChannelNames(ctx context.Context, guildID string) ([]string, error) {
	channels, err := b.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			names = append(names, ch.Name)
		}
	}
	return names, nil
}
