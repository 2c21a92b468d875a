package gateway

import "github.com/bwmarrin/discordgo"

// commandSet is the guild slash-command surface: /newtask plus the three
// channel lifecycle commands.
func commandSet() []*discordgo.ApplicationCommand {
	channelOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionChannel,
			Name:        "channel",
			Description: desc,
			Required:    false,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "newtask",
			Description: "Create a new task channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Task name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "userlimit",
					Description: "Maximum number of users",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Amount / reward",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Work description",
					Required:    true,
				},
				// link stays optional and last
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "link",
					Description: "Task link (optional)",
					Required:    false,
				},
			},
		},
		{
			Name:        "close",
			Description: "Close (lock) a task channel",
			Options:     []*discordgo.ApplicationCommandOption{channelOpt("Channel to close (defaults to current)")},
		},
		{
			Name:        "open",
			Description: "Open (unlock) a task channel",
			Options:     []*discordgo.ApplicationCommandOption{channelOpt("Channel to open (defaults to current)")},
		},
		{
			Name:        "end",
			Description: "End a task and move it to completed category",
			Options:     []*discordgo.ApplicationCommandOption{channelOpt("Channel to end (defaults to current)")},
		},
	}
}
