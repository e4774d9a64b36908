package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// CommandContext carries one inbound command through its handler: the
// deadline-bound context, the session, the triggering message, and a
// logger pre-tagged with the message's coordinates.
type CommandContext struct {
	context.Context

	session *discordgo.Session
	message *discordgo.MessageCreate
	args    []string

	log *logrus.Entry
}

func NewCommandContext(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) *CommandContext {
	fields := logrus.Fields{
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
	}
	if m.Author != nil {
		fields["sender_id"] = m.Author.ID
		fields["sender_name"] = m.Author.Username
	}
	if len(args) > 0 {
		fields["command"] = args[0]
	}

	return &CommandContext{
		Context: ctx,
		session: s,
		message: m,
		args:    args,
		log:     logrus.WithFields(fields),
	}
}

func (cc *CommandContext) L() *logrus.Entry {
	return cc.log
}

func (cc *CommandContext) Session() *discordgo.Session {
	return cc.session
}

func (cc *CommandContext) Message() *discordgo.MessageCreate {
	return cc.message
}

func (cc *CommandContext) Sender() *discordgo.User {
	return cc.message.Author
}

func (cc *CommandContext) ChannelID() string {
	return cc.message.ChannelID
}

func (cc *CommandContext) GuildID() string {
	return cc.message.GuildID
}

// Args are the whitespace-split tokens after the prefix, command first.
func (cc *CommandContext) Args() []string {
	return cc.args
}

// Mentions returns the users mentioned in the message, in order.
func (cc *CommandContext) Mentions() []*discordgo.User {
	return cc.message.Mentions
}

func (cc *CommandContext) FirstMention() *discordgo.User {
	if len(cc.message.Mentions) == 0 {
		return nil
	}
	return cc.message.Mentions[0]
}

// Reply sends plain text to the invoking channel.
func (cc *CommandContext) Reply(content string) {
	if _, err := cc.session.ChannelMessageSend(cc.message.ChannelID, content); err != nil {
		cc.log.Errorf("failed to send reply: %v", err)
	}
}

// ReplyEmbed sends an embed to the invoking channel.
func (cc *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) {
	if _, err := cc.session.ChannelMessageSendEmbed(cc.message.ChannelID, embed); err != nil {
		cc.log.Errorf("failed to send embed: %v", err)
	}
}
