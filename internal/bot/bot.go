// Package bot wires the Discord command surface onto the ledger.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/blademasters/bladebot/internal/config"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/models"
	"github.com/blademasters/bladebot/internal/roblox"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

type Bot struct {
	config  *config.Config
	ledger  *ledger.Ledger
	session *discordgo.Session
	roblox  *roblox.Client

	tickets *ticketCache
	prompts *promptRegistry
}

func New(cfg *config.Config, ldg *ledger.Ledger, session *discordgo.Session, robloxClient *roblox.Client) *Bot {
	return &Bot{
		config:  cfg,
		ledger:  ldg,
		session: session,
		roblox:  robloxClient,
		tickets: newTicketCache(ldg.Storage()),
		prompts: newPromptRegistry(),
	}
}

// Run opens the gateway session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.tickets.warm(ctx); err != nil {
		return fmt.Errorf("warming ticket cache: %w", err)
	}

	b.session.AddHandler(b.handleMessageCreate)
	b.session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers | discordgo.IntentMessageContent

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	logrus.Info("discord session open")
	<-ctx.Done()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	// A registered prompt for this author/channel eats the message.
	if b.prompts.deliver(m) {
		return
	}

	if !strings.HasPrefix(m.Content, b.config.CommandPrefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(m.Content, b.config.CommandPrefix))
	if len(args) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.BotHandleTimeout)
	defer cancel()

	cc := NewCommandContext(ctx, s, m, args)
	cc.L().Debugf("dispatching command %q", m.Content)

	if err := b.dispatch(cc); err != nil {
		b.reportError(cc, err)
	}
}

func (b *Bot) dispatch(cc *CommandContext) error {
	switch cc.Args()[0] {
	case "duel":
		return b.cmdDuel(cc)
	case "accept":
		return b.cmdAccept(cc)
	case "decline":
		return b.cmdDecline(cc)
	case "cancel":
		return b.cmdCancel(cc)
	case "challenges":
		return b.cmdChallenges(cc)
	case "stats":
		return b.cmdStats(cc)
	case "leaderboard", "lb":
		return b.cmdLeaderboard(cc)
	case "ranks":
		return b.cmdRanks(cc)
	case "compare":
		return b.cmdCompare(cc)
	case "search":
		return b.cmdSearch(cc)
	case "preview":
		return b.cmdPreview(cc)
	case "link":
		return b.cmdLink(cc)
	case "settings":
		return b.cmdSettings(cc)
	case "pending":
		return b.cmdPending(cc)
	case "confirm":
		return b.cmdConfirm(cc)
	case "reject":
		return b.cmdReject(cc)
	case "log":
		return b.cmdLog(cc)
	case "close":
		return b.cmdClose(cc)
	case "evaluate":
		return b.cmdEvaluate(cc)
	case "syncroster":
		return b.cmdSyncRoster(cc)
	case "help":
		return b.cmdHelp(cc)
	default:
		// Not ours; stay quiet so other bots can share the prefix.
		return nil
	}
}

// reportError converts a handler failure into a user-visible reply.
// Business errors carry their own message; anything else is logged and
// masked.
func (b *Bot) reportError(cc *CommandContext, err error) {
	if ledger.IsBusiness(err) {
		cc.ReplyEmbed(errorEmbed(userMessage(err)))
		return
	}
	cc.L().Errorf("command failed: %v", err)
	cc.ReplyEmbed(errorEmbed("Something went wrong, please try again later."))
}

// sender resolves the invoking member's ladder identity, registering
// them on first contact.
func (b *Bot) sender(cc *CommandContext) (*models.User, error) {
	return b.ledger.Resolve(cc, ledger.ParticipantRef{
		Kind:        ledger.LiveMember,
		DiscordID:   cc.Sender().ID,
		DisplayName: displayName(cc.Sender()),
	})
}

// mentioned resolves a mentioned user the same way.
func (b *Bot) mentioned(cc *CommandContext, u *discordgo.User) (*models.User, error) {
	return b.ledger.Resolve(cc, ledger.ParticipantRef{
		Kind:        ledger.LiveMember,
		DiscordID:   u.ID,
		DisplayName: displayName(u),
	})
}

// notifyDuel and notifyRank DM a member about duel or rank events,
// honoring their notification toggles. Failures are logged and dropped;
// notifications never fail a command.
func (b *Bot) notifyDuel(cc *CommandContext, user *models.User, embed *discordgo.MessageEmbed) {
	b.notify(cc, user, embed, func(s *models.UserSettings) bool { return s.DuelNotifications })
}

func (b *Bot) notifyRank(cc *CommandContext, user *models.User, embed *discordgo.MessageEmbed) {
	b.notify(cc, user, embed, func(s *models.UserSettings) bool { return s.RankNotifications })
}

func (b *Bot) notify(cc *CommandContext, user *models.User, embed *discordgo.MessageEmbed, wants func(*models.UserSettings) bool) {
	settings, err := b.ledger.Storage().GetOrCreateSettings(cc, user.ID)
	if err != nil {
		cc.L().Errorf("failed to load settings for %s: %v", user.DisplayName, err)
		return
	}
	if !wants(settings) {
		return
	}

	dm, err := cc.Session().UserChannelCreate(user.DiscordID)
	if err != nil {
		cc.L().Errorf("failed to open DM with %s: %v", user.DisplayName, err)
		return
	}
	if _, err := cc.Session().ChannelMessageSendEmbed(dm.ID, embed); err != nil {
		cc.L().Errorf("failed to DM %s: %v", user.DisplayName, err)
	}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
