package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/models"
)

// cmdDuel issues a challenge: `duel <friendly|official|promotion> [@user]`.
// Without a mention the challenge is open to anyone eligible.
func (b *Bot) cmdDuel(cc *CommandContext) error {
	if len(cc.Args()) < 2 {
		cc.ReplyEmbed(infoEmbed("Usage", fmt.Sprintf(
			"`%sduel <friendly|official|promotion> [@user]`", b.config.CommandPrefix)))
		return nil
	}

	ctype, err := models.ParseChallengeType(cc.Args()[1])
	if err != nil {
		return fmt.Errorf("%w: unknown duel type %q, expected friendly, official or promotion",
			ledger.ErrValidation, cc.Args()[1])
	}

	challenger, err := b.sender(cc)
	if err != nil {
		return err
	}

	var target *models.User
	if mention := cc.FirstMention(); mention != nil {
		target, err = b.mentioned(cc, mention)
		if err != nil {
			return err
		}
	}

	challenge, err := b.ledger.CreateChallenge(cc, challenger, target, ctype)
	if err != nil {
		return err
	}

	desc := fmt.Sprintf("%s has issued an open %s challenge!", challenger.DisplayName, ctype)
	if target != nil {
		desc = fmt.Sprintf("%s has challenged %s to a %s duel!", challenger.DisplayName, target.DisplayName, ctype)
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Challenge issued",
		Description: desc,
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Challenge ID", Value: strconv.FormatUint(uint64(challenge.ID), 10), Inline: true},
			{Name: "Expires", Value: fmt.Sprintf("<t:%d:R>", challenge.ExpiresAt.Unix()), Inline: true},
		},
	}

	// An open promotion challenge names who may pick it up.
	if ctype == models.ChallengeTypePromotion && target == nil {
		if targets, next, err := b.ledger.PromotionTargets(cc, challenger); err == nil {
			names := make([]string, 0, len(targets))
			for _, t := range targets {
				names = append(names, t.DisplayName)
			}
			value := "nobody holds this rank yet"
			if len(names) > 0 {
				value = strings.Join(names, ", ")
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("Eligible opponents (%s)", next),
				Value: value,
			})
		}
	}

	cc.ReplyEmbed(embed)

	if target != nil {
		b.notifyDuel(cc, target, infoEmbed("You have been challenged",
			fmt.Sprintf("%s challenged you to a %s duel. Use `%saccept` or `%sdecline` in the server.",
				challenger.DisplayName, ctype, b.config.CommandPrefix, b.config.CommandPrefix)))
	}
	return nil
}

// cmdAccept resolves a pending challenge: `accept <id>` or `accept @user`
// to accept that user's challenge against you.
func (b *Bot) cmdAccept(cc *CommandContext) error {
	accepter, err := b.sender(cc)
	if err != nil {
		return err
	}

	challengeID, err := b.resolveChallengeRef(cc, accepter)
	if err != nil {
		return err
	}

	challenge, err := b.ledger.AcceptChallenge(cc, accepter, challengeID)
	if err != nil {
		return err
	}

	challenger, err := b.ledger.Storage().GetUser(cc, challenge.ChallengerID)
	if err != nil {
		return err
	}

	cc.ReplyEmbed(successEmbed("Challenge accepted",
		fmt.Sprintf("%s accepted the %s challenge from %s.",
			accepter.DisplayName, challenge.ChallengeType, challenger.DisplayName)))

	// The duel gets a private coordination channel. Losing it is a
	// degraded success, not a failed accept.
	channel, err := b.openTicketChannel(cc, challenge,
		challenger.DiscordID, accepter.DiscordID,
		challenger.DisplayName, accepter.DisplayName)
	if err != nil {
		cc.L().Errorf("failed to open ticket channel for challenge %d: %v", challenge.ID, err)
		cc.ReplyEmbed(infoEmbed("Heads up",
			"The duel is on, but I could not open a ticket channel. Ask a moderator to coordinate."))
		return nil
	}

	if err := b.ledger.AttachTicket(cc, challenge.ID, channel.ID); err != nil {
		cc.L().Errorf("failed to attach ticket %s to challenge %d: %v", channel.ID, challenge.ID, err)
	}

	title := string(challenge.ChallengeType)
	title = strings.ToUpper(title[:1]) + title[1:]
	if _, err := cc.Session().ChannelMessageSendEmbed(channel.ID, infoEmbed(
		fmt.Sprintf("%s duel", title),
		fmt.Sprintf("<@%s> vs <@%s> — coordinate here. A moderator will log the result with `%slog duel`.",
			challenger.DiscordID, accepter.DiscordID, b.config.CommandPrefix))); err != nil {
		cc.L().Errorf("failed to post ticket intro: %v", err)
	}

	return nil
}

// cmdDecline refuses a pending challenge addressed to the sender.
func (b *Bot) cmdDecline(cc *CommandContext) error {
	decliner, err := b.sender(cc)
	if err != nil {
		return err
	}

	challengeID, err := b.resolveChallengeRef(cc, decliner)
	if err != nil {
		return err
	}

	if err := b.ledger.DeclineChallenge(cc, decliner, challengeID); err != nil {
		return err
	}
	cc.ReplyEmbed(infoEmbed("Challenge declined", fmt.Sprintf("Challenge %d was declined.", challengeID)))
	return nil
}

// cmdCancel withdraws the sender's own pending challenge.
func (b *Bot) cmdCancel(cc *CommandContext) error {
	canceller, err := b.sender(cc)
	if err != nil {
		return err
	}

	var challengeID uint
	if len(cc.Args()) > 1 {
		id, err := parseID(cc.Args()[1])
		if err != nil {
			return err
		}
		challengeID = id
	} else {
		pending, err := b.ledger.PendingChallengesBy(cc, canceller)
		if err != nil {
			return err
		}
		switch len(pending) {
		case 0:
			return fmt.Errorf("%w: you have no pending challenges to cancel", ledger.ErrNotFound)
		case 1:
			challengeID = pending[0].ID
		default:
			return fmt.Errorf("%w: you have several pending challenges, specify an id", ledger.ErrValidation)
		}
	}

	if err := b.ledger.CancelChallenge(cc, canceller, challengeID); err != nil {
		return err
	}
	cc.ReplyEmbed(infoEmbed("Challenge cancelled", fmt.Sprintf("Challenge %d was withdrawn.", challengeID)))
	return nil
}

// cmdChallenges lists the sender's pending challenges, both directions.
func (b *Bot) cmdChallenges(cc *CommandContext) error {
	user, err := b.sender(cc)
	if err != nil {
		return err
	}

	incoming, err := b.ledger.PendingChallengesFor(cc, user)
	if err != nil {
		return err
	}
	outgoing, err := b.ledger.PendingChallengesBy(cc, user)
	if err != nil {
		return err
	}

	if len(incoming) == 0 && len(outgoing) == 0 {
		cc.ReplyEmbed(infoEmbed("Challenges", "You have no pending challenges."))
		return nil
	}

	embed := &discordgo.MessageEmbed{Title: "Pending challenges", Color: colorInfo}
	if len(incoming) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Incoming",
			Value: b.formatChallenges(cc, incoming),
		})
	}
	if len(outgoing) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Outgoing",
			Value: b.formatChallenges(cc, outgoing),
		})
	}
	cc.ReplyEmbed(embed)
	return nil
}

func (b *Bot) formatChallenges(cc *CommandContext, challenges []*models.Challenge) string {
	var sb strings.Builder
	for _, ch := range challenges {
		challenger, err := b.ledger.Storage().GetUser(cc, ch.ChallengerID)
		name := "unknown"
		if err == nil {
			name = challenger.DisplayName
		}
		scope := "open"
		if !ch.Open() {
			scope = "direct"
		}
		fmt.Fprintf(&sb, "`#%d` %s %s by **%s**, expires <t:%d:R>\n",
			ch.ID, scope, ch.ChallengeType, name, ch.ExpiresAt.Unix())
	}
	return sb.String()
}

// resolveChallengeRef turns the command argument (numeric id, mention, or
// nothing) into a concrete challenge id actionable by user.
func (b *Bot) resolveChallengeRef(cc *CommandContext, user *models.User) (uint, error) {
	if mention := cc.FirstMention(); mention != nil {
		challenger, err := b.mentioned(cc, mention)
		if err != nil {
			return 0, err
		}
		challenge, err := b.ledger.FindChallengeBetween(cc, challenger, user)
		if err != nil {
			return 0, err
		}
		return challenge.ID, nil
	}

	if len(cc.Args()) > 1 {
		return parseID(cc.Args()[1])
	}

	pending, err := b.ledger.PendingChallengesFor(cc, user)
	if err != nil {
		return 0, err
	}
	switch len(pending) {
	case 0:
		return 0, fmt.Errorf("%w: no pending challenge found for you", ledger.ErrNotFound)
	case 1:
		return pending[0].ID, nil
	default:
		return 0, fmt.Errorf("%w: several challenges match, specify an id or mention the challenger", ledger.ErrValidation)
	}
}

func parseID(s string) (uint, error) {
	s = strings.TrimPrefix(s, "#")
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid id", ledger.ErrValidation, s)
	}
	return uint(id), nil
}
