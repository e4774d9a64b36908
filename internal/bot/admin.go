package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/models"
)

// cmdPending lists rank changes awaiting moderator review.
func (b *Bot) cmdPending(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}

	changes, err := b.ledger.PendingRankChanges(cc)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		cc.ReplyEmbed(infoEmbed("Pending rank changes", "Nothing awaiting review."))
		return nil
	}

	var sb strings.Builder
	for _, ch := range changes {
		winner, werr := b.ledger.Storage().GetUser(cc, ch.WinnerID)
		loser, lerr := b.ledger.Storage().GetUser(cc, ch.LoserID)
		winnerName, loserName := ch.WinnerID, ch.LoserID
		if werr == nil {
			winnerName = winner.DisplayName
		}
		if lerr == nil {
			loserName = loser.DisplayName
		}
		fmt.Fprintf(&sb, "`#%d` **%s** %s %s → %s %s, **%s** %s %s → %s %s (match %d)\n",
			ch.ID,
			winnerName, ch.WinnerOldTier, ch.WinnerOldNumeral, ch.WinnerNewTier, ch.WinnerNewNumeral,
			loserName, ch.LoserOldTier, ch.LoserOldNumeral, ch.LoserNewTier, ch.LoserNewNumeral,
			ch.MatchID)
	}
	cc.ReplyEmbed(infoEmbed("Pending rank changes", sb.String()))
	return nil
}

// cmdConfirm applies a pending rank change. The database commit is the
// point of no return; failing to move Discord roles afterwards degrades
// the reply but never rolls the ranks back.
func (b *Bot) cmdConfirm(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}
	if len(cc.Args()) < 2 {
		return fmt.Errorf("%w: usage: %sconfirm <change id>", ledger.ErrValidation, b.config.CommandPrefix)
	}
	changeID, err := parseID(cc.Args()[1])
	if err != nil {
		return err
	}

	change, err := b.ledger.ConfirmRankChange(cc, changeID, cc.Sender().ID)
	if err != nil {
		return err
	}

	var roleWarnings []string
	for _, move := range []struct {
		userID           string
		oldTier, newTier string
		newRank          string
	}{
		{change.WinnerID, change.WinnerOldTier, change.WinnerNewTier,
			change.WinnerNewTier + " " + change.WinnerNewNumeral},
		{change.LoserID, change.LoserOldTier, change.LoserNewTier,
			change.LoserNewTier + " " + change.LoserNewNumeral},
	} {
		user, err := b.ledger.Storage().GetUser(cc, move.userID)
		if err != nil {
			roleWarnings = append(roleWarnings, fmt.Sprintf("could not load %s", move.userID))
			continue
		}
		if err := b.reassignTierRole(cc, user.DiscordID, move.oldTier, move.newTier); err != nil {
			cc.L().Errorf("failed to move tier role for %s: %v", user.DisplayName, err)
			roleWarnings = append(roleWarnings, fmt.Sprintf("roles for %s need a manual fix", user.DisplayName))
		}
		b.notifyRank(cc, user, infoEmbed("Rank update",
			fmt.Sprintf("Your rank is now **%s**.", move.newRank)))
	}

	embed := successEmbed("Rank change confirmed",
		fmt.Sprintf("Change %d applied: winner is now %s %s.",
			change.ID, change.WinnerNewTier, change.WinnerNewNumeral))
	if len(roleWarnings) > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Ranks are saved, but " + strings.Join(roleWarnings, "; "),
		}
	}
	cc.ReplyEmbed(embed)
	return nil
}

// reassignTierRole swaps the member's tier role when the tier changed.
// Sub-rank moves inside a tier need no role work.
func (b *Bot) reassignTierRole(cc *CommandContext, discordID, oldTier, newTier string) error {
	if oldTier == newTier {
		return nil
	}

	roles, err := cc.Session().GuildRoles(cc.GuildID())
	if err != nil {
		return fmt.Errorf("fetching guild roles: %w", err)
	}
	byName := make(map[string]string, len(roles))
	for _, r := range roles {
		byName[r.Name] = r.ID
	}

	if id, ok := byName[oldTier]; ok {
		if err := cc.Session().GuildMemberRoleRemove(cc.GuildID(), discordID, id); err != nil {
			return fmt.Errorf("removing %s role: %w", oldTier, err)
		}
	}
	if id, ok := byName[newTier]; ok {
		if err := cc.Session().GuildMemberRoleAdd(cc.GuildID(), discordID, id); err != nil {
			return fmt.Errorf("adding %s role: %w", newTier, err)
		}
	}
	return nil
}

// cmdReject discards a pending rank change.
func (b *Bot) cmdReject(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}
	if len(cc.Args()) < 2 {
		return fmt.Errorf("%w: usage: %sreject <change id> [reason]", ledger.ErrValidation, b.config.CommandPrefix)
	}
	changeID, err := parseID(cc.Args()[1])
	if err != nil {
		return err
	}
	reason := strings.Join(cc.Args()[2:], " ")

	if err := b.ledger.RejectRankChange(cc, changeID, cc.Sender().ID, reason); err != nil {
		return err
	}
	cc.ReplyEmbed(infoEmbed("Rank change rejected",
		fmt.Sprintf("Change %d was discarded; both members keep their ranks.", changeID)))
	return nil
}

// cmdLog is the moderator match surface:
// `log duel @winner @loser <official|promotion> [score]`
// `log void <match id> [reason]`
// `log edit <match id>` (interactive)
// `log history [@user]`
func (b *Bot) cmdLog(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}
	if len(cc.Args()) < 2 {
		return fmt.Errorf("%w: usage: %slog <duel|void|edit|history>", ledger.ErrValidation, b.config.CommandPrefix)
	}

	switch cc.Args()[1] {
	case "duel":
		return b.logDuel(cc)
	case "void":
		return b.logVoid(cc)
	case "edit":
		return b.logEdit(cc)
	case "history":
		return b.logHistory(cc)
	default:
		return fmt.Errorf("%w: unknown log subcommand %q", ledger.ErrValidation, cc.Args()[1])
	}
}

func (b *Bot) logDuel(cc *CommandContext) error {
	mentions := cc.Mentions()
	matchType := models.ChallengeTypeOfficial

	var winner, loser *models.User
	var err error
	switch len(mentions) {
	case 2:
		winner, err = b.mentioned(cc, mentions[0])
		if err != nil {
			return err
		}
		loser, err = b.mentioned(cc, mentions[1])
		if err != nil {
			return err
		}
	case 1:
		// Inside a ticket channel the loser and type come from the
		// ticket itself; only the winner needs naming.
		ticket, terr := b.tickets.get(cc, cc.ChannelID())
		if terr != nil {
			return fmt.Errorf("%w: mention the winner first, then the loser", ledger.ErrValidation)
		}
		winner, err = b.mentioned(cc, mentions[0])
		if err != nil {
			return err
		}
		loserDiscordID := ticket.ChallengerID
		if winner.DiscordID == ticket.ChallengerID {
			loserDiscordID = ticket.ChallengedID
		}
		loser, err = b.ledger.Resolve(cc, ledger.ParticipantRef{
			Kind:      ledger.ArchivedUser,
			DiscordID: loserDiscordID,
		})
		if err != nil {
			return err
		}
		matchType = ticket.DuelType
	default:
		return fmt.Errorf("%w: mention the winner first, then the loser", ledger.ErrValidation)
	}

	var score string
	for _, arg := range cc.Args()[2:] {
		if strings.HasPrefix(arg, "<@") {
			continue
		}
		if t, err := models.ParseChallengeType(arg); err == nil {
			matchType = t
			continue
		}
		score = arg
	}

	result, err := b.ledger.RecordMatch(cc, ledger.RecordParams{
		ChallengerID: winner.ID,
		ChallengedID: loser.ID,
		WinnerID:     winner.ID,
		MatchType:    matchType,
		Score:        score,
		RecordedBy:   cc.Sender().ID,
	})
	if err != nil {
		return err
	}

	match := result.Match
	embed := &discordgo.MessageEmbed{
		Title: "Match recorded",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Match", Value: fmt.Sprintf("#%d (%s)", match.ID, match.MatchType), Inline: true},
			{Name: winner.DisplayName, Value: fmt.Sprintf("%d → %d (+%d)", match.WinnerRatingBefore, match.WinnerRatingAfter, match.WinnerDelta), Inline: true},
			{Name: loser.DisplayName, Value: fmt.Sprintf("%d → %d (%d)", match.LoserRatingBefore, match.LoserRatingAfter, match.LoserDelta), Inline: true},
		},
	}
	switch {
	case result.PendingChange != nil:
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Rank change #%d filed, confirm with %sconfirm %d",
				result.PendingChange.ID, b.config.CommandPrefix, result.PendingChange.ID),
		}
	case match.MatchType == models.ChallengeTypePromotion:
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "No rank change: " + result.RankChangeReason,
		}
	}
	cc.ReplyEmbed(embed)

	b.announceMatch(cc, match, winner, loser)
	return nil
}

// announceMatch mirrors the result into the duel log channel, if one is
// configured.
func (b *Bot) announceMatch(cc *CommandContext, match *models.Match, winner, loser *models.User) {
	if b.config.DuelLogChannelID == "" || b.config.DuelLogChannelID == cc.ChannelID() {
		return
	}
	desc := fmt.Sprintf("**%s** defeated **%s** in a %s duel (%+d / %+d).",
		winner.DisplayName, loser.DisplayName, match.MatchType, match.WinnerDelta, match.LoserDelta)
	if match.Score != "" {
		desc += fmt.Sprintf(" Score: %s.", match.Score)
	}
	if _, err := cc.Session().ChannelMessageSendEmbed(b.config.DuelLogChannelID,
		infoEmbed("Duel result", desc)); err != nil {
		cc.L().Errorf("failed to announce match %d: %v", match.ID, err)
	}
}

func (b *Bot) logVoid(cc *CommandContext) error {
	if len(cc.Args()) < 3 {
		return fmt.Errorf("%w: usage: %slog void <match id> [reason]", ledger.ErrValidation, b.config.CommandPrefix)
	}
	matchID, err := parseID(cc.Args()[2])
	if err != nil {
		return err
	}
	reason := strings.Join(cc.Args()[3:], " ")

	match, err := b.ledger.VoidMatch(cc, matchID, cc.Sender().ID, reason)
	if err != nil {
		return err
	}

	cc.ReplyEmbed(successEmbed("Match voided",
		fmt.Sprintf("Match %d was removed and both ratings restored (%+d / %+d reversed).",
			match.ID, match.WinnerDelta, match.LoserDelta)))
	return nil
}

// logEdit walks the moderator through a correction and commits nothing
// until they approve the final summary.
func (b *Bot) logEdit(cc *CommandContext) error {
	if len(cc.Args()) < 3 {
		return fmt.Errorf("%w: usage: %slog edit <match id>", ledger.ErrValidation, b.config.CommandPrefix)
	}
	matchID, err := parseID(cc.Args()[2])
	if err != nil {
		return err
	}

	match, err := b.ledger.GetMatch(cc, matchID)
	if err != nil {
		return err
	}

	prompt := func(question string) (string, bool) {
		cc.Reply(question)
		ctx, cancel := context.WithTimeout(context.Background(), b.config.PromptTimeout)
		defer cancel()
		return b.prompts.await(ctx, cc.ChannelID(), cc.Sender().ID)
	}

	field, ok := prompt(fmt.Sprintf("Editing match #%d. Which field, `score` or `notes`? (current score: %q)", match.ID, match.Score))
	if !ok {
		cc.Reply("Edit timed out, nothing was changed.")
		return nil
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if field != "score" && field != "notes" {
		return fmt.Errorf("%w: only score and notes can be edited", ledger.ErrValidation)
	}

	value, ok := prompt(fmt.Sprintf("New value for %s?", field))
	if !ok {
		cc.Reply("Edit timed out, nothing was changed.")
		return nil
	}
	value = strings.TrimSpace(value)

	answer, ok := prompt(fmt.Sprintf("Set %s of match #%d to %q? (`yes` to commit)", field, match.ID, value))
	if !ok || strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		cc.Reply("Edit abandoned, nothing was changed.")
		return nil
	}

	// The handler deadline has long passed while the moderator was
	// typing; the commit gets its own.
	commitCtx, cancel := context.WithTimeout(context.Background(), b.config.BotHandleTimeout)
	defer cancel()
	if _, err := b.ledger.EditMatch(commitCtx, match.ID, cc.Sender().ID, map[string]any{field: value}); err != nil {
		return err
	}
	cc.ReplyEmbed(successEmbed("Match updated",
		fmt.Sprintf("Match %d %s set to %q.", match.ID, field, value)))
	return nil
}

func (b *Bot) logHistory(cc *CommandContext) error {
	const historySize = 10

	var matches []*models.Match
	var err error
	if mention := cc.FirstMention(); mention != nil {
		user, uerr := b.mentioned(cc, mention)
		if uerr != nil {
			return uerr
		}
		matches, err = b.ledger.MatchHistory(cc, user, historySize)
	} else {
		matches, err = b.ledger.RecentMatches(cc, historySize)
	}
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		cc.ReplyEmbed(infoEmbed("Match history", "No recorded matches."))
		return nil
	}

	var sb strings.Builder
	for _, m := range matches {
		winner, werr := b.ledger.Storage().GetUser(cc, m.WinnerID)
		loser, lerr := b.ledger.Storage().GetUser(cc, m.LoserID)
		winnerName, loserName := "unknown", "unknown"
		if werr == nil {
			winnerName = winner.DisplayName
		}
		if lerr == nil {
			loserName = loser.DisplayName
		}
		line := fmt.Sprintf("`#%d` %s beat %s (%s, %+d/%+d)",
			m.ID, winnerName, loserName, m.MatchType, m.WinnerDelta, m.LoserDelta)
		if m.RankChange {
			line += " ⬆"
		}
		sb.WriteString(line + "\n")
	}
	cc.ReplyEmbed(infoEmbed("Match history", sb.String()))
	return nil
}

// cmdClose tears down the ticket channel it is invoked in.
func (b *Bot) cmdClose(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}

	if _, err := b.tickets.get(cc, cc.ChannelID()); err != nil {
		return fmt.Errorf("%w: this is not a ticket channel", ledger.ErrValidation)
	}

	if err := b.closeTicketChannel(cc, cc.ChannelID()); err != nil {
		return err
	}
	return nil
}

// cmdEvaluate places a new member onto the ladder:
// `evaluate @user <Tier> <Numeral>`, e.g. `evaluate @x Silver IV`.
func (b *Bot) cmdEvaluate(cc *CommandContext) error {
	if err := b.requireModerator(cc); err != nil {
		return err
	}

	mention := cc.FirstMention()
	if mention == nil || len(cc.Args()) < 3 {
		placements := make([]string, 0, len(ladder.EvaluationRanks))
		for _, r := range ladder.EvaluationRanks {
			placements = append(placements, r.String())
		}
		return fmt.Errorf("%w: usage: %sevaluate @user <rank>, one of %s",
			ledger.ErrValidation, b.config.CommandPrefix, strings.Join(placements, ", "))
	}

	user, err := b.mentioned(cc, mention)
	if err != nil {
		return err
	}

	// Mention tokens interleave with the rank words; keep only the latter.
	var parts []string
	for _, arg := range cc.Args()[1:] {
		if strings.HasPrefix(arg, "<@") {
			continue
		}
		parts = append(parts, arg)
	}
	if len(parts) < 2 {
		return fmt.Errorf("%w: give the rank as tier and numeral, e.g. Silver IV", ledger.ErrValidation)
	}
	rank := ladder.Rank{Tier: parts[0], Numeral: parts[1]}

	if err := b.ledger.EvaluateUser(cc, cc.Sender().ID, user, rank); err != nil {
		return err
	}

	embed := successEmbed("Evaluation complete",
		fmt.Sprintf("%s was placed at %s.", user.DisplayName, rank))
	if err := b.reassignTierRole(cc, user.DiscordID, user.Tier, rank.Tier); err != nil {
		cc.L().Errorf("failed to assign tier role for %s: %v", user.DisplayName, err)
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Rank saved, but the tier role needs a manual fix.",
		}
	}
	cc.ReplyEmbed(embed)
	return nil
}

// cmdSyncRoster walks the full guild member list and reconciles the
// reserve flags against it.
func (b *Bot) cmdSyncRoster(cc *CommandContext) error {
	if err := b.requireAdmin(cc); err != nil {
		return err
	}

	present := make(map[string]bool)
	after := ""
	for {
		members, err := cc.Session().GuildMembers(cc.GuildID(), after, 1000)
		if err != nil {
			return fmt.Errorf("listing guild members: %w", err)
		}
		if len(members) == 0 {
			break
		}
		for _, m := range members {
			if m.User == nil {
				continue
			}
			if !m.User.Bot {
				present[m.User.ID] = true
			}
			after = m.User.ID
		}
		if len(members) < 1000 {
			break
		}
	}

	toReserve, toActive, err := b.ledger.SyncRoster(cc, present)
	if err != nil {
		return err
	}

	cc.ReplyEmbed(successEmbed("Roster synced",
		fmt.Sprintf("%d members moved to reserve, %d restored to active.", toReserve, toActive)))
	return nil
}
