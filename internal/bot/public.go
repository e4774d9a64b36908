package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/ledger"
	"github.com/blademasters/bladebot/internal/models"
)

const leaderboardSize = 15

// cmdStats shows a member's ladder profile, their own by default.
func (b *Bot) cmdStats(cc *CommandContext) error {
	var user *models.User
	var err error
	if mention := cc.FirstMention(); mention != nil {
		user, err = b.mentioned(cc, mention)
	} else {
		user, err = b.sender(cc)
	}
	if err != nil {
		return err
	}

	profile, err := b.ledger.GetProfile(cc, user)
	if err != nil {
		return err
	}

	rank := "Unranked"
	if !ladder.Unranked(user.Tier) {
		rank = ladder.Rank{Tier: user.Tier, Numeral: user.Numeral}.String()
	} else if user.Tier != "" {
		rank = user.Tier
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s's profile", user.DisplayName),
		Color: tierColor(user.Tier),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rank", Value: rank, Inline: true},
			{Name: "Rating", Value: fmt.Sprintf("%d (#%d)", user.Rating, profile.Position), Inline: true},
			{Name: "Record", Value: fmt.Sprintf("%dW / %dL (%.1f%%)", user.Wins, user.Losses, profile.WinRate), Inline: true},
			{Name: "Games played", Value: fmt.Sprintf("%d", user.GamesPlayed), Inline: true},
		},
	}
	if user.RobloxUsername != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Roblox", Value: user.RobloxUsername, Inline: true,
		})
	}
	if user.IsReserve() {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "On the reserve list"}
	}
	cc.ReplyEmbed(embed)
	return nil
}

// cmdLeaderboard lists the top-rated members.
func (b *Bot) cmdLeaderboard(cc *CommandContext) error {
	users, err := b.ledger.Leaderboard(cc, leaderboardSize)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		cc.ReplyEmbed(infoEmbed("Leaderboard", "No rated members yet."))
		return nil
	}

	var sb strings.Builder
	for i, u := range users {
		fmt.Fprintf(&sb, "**%d.** %s — %d (%dW/%dL)\n", i+1, u.DisplayName, u.Rating, u.Wins, u.Losses)
	}
	cc.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Leaderboard",
		Description: sb.String(),
		Color:       colorWarning,
	})
	return nil
}

// cmdRanks renders the ladder with live occupancy per rank.
func (b *Bot) cmdRanks(cc *CommandContext) error {
	slots, err := b.ledger.RankDistribution(cc)
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{Title: "Rank ladder", Color: colorInfo}
	for _, tier := range ladder.Tiers() {
		var sb strings.Builder
		for _, slot := range slots {
			if slot.Rank.Tier != tier {
				continue
			}
			marker := ""
			if slot.Full() {
				marker = " (full)"
			}
			fmt.Fprintf(&sb, "%s: %d/%d%s\n", slot.Rank, slot.Occupancy, slot.Capacity, marker)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   tier,
			Value:  sb.String(),
			Inline: true,
		})
	}
	cc.ReplyEmbed(embed)
	return nil
}

// cmdCompare shows the head-to-head record between two members.
func (b *Bot) cmdCompare(cc *CommandContext) error {
	mentions := cc.Mentions()

	var userA, userB *models.User
	var err error
	switch len(mentions) {
	case 1:
		userA, err = b.sender(cc)
		if err != nil {
			return err
		}
		userB, err = b.mentioned(cc, mentions[0])
	case 2:
		userA, err = b.mentioned(cc, mentions[0])
		if err != nil {
			return err
		}
		userB, err = b.mentioned(cc, mentions[1])
	default:
		return fmt.Errorf("%w: mention one or two members to compare", ledger.ErrValidation)
	}
	if err != nil {
		return err
	}

	h2h, err := b.ledger.Compare(cc, userA, userB)
	if err != nil {
		return err
	}

	cc.ReplyEmbed(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s vs %s", userA.DisplayName, userB.DisplayName),
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: userA.DisplayName, Value: fmt.Sprintf("%d wins · rating %d", h2h.WinsA, userA.Rating), Inline: true},
			{Name: userB.DisplayName, Value: fmt.Sprintf("%d wins · rating %d", h2h.WinsB, userB.Rating), Inline: true},
			{Name: "Rated duels", Value: fmt.Sprintf("%d", len(h2h.Matches)), Inline: true},
		},
	})
	return nil
}

// cmdSearch finds members by display or Roblox name.
func (b *Bot) cmdSearch(cc *CommandContext) error {
	if len(cc.Args()) < 2 {
		return fmt.Errorf("%w: give me something to search for", ledger.ErrValidation)
	}
	query := strings.Join(cc.Args()[1:], " ")

	users, err := b.ledger.SearchUsers(cc, query, 10)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		cc.ReplyEmbed(infoEmbed("Search", fmt.Sprintf("No members matching %q.", query)))
		return nil
	}

	var sb strings.Builder
	for _, u := range users {
		rank := u.Tier
		if !ladder.Unranked(u.Tier) {
			rank = ladder.Rank{Tier: u.Tier, Numeral: u.Numeral}.String()
		}
		fmt.Fprintf(&sb, "**%s** — %s, rating %d\n", u.DisplayName, rank, u.Rating)
	}
	cc.ReplyEmbed(infoEmbed(fmt.Sprintf("Members matching %q", query), sb.String()))
	return nil
}

// cmdPreview shows the rating stakes of a hypothetical duel against the
// mentioned member.
func (b *Bot) cmdPreview(cc *CommandContext) error {
	mention := cc.FirstMention()
	if mention == nil {
		return fmt.Errorf("%w: mention the member you want to preview against", ledger.ErrValidation)
	}

	player, err := b.sender(cc)
	if err != nil {
		return err
	}
	opponent, err := b.mentioned(cc, mention)
	if err != nil {
		return err
	}
	if opponent.ID == player.ID {
		return fmt.Errorf("%w: you cannot duel yourself", ledger.ErrValidation)
	}

	preview, err := b.ledger.PreviewRating(player, opponent)
	if err != nil {
		return err
	}

	cc.ReplyEmbed(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s vs %s", player.DisplayName, opponent.DisplayName),
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Win chance", Value: fmt.Sprintf("%.0f%%", preview.WinProbability*100), Inline: true},
			{Name: "If you win", Value: fmt.Sprintf("+%d", preview.DeltaIfWin), Inline: true},
			{Name: "If you lose", Value: fmt.Sprintf("%d", preview.DeltaIfLoss), Inline: true},
		},
	})
	return nil
}

// cmdLink attaches a Roblox account to the sender's profile.
func (b *Bot) cmdLink(cc *CommandContext) error {
	if len(cc.Args()) < 2 {
		return fmt.Errorf("%w: usage: %slink <roblox username>", ledger.ErrValidation, b.config.CommandPrefix)
	}
	username := cc.Args()[1]

	user, err := b.sender(cc)
	if err != nil {
		return err
	}

	account, err := b.roblox.ResolveUsername(cc, username)
	if err != nil {
		return fmt.Errorf("resolving roblox username: %w", err)
	}
	if account == nil {
		return fmt.Errorf("%w: no Roblox account named %q exists", ledger.ErrValidation, username)
	}

	if err := b.ledger.Storage().UpdateUser(cc, user.ID, map[string]any{
		"roblox_username": account.Username,
		"roblox_id":       account.ID,
	}); err != nil {
		return err
	}

	cc.ReplyEmbed(successEmbed("Account linked",
		fmt.Sprintf("Linked your profile to Roblox account **%s**.", account.Username)))
	return nil
}

// cmdSettings shows or changes notification preferences:
// `settings [duels|ranks on|off]`.
func (b *Bot) cmdSettings(cc *CommandContext) error {
	user, err := b.sender(cc)
	if err != nil {
		return err
	}

	store := b.ledger.Storage()
	settings, err := store.GetOrCreateSettings(cc, user.ID)
	if err != nil {
		return err
	}

	if len(cc.Args()) < 3 {
		onOff := func(v bool) string {
			if v {
				return "on"
			}
			return "off"
		}
		cc.ReplyEmbed(&discordgo.MessageEmbed{
			Title: "Your settings",
			Color: colorInfo,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Duel notifications", Value: onOff(settings.DuelNotifications), Inline: true},
				{Name: "Rank notifications", Value: onOff(settings.RankNotifications), Inline: true},
			},
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("Change with %ssettings <duels|ranks> <on|off>", b.config.CommandPrefix),
			},
		})
		return nil
	}

	var field string
	switch cc.Args()[1] {
	case "duels":
		field = "duel_notifications"
	case "ranks":
		field = "rank_notifications"
	default:
		return fmt.Errorf("%w: unknown setting %q", ledger.ErrValidation, cc.Args()[1])
	}

	var value bool
	switch cc.Args()[2] {
	case "on":
		value = true
	case "off":
		value = false
	default:
		return fmt.Errorf("%w: expected on or off, got %q", ledger.ErrValidation, cc.Args()[2])
	}

	if err := store.UpdateSettings(cc, user.ID, map[string]any{field: value}); err != nil {
		return err
	}
	cc.ReplyEmbed(successEmbed("Settings updated",
		fmt.Sprintf("Turned %s notifications %s.", cc.Args()[1], cc.Args()[2])))
	return nil
}

func (b *Bot) cmdHelp(cc *CommandContext) error {
	p := b.config.CommandPrefix
	cc.ReplyEmbed(&discordgo.MessageEmbed{
		Title: "Commands",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Duels",
				Value: fmt.Sprintf(
					"`%[1]sduel <friendly|official|promotion> [@user]` issue a challenge\n"+
						"`%[1]saccept [id|@user]` / `%[1]sdecline [id|@user]` respond to one\n"+
						"`%[1]scancel [id]` withdraw your challenge\n"+
						"`%[1]schallenges` list your pending challenges", p),
			},
			{
				Name: "Ladder",
				Value: fmt.Sprintf(
					"`%[1]sstats [@user]` profile and record\n"+
						"`%[1]sleaderboard` top rated members\n"+
						"`%[1]sranks` ladder occupancy\n"+
						"`%[1]scompare @a [@b]` head-to-head record\n"+
						"`%[1]spreview @user` rating stakes\n"+
						"`%[1]ssearch <name>` find members", p),
			},
			{
				Name: "Account",
				Value: fmt.Sprintf(
					"`%[1]slink <roblox username>` link your Roblox account\n"+
						"`%[1]ssettings` notification preferences", p),
			},
			{
				Name: "Moderation",
				Value: fmt.Sprintf(
					"`%[1]slog duel|void|edit|history` manage match records\n"+
						"`%[1]spending` / `%[1]sconfirm <id>` / `%[1]sreject <id>` rank changes\n"+
						"`%[1]sevaluate @user <rank>` place a new member\n"+
						"`%[1]sclose` close a ticket channel\n"+
						"`%[1]ssyncroster` reconcile the reserve list", p),
			},
		},
	})
	return nil
}
