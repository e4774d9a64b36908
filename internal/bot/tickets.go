package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/blademasters/bladebot/internal/models"
	"github.com/blademasters/bladebot/internal/storage"
)

// ticketCache is a read-through cache over the tickets table, keyed by
// channel id. Lookups happen on every message in a ticket channel, so
// hitting the database each time would be wasteful; writes go straight
// through and drop the cached entry.
type ticketCache struct {
	store *storage.Storage

	mu      sync.RWMutex
	entries map[string]*models.Ticket
}

func newTicketCache(store *storage.Storage) *ticketCache {
	return &ticketCache{
		store:   store,
		entries: make(map[string]*models.Ticket),
	}
}

// warm preloads all active tickets so the first lookup after a restart
// does not miss.
func (c *ticketCache) warm(ctx context.Context) error {
	tickets, err := c.store.GetActiveTickets(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tickets {
		c.entries[t.ChannelID] = t
	}
	return nil
}

func (c *ticketCache) get(ctx context.Context, channelID string) (*models.Ticket, error) {
	c.mu.RLock()
	ticket, ok := c.entries[channelID]
	c.mu.RUnlock()
	if ok {
		return ticket, nil
	}

	ticket, err := c.store.GetTicket(ctx, channelID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[channelID] = ticket
	c.mu.Unlock()
	return ticket, nil
}

func (c *ticketCache) put(ctx context.Context, ticket *models.Ticket) error {
	if err := c.store.UpsertTicket(ctx, ticket); err != nil {
		return err
	}
	c.invalidate(ticket.ChannelID)
	return nil
}

func (c *ticketCache) remove(ctx context.Context, channelID string) error {
	if err := c.store.DeleteTicket(ctx, channelID); err != nil {
		return err
	}
	c.invalidate(channelID)
	return nil
}

func (c *ticketCache) invalidate(channelID string) {
	c.mu.Lock()
	delete(c.entries, channelID)
	c.mu.Unlock()
}

// ticketChannelName builds a slug like "duel-alice-vs-bob" that fits
// Discord's channel naming rules.
func ticketChannelName(duelType models.ChallengeType, challenger, challenged string) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		var b strings.Builder
		for _, r := range s {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == ' ', r == '-', r == '_':
				b.WriteByte('-')
			}
		}
		out := b.String()
		if out == "" {
			out = "player"
		}
		if len(out) > 20 {
			out = out[:20]
		}
		return out
	}
	return fmt.Sprintf("%s-%s-vs-%s", duelType, slug(challenger), slug(challenged))
}

// openTicketChannel creates a private channel for an accepted challenge
// visible to the two participants and the moderation team.
func (b *Bot) openTicketChannel(cc *CommandContext, challenge *models.Challenge, challengerDiscordID, challengedDiscordID, challengerName, challengedName string) (*discordgo.Channel, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   cc.GuildID(),
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    challengerDiscordID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
		{
			ID:    challengedDiscordID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}

	channel, err := cc.Session().GuildChannelCreateComplex(cc.GuildID(), discordgo.GuildChannelCreateData{
		Name:                 ticketChannelName(challenge.ChallengeType, challengerName, challengedName),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             b.config.TicketCategoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ticket channel: %w", err)
	}

	ticket := &models.Ticket{
		ChannelID:    channel.ID,
		ChallengeID:  challenge.ID,
		ChallengerID: challengerDiscordID,
		ChallengedID: challengedDiscordID,
		DuelType:     challenge.ChallengeType,
		Status:       models.TicketStatusActive,
	}
	if err := b.tickets.put(cc, ticket); err != nil {
		// The channel exists but was not recorded. Tear it down so we
		// never orphan a ticket channel the close command cannot find.
		_, _ = cc.Session().ChannelDelete(channel.ID)
		return nil, err
	}

	return channel, nil
}

// closeTicketChannel removes the ticket record and deletes the channel.
func (b *Bot) closeTicketChannel(cc *CommandContext, channelID string) error {
	if err := b.tickets.remove(cc, channelID); err != nil {
		return err
	}
	if _, err := cc.Session().ChannelDelete(channelID); err != nil {
		return fmt.Errorf("deleting ticket channel: %w", err)
	}
	return nil
}
