package bot

import (
	"fmt"

	"github.com/blademasters/bladebot/internal/ledger"
)

// hasRole reports whether the invoking member carries a role with the
// given name. Role names, not IDs, keep the config portable between
// guilds.
func (b *Bot) hasRole(cc *CommandContext, roleName string) (bool, error) {
	member := cc.Message().Member
	if member == nil {
		var err error
		member, err = cc.Session().GuildMember(cc.GuildID(), cc.Sender().ID)
		if err != nil {
			return false, fmt.Errorf("fetching member: %w", err)
		}
	}

	roles, err := cc.Session().GuildRoles(cc.GuildID())
	if err != nil {
		return false, fmt.Errorf("fetching guild roles: %w", err)
	}

	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	for _, id := range member.Roles {
		if names[id] == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (b *Bot) requireModerator(cc *CommandContext) error {
	for _, role := range []string{b.config.ModeratorRole, b.config.AdminRole} {
		ok, err := b.hasRole(cc, role)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: this command requires the %s role", ledger.ErrPermissionDenied, b.config.ModeratorRole)
}

func (b *Bot) requireAdmin(cc *CommandContext) error {
	ok, err := b.hasRole(cc, b.config.AdminRole)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: this command requires the %s role", ledger.ErrPermissionDenied, b.config.AdminRole)
	}
	return nil
}
