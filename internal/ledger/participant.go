package ledger

import (
	"context"

	"github.com/blademasters/bladebot/internal/models"
)

type ParticipantKind int

const (
	// LiveMember is currently present in the guild.
	LiveMember ParticipantKind = iota
	// ArchivedUser exists only in the ladder records.
	ArchivedUser
)

// ParticipantRef identifies a duel participant. It is resolved once at
// the command boundary and passed as a typed value; the ledger never
// inspects chat-platform member objects.
type ParticipantRef struct {
	Kind        ParticipantKind
	DiscordID   string
	DisplayName string
}

// Resolve loads the ladder identity behind the ref. Live members are
// registered on first contact; archived users must already exist.
func (l *Ledger) Resolve(ctx context.Context, ref ParticipantRef) (*models.User, error) {
	if ref.Kind == LiveMember {
		user, err := l.storage.GetOrCreateUser(ctx, ref.DiscordID, ref.DisplayName, l.startingRating)
		if err != nil {
			return nil, translate(err)
		}
		return user, nil
	}

	user, err := l.storage.GetUserByDiscordID(ctx, ref.DiscordID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}
