package convkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidConversationScope reports a scope that names no channel and does
// not describe a two-party conversation. This is a caller bug, not a state
// the system reaches on its own.
var ErrInvalidConversationScope = errors.New("convkey: invalid conversation scope")

// Scope identifies one conversation: a channel by its id, or a direct message
// by its two participants.
type Scope struct {
	ChannelID    uuid.UUID
	Participants []uuid.UUID
}

// DM builds the scope for a direct message between two users.
func DM(a, b uuid.UUID) Scope {
	return Scope{Participants: []uuid.UUID{a, b}}
}

// Channel builds the scope for a channel conversation.
func Channel(id uuid.UUID) Scope {
	return Scope{ChannelID: id}
}

// ConversationID computes the deterministic identifier every participant
// arrives at independently: the channel id, or the two user ids sorted
// lexicographically and joined with an underscore.
func (s Scope) ConversationID() (string, error) {
	if s.ChannelID != uuid.Nil {
		return s.ChannelID.String(), nil
	}
	if len(s.Participants) != 2 {
		return "", fmt.Errorf("%w: %d participants and no channel id", ErrInvalidConversationScope, len(s.Participants))
	}
	ids := []string{s.Participants[0].String(), s.Participants[1].String()}
	sort.Strings(ids)
	return strings.Join(ids, "_"), nil
}
