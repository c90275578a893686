package convkey

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
)

// Deriver resolves conversation keys lazily and caches them for the session.
// The cache is read-mostly: one write per conversation, lock-free lookups
// after that. Concurrent first-time resolutions for one conversation collapse
// into a single derivation.
type Deriver struct {
	crypto cryptobox.Provider
	keys   sync.Map
	group  singleflight.Group
}

func NewDeriver(crypto cryptobox.Provider) *Deriver {
	return &Deriver{crypto: crypto}
}

// Resolve returns the symmetric key for the scope's conversation.
func (d *Deriver) Resolve(scope Scope) (cryptobox.Key, error) {
	id, err := scope.ConversationID()
	if err != nil {
		return cryptobox.Key{}, err
	}
	return d.ResolveID(id)
}

// ResolveID resolves by a conversation id computed earlier, the form stored
// on message rows.
func (d *Deriver) ResolveID(conversationID string) (cryptobox.Key, error) {
	if conversationID == "" {
		return cryptobox.Key{}, fmt.Errorf("%w: empty conversation id", ErrInvalidConversationScope)
	}
	if v, ok := d.keys.Load(conversationID); ok {
		return v.(cryptobox.Key), nil
	}
	v, err, _ := d.group.Do(conversationID, func() (any, error) {
		// A slow caller may reach here after the winner already cached.
		if v, ok := d.keys.Load(conversationID); ok {
			return v.(cryptobox.Key), nil
		}
		key, err := d.crypto.DeriveConversationKey(conversationID)
		if err != nil {
			return nil, err
		}
		actual, _ := d.keys.LoadOrStore(conversationID, key)
		return actual.(cryptobox.Key), nil
	})
	if err != nil {
		return cryptobox.Key{}, err
	}
	return v.(cryptobox.Key), nil
}

// Purge drops every cached key. Called on identity reset; rederivation is
// deterministic, so dropping more than strictly necessary costs one HKDF per
// conversation and nothing else.
func (d *Deriver) Purge() {
	d.keys.Range(func(k, _ any) bool {
		d.keys.Delete(k)
		return true
	})
}
