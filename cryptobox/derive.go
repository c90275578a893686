package cryptobox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const hkdfInfoConversation = "Sprinq-CK-v1"

// conversationSalt is fixed and non-secret. Keeping it constant is what lets
// every participant derive the identical key from the conversation id alone.
var conversationSalt = []byte("sprinq/conversation-key/salt")

// DeriveConversationKey derives the symmetric key for a conversation from its
// deterministic identifier using HKDF-SHA256 with a fixed salt.
//
// The key is a pure function of the conversation id, which is itself built
// from participant ids, so anyone who knows the participants can derive it.
// That is the intended threat model: content is opaque to the storage
// operator, not to someone holding a participant's device. This is a keying
// convention, not a key-exchange protocol; it provides no forward secrecy.
func DeriveConversationKey(conversationID string) (Key, error) {
	if conversationID == "" {
		return Key{}, fmt.Errorf("%w: empty conversation id", ErrInvalidKey)
	}
	r := hkdf.New(sha256.New, []byte(conversationID), conversationSalt, []byte(hkdfInfoConversation))
	var key Key
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return Key{}, err
	}
	return key, nil
}
