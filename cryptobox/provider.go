package cryptobox

// Provider is the cryptographic capability handed to the packages above this
// one. Components never reach for package-level crypto directly; they hold a
// Provider, so tests can count calls or substitute failures.
type Provider interface {
	GenerateIdentityKey() (*IdentityKey, error)
	DeriveConversationKey(conversationID string) (Key, error)
	Encrypt(scheme Scheme, key Key, plaintext []byte) (ciphertext, nonce []byte, err error)
	Decrypt(scheme Scheme, key Key, ciphertext, nonce []byte) ([]byte, error)
}

// Std is the production Provider backed by the package implementations.
type Std struct{}

func (Std) GenerateIdentityKey() (*IdentityKey, error) {
	return GenerateIdentityKey()
}

func (Std) DeriveConversationKey(conversationID string) (Key, error) {
	return DeriveConversationKey(conversationID)
}

func (Std) Encrypt(scheme Scheme, key Key, plaintext []byte) ([]byte, []byte, error) {
	return Encrypt(scheme, key, plaintext)
}

func (Std) Decrypt(scheme Scheme, key Key, ciphertext, nonce []byte) ([]byte, error) {
	return Decrypt(scheme, key, ciphertext, nonce)
}

var _ Provider = Std{}
