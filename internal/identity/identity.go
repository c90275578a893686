package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sprinq/cecs378project-sub000/cryptobox"
	"github.com/Sprinq/cecs378project-sub000/internal/keyring"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
)

var (
	// ErrKeyNotFound means this device holds no private key for the user.
	// Callers treat it as "cannot decrypt here", not as a hard failure.
	ErrKeyNotFound = errors.New("identity: no local private key")

	// ErrPublishFailure means the public key could not be pushed to the
	// directory. The generated pair is kept and stays locally usable; a
	// later EnsureIdentity re-publishes it without regenerating.
	ErrPublishFailure = errors.New("identity: public key publish failed")
)

// Directory is the shared public-key directory. Both the database-backed
// store and the remote HTTP client satisfy it.
type Directory interface {
	Publish(ctx context.Context, userID uuid.UUID, publicKey string) error
	Get(ctx context.Context, userID uuid.UUID) (*store.DirectoryEntry, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// LocalKeyStore is the device-local protected storage for private key
// material. Implementations return keyring.ErrNotFound for missing keys.
type LocalKeyStore interface {
	SavePrivateKey(userID string, privateKey []byte) error
	LoadPrivateKey(userID string) ([]byte, error)
	DeletePrivateKey(userID string) error
}

// PublicKeyHandle is the caller-visible result of ensuring an identity.
type PublicKeyHandle struct {
	UserID    uuid.UUID
	PublicKey string
	Generated bool
}

// Manager owns the identity key lifecycle for this device.
type Manager struct {
	directory Directory
	keys      LocalKeyStore
	crypto    cryptobox.Provider

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex

	publishAttempts int
	publishBackoff  time.Duration
}

func NewManager(directory Directory, keys LocalKeyStore, crypto cryptobox.Provider) *Manager {
	return &Manager{
		directory:       directory,
		keys:            keys,
		crypto:          crypto,
		locks:           make(map[uuid.UUID]*sync.Mutex),
		publishAttempts: 3,
		publishBackoff:  250 * time.Millisecond,
	}
}

// lockFor serializes key generation per user so two concurrent callers never
// mint competing pairs.
func (m *Manager) lockFor(userID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// EnsureIdentity returns the user's published identity, generating and
// publishing a fresh key pair when the directory has none. Idempotent; safe
// to call on every session start. The private key is persisted before the
// first publish attempt, so a network failure never loses generated material.
func (m *Manager) EnsureIdentity(ctx context.Context, userID uuid.UUID) (PublicKeyHandle, error) {
	l := m.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	entry, err := m.directory.Get(ctx, userID)
	switch {
	case err == nil:
		return PublicKeyHandle{UserID: userID, PublicKey: entry.PublicKey}, nil
	case errors.Is(err, store.ErrRecordNotFound):
		// fall through to generate or re-publish
	default:
		return PublicKeyHandle{}, fmt.Errorf("identity: directory lookup: %w", err)
	}

	// A private key with no directory entry means an earlier publish never
	// landed. Re-publish it rather than generating a second pair.
	if raw, err := m.keys.LoadPrivateKey(userID.String()); err == nil {
		key, err := cryptobox.ParseIdentityKey(raw)
		if err != nil {
			return PublicKeyHandle{}, err
		}
		return m.publishHandle(ctx, userID, key, false)
	} else if !errors.Is(err, keyring.ErrNotFound) {
		return PublicKeyHandle{}, err
	}

	key, err := m.crypto.GenerateIdentityKey()
	if err != nil {
		return PublicKeyHandle{}, err
	}
	if err := m.keys.SavePrivateKey(userID.String(), key.PrivateBytes()); err != nil {
		return PublicKeyHandle{}, err
	}
	return m.publishHandle(ctx, userID, key, true)
}

func (m *Manager) publishHandle(ctx context.Context, userID uuid.UUID, key *cryptobox.IdentityKey, generated bool) (PublicKeyHandle, error) {
	handle := PublicKeyHandle{
		UserID:    userID,
		PublicKey: cryptobox.EncodePublicKey(key.PublicBytes()),
		Generated: generated,
	}
	if err := m.publishWithRetry(ctx, userID, handle.PublicKey); err != nil {
		slog.Warn("public key publish failed, keeping local pair", "user_id", userID, "error", err)
		return handle, fmt.Errorf("%w: %v", ErrPublishFailure, err)
	}
	return handle, nil
}

func (m *Manager) publishWithRetry(ctx context.Context, userID uuid.UUID, publicKey string) error {
	delay := m.publishBackoff
	var lastErr error
	for attempt := 0; attempt < m.publishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if lastErr = m.directory.Publish(ctx, userID, publicKey); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// LoadPrivateKey retrieves the local private key for decrypt and derive
// operations. ErrKeyNotFound means the device never generated one.
func (m *Manager) LoadPrivateKey(ctx context.Context, userID uuid.UUID) (*cryptobox.IdentityKey, error) {
	raw, err := m.keys.LoadPrivateKey(userID.String())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrKeyNotFound, userID)
		}
		return nil, err
	}
	return cryptobox.ParseIdentityKey(raw)
}

// Reset destroys the user's identity on this device and withdraws the
// published key. Prior ciphertext for the user's conversations becomes
// undecryptable on devices that never held the old key; callers must also
// invalidate any cached conversation keys.
func (m *Manager) Reset(ctx context.Context, userID uuid.UUID) error {
	l := m.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	if err := m.keys.DeletePrivateKey(userID.String()); err != nil {
		return err
	}
	if err := m.directory.Delete(ctx, userID); err != nil {
		return fmt.Errorf("identity: directory delete: %w", err)
	}
	slog.Info("identity reset", "user_id", userID)
	return nil
}
