package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sprinq/cecs378project-sub000/internal/convkey"
	"github.com/Sprinq/cecs378project-sub000/internal/envelope"
	"github.com/Sprinq/cecs378project-sub000/internal/identity"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
)

// Service is the encryption surface the chat layer calls. The chat layer
// owns transport and rendering; this owns every byte that touches the
// content columns.
type Service struct {
	store    *store.Store
	identity *identity.Manager
	deriver  *convkey.Deriver
	policy   *envelope.Policy
	now      func() time.Time
}

func New(st *store.Store, mgr *identity.Manager, deriver *convkey.Deriver, policy *envelope.Policy) *Service {
	return &Service{
		store:    st,
		identity: mgr,
		deriver:  deriver,
		policy:   policy,
		now:      time.Now,
	}
}

// OutgoingMessage is what a caller persists for one sent message.
type OutgoingMessage struct {
	ConversationID string
	Fields         envelope.Fields
}

// EnsureIdentity generates and publishes the user's identity key pair on
// first use. Safe to call on every session start.
func (s *Service) EnsureIdentity(ctx context.Context, userID uuid.UUID) (identity.PublicKeyHandle, error) {
	return s.identity.EnsureIdentity(ctx, userID)
}

// PrepareOutgoing seals plaintext for the scope and returns the row fields
// to persist. Callers that want the write done too use SendMessage.
func (s *Service) PrepareOutgoing(scope convkey.Scope, plaintext string) (OutgoingMessage, error) {
	conversationID, err := scope.ConversationID()
	if err != nil {
		return OutgoingMessage{}, err
	}
	fields, err := s.policy.Seal(conversationID, plaintext)
	if err != nil {
		return OutgoingMessage{}, err
	}
	return OutgoingMessage{ConversationID: conversationID, Fields: fields}, nil
}

// ResolveIncoming renders a stored row for display: the plaintext, or the
// placeholder when this device cannot decrypt it. It never fails.
func (s *Service) ResolveIncoming(msg *store.Message) string {
	return s.policy.DecodeForDisplay(msg.ConversationID, FieldsFromRow(msg))
}

// SendMessage seals and persists one message, returning the stored row.
func (s *Service) SendMessage(ctx context.Context, scope convkey.Scope, senderID uuid.UUID, plaintext string) (*store.Message, error) {
	out, err := s.PrepareOutgoing(scope, plaintext)
	if err != nil {
		return nil, err
	}
	msg := &store.Message{
		ConversationID:    out.ConversationID,
		SenderID:          senderID,
		EncryptedContent:  out.Fields.EncryptedContent,
		IV:                out.Fields.IV,
		IsEncrypted:       out.Fields.IsEncrypted,
		EncryptionVersion: out.Fields.EncryptionVersion,
	}
	if err := s.store.Messages().Insert(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessage re-runs the full encrypt step over the new text and replaces
// the row's content columns. The replace lands only if the row is unchanged
// since msg was read; a concurrent writer surfaces as store.ErrConflict.
func (s *Service) EditMessage(ctx context.Context, msg *store.Message, plaintext string) (*store.Message, error) {
	fields, err := s.policy.Seal(msg.ConversationID, plaintext)
	if err != nil {
		return nil, err
	}
	env := store.Envelope{
		EncryptedContent:  fields.EncryptedContent,
		IV:                fields.IV,
		IsEncrypted:       fields.IsEncrypted,
		EncryptionVersion: fields.EncryptionVersion,
	}
	if err := s.store.Messages().ReplaceEnvelope(ctx, msg.ID, msg.UpdatedAt, env, s.now().UTC()); err != nil {
		return nil, err
	}
	updated, err := s.store.Messages().Get(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("service: reload edited row: %w", err)
	}
	return updated, nil
}

// ResetIdentity destroys the user's identity on this device and drops every
// cached conversation key, since all of them are tied to session state the
// reset invalidates.
func (s *Service) ResetIdentity(ctx context.Context, userID uuid.UUID) error {
	if err := s.identity.Reset(ctx, userID); err != nil {
		return err
	}
	s.deriver.Purge()
	return nil
}

// FieldsFromRow extracts the content columns this subsystem owns.
func FieldsFromRow(msg *store.Message) envelope.Fields {
	return envelope.Fields{
		EncryptedContent:  msg.EncryptedContent,
		IV:                msg.IV,
		IsEncrypted:       msg.IsEncrypted,
		EncryptionVersion: msg.EncryptionVersion,
	}
}
