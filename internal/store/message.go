package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStore struct{ db *gorm.DB }

// Envelope carries the content columns written together on every encrypt,
// edit, and migration.
type Envelope struct {
	EncryptedContent  string
	IV                string
	IsEncrypted       bool
	EncryptionVersion int
}

func (m *MessageStore) Insert(ctx context.Context, msg *Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = msg.CreatedAt
	}
	return m.db.WithContext(ctx).Create(msg).Error
}

func (m *MessageStore) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	var msg Message
	if err := m.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ListPlaintext returns unencrypted rows oldest first, up to limit.
func (m *MessageStore) ListPlaintext(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	tx := m.db.WithContext(ctx).
		Where("is_encrypted = ?", false).
		Order("created_at asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ReplaceEnvelope swaps a row's content columns for the edit flow. The write
// lands only if updated_at still matches the value the caller read; a
// concurrent writer wins the race and the caller gets ErrConflict.
func (m *MessageStore) ReplaceEnvelope(ctx context.Context, id uuid.UUID, seenUpdatedAt time.Time, env Envelope, at time.Time) error {
	res := m.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND updated_at = ?", id, seenUpdatedAt).
		Updates(map[string]any{
			"encrypted_content":  env.EncryptedContent,
			"iv":                 env.IV,
			"is_encrypted":       env.IsEncrypted,
			"encryption_version": env.EncryptionVersion,
			"updated_at":         at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// EncryptInPlace is ReplaceEnvelope for the migration path: it additionally
// requires the row to still be unencrypted, so a re-listed row that another
// worker already converted cannot be sealed twice.
func (m *MessageStore) EncryptInPlace(ctx context.Context, id uuid.UUID, seenUpdatedAt time.Time, env Envelope, at time.Time) error {
	res := m.db.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND updated_at = ? AND is_encrypted = ?", id, seenUpdatedAt, false).
		Updates(map[string]any{
			"encrypted_content":  env.EncryptedContent,
			"iv":                 env.IV,
			"is_encrypted":       env.IsEncrypted,
			"encryption_version": env.EncryptionVersion,
			"updated_at":         at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// SoftDelete retires a row. The soft-delete scope hides it from reads, the
// migration scan, and the breakdown counts.
func (m *MessageStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := m.db.WithContext(ctx).Delete(&Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// EncryptionBreakdown counts live rows by encryption state for the status
// surface.
func (m *MessageStore) EncryptionBreakdown(ctx context.Context) (encrypted, plaintext int64, err error) {
	if err = m.db.WithContext(ctx).Model(&Message{}).Where("is_encrypted = ?", true).Count(&encrypted).Error; err != nil {
		return 0, 0, err
	}
	if err = m.db.WithContext(ctx).Model(&Message{}).Where("is_encrypted = ?", false).Count(&plaintext).Error; err != nil {
		return 0, 0, err
	}
	return encrypted, plaintext, nil
}
