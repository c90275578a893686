package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DirectoryStore is the database-backed public-key directory.
type DirectoryStore struct{ db *gorm.DB }

func (d *DirectoryStore) Publish(ctx context.Context, userID uuid.UUID, publicKey string) error {
	entry := DirectoryEntry{UserID: userID, PublicKey: publicKey}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"public_key": publicKey,
			}),
		}).
		Create(&entry).Error
}

func (d *DirectoryStore) Get(ctx context.Context, userID uuid.UUID) (*DirectoryEntry, error) {
	var entry DirectoryEntry
	if err := d.db.WithContext(ctx).First(&entry, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (d *DirectoryStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return d.db.WithContext(ctx).Delete(&DirectoryEntry{}, "user_id = ?", userID).Error
}
