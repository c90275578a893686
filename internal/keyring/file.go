package keyring

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File stores one JSON entry per user under a directory with owner-only
// permissions. It stands in for the device's protected key storage.
type File struct {
	Dir string
}

func NewFile(dir string) *File {
	return &File{Dir: dir}
}

type entry struct {
	UserID     string    `json:"user_id"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *File) path(userID string) string {
	return filepath.Join(f.Dir, userID+".json")
}

// SavePrivateKey writes the key atomically: temp file then rename, so a crash
// mid-write never leaves a truncated entry behind.
func (f *File) SavePrivateKey(userID string, privateKey []byte) error {
	data, err := json.Marshal(entry{
		UserID:     userID,
		PrivateKey: base64.StdEncoding.EncodeToString(privateKey),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	path := f.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *File) LoadPrivateKey(userID string) ([]byte, error) {
	data, err := os.ReadFile(f.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("keyring: corrupt entry for user %s: %v", userID, err)
	}
	raw, err := base64.StdEncoding.DecodeString(e.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keyring: corrupt key material for user %s: %v", userID, err)
	}
	return raw, nil
}

func (f *File) DeletePrivateKey(userID string) error {
	err := os.Remove(f.path(userID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
