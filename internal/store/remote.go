package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sprinq/cecs378project-sub000/internal/token"
)

// RemoteDirectory talks to a public-key directory hosted behind the chat
// backend instead of the local database. It exposes the same surface as
// DirectoryStore so callers cannot tell the two apart.
type RemoteDirectory struct {
	baseURL string
	signer  *token.Signer
	subject string
	http    *http.Client
}

func NewRemoteDirectory(baseURL string, signer *token.Signer, subject string) *RemoteDirectory {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &RemoteDirectory{
		baseURL: base,
		signer:  signer,
		subject: subject,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *RemoteDirectory) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer, err := r.signer.Sign(r.subject, 2*time.Minute)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

func (r *RemoteDirectory) Publish(ctx context.Context, userID uuid.UUID, publicKey string) error {
	data, err := json.Marshal(map[string]string{"publicKey": publicKey})
	if err != nil {
		return err
	}
	req, err := r.newRequest(ctx, http.MethodPut, "/v1/directory/"+userID.String(), data)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("directory publish failed: %s", resp.Status)
	}
	return nil
}

func (r *RemoteDirectory) Get(ctx context.Context, userID uuid.UUID) (*DirectoryEntry, error) {
	req, err := r.newRequest(ctx, http.MethodGet, "/v1/directory/"+userID.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRecordNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup failed: %s", resp.Status)
	}

	var body struct {
		UserID    string `json:"userId"`
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body.PublicKey) == "" {
		return nil, fmt.Errorf("empty public key from directory")
	}
	return &DirectoryEntry{UserID: userID, PublicKey: body.PublicKey}, nil
}

func (r *RemoteDirectory) Delete(ctx context.Context, userID uuid.UUID) error {
	req, err := r.newRequest(ctx, http.MethodDelete, "/v1/directory/"+userID.String(), nil)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("directory delete failed: %s", resp.Status)
	}
	return nil
}
