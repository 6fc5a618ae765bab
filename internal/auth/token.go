package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Token is one OAuth2 access/refresh pair with its absolute expiry.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expires      time.Time `json:"expires"`
}

// Remaining returns the token lifetime left at now.
func (t Token) Remaining(now time.Time) time.Duration {
	return t.Expires.Sub(now)
}

// Store persists the token pair across process runs.
type Store interface {
	// Load returns the stored token; ok is false when none has been saved.
	Load() (tok Token, ok bool, err error)
	// Save durably replaces the stored token.
	Save(tok Token) error
	// Clear removes the stored token.
	Clear() error
}

// FileStore keeps the token as a small JSON file. Saves are atomic: the new
// state is written to a temp file and renamed over the old one, so a crashed
// write never leaves a partial token for the next process start.
type FileStore struct {
	Path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store.
func (s *FileStore) Load() (Token, bool, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("reading token file: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, false, fmt.Errorf("parsing token file %s: %w", s.Path, err)
	}
	return tok, true, nil
}

// Save implements Store.
func (s *FileStore) Save(tok Token) error {
	data, err := json.MarshalIndent(tok, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
