// Package session persists the logged-in user between CLI invocations.
// The realtime connection lives exactly as long as a session: login creates
// it, logout tears it down.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no active session")

type Session struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// New validates the user id and returns a fresh session.
func New(userID, displayName string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id cannot be empty")
	}
	return &Session{
		UserID:      userID,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now(),
	}, nil
}

func sessionFile(dir string) string {
	return filepath.Join(dir, "session.json")
}

// Save writes the session under dir, creating it if needed.
func (s *Session) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(sessionFile(dir), data, 0o600)
}

// Load reads the persisted session from dir.
func Load(dir string) (*Session, error) {
	data, err := os.ReadFile(sessionFile(dir))
	if os.IsNotExist(err) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}
	if s.UserID == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Clear removes the persisted session. Clearing a missing session is not an
// error.
func Clear(dir string) error {
	err := os.Remove(sessionFile(dir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
