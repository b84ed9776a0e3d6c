package session

import (
	"errors"
	"testing"
)

func TestSessionRoundtrip(t *testing.T) {
	dir := t.TempDir()

	s, err := New("u1", "Ana Traveler")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.UserID != "u1" || loaded.DisplayName != "Ana Traveler" {
		t.Errorf("roundtrip mismatch: %+v", loaded)
	}
}

func TestLoad_NoSession(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	s, _ := New("u1", "")
	s.Save(dir)

	if err := Clear(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after clear, got %v", err)
	}
	// clearing twice is fine
	if err := Clear(dir); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestNew_EmptyUserID(t *testing.T) {
	if _, err := New("  ", "name"); err == nil {
		t.Error("expected error for blank user id")
	}
}
