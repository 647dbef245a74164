// Package state keeps small bits of CLI state, such as the last session
// started, under ~/.formpilot.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	stateDir        = ".formpilot"
	lastSessionFile = "last-session"
)

// ErrNoSession is returned when no session has been recorded.
var ErrNoSession = errors.New("no previous session found")

func statePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, stateDir), nil
}

// SaveLastSession records sessionID as the most recently started session.
func SaveLastSession(sessionID string) error {
	dir, err := statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, lastSessionFile), []byte(sessionID+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save last session: %w", err)
	}
	return nil
}

// LastSession returns the most recently started session ID.
func LastSession() (string, error) {
	dir, err := statePath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, lastSessionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read last session: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

// ResolveSession returns id, or the last started session when id is empty.
func ResolveSession(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	last, err := LastSession()
	if err != nil {
		return "", fmt.Errorf("--session-id not given: %w", err)
	}
	return last, nil
}
