package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"roastblur/internal/game"
)

// isValidSessionID reports whether id is a UUID, the only shape of session
// ID this server hands out.
func isValidSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// getSecureSessionPath resolves the snapshot file for sessionID inside dir,
// refusing anything that is not a plain session ID.
func getSecureSessionPath(dir, sessionID string) (string, error) {
	if !isValidSessionID(sessionID) {
		return "", fmt.Errorf("invalid session ID format: %q", sessionID)
	}
	path := filepath.Join(dir, sessionID+".json")
	if filepath.Dir(path) != filepath.Clean(dir) {
		return "", fmt.Errorf("session path escapes %s", dir)
	}
	return path, nil
}

// saveSessionToFile persists a session snapshot to disk.
var saveSessionToFile = func(dir, sessionID string, s game.Session) error {
	sessionFile, err := getSecureSessionPath(dir, sessionID)
	if err != nil {
		logWarn("Skipping save for invalid session ID: %s", sessionID)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logWarn("Failed to create sessions directory: %v", err)
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		logWarn("Failed to marshal session %s: %v", sessionID, err)
		return err
	}

	tmp := sessionFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		logWarn("Failed to write session file %s: %v", tmp, err)
		return err
	}
	if err := os.Rename(tmp, sessionFile); err != nil {
		logWarn("Failed to move session file into place %s: %v", sessionFile, err)
		return err
	}
	logger.Debugf("Saved session file: %s (phase: %s)", sessionFile, s.Phase)
	return nil
}

// loadSessionFromFile loads a session snapshot from disk. Snapshots older
// than maxAge or that fail to decode are removed and reported as missing.
var loadSessionFromFile = func(dir, sessionID string, maxAge time.Duration) (game.Session, error) {
	sessionFile, err := getSecureSessionPath(dir, sessionID)
	if err != nil {
		return game.Session{}, os.ErrNotExist
	}

	info, err := os.Stat(sessionFile)
	if err != nil {
		return game.Session{}, err
	}
	if age := time.Since(info.ModTime()); age > maxAge {
		logInfo("Session file is too old (%v, max: %v), removing: %s", age, maxAge, sessionFile)
		_ = os.Remove(sessionFile)
		return game.Session{}, os.ErrNotExist
	}

	data, err := os.ReadFile(sessionFile)
	if err != nil {
		logWarn("Failed to read session file %s: %v", sessionFile, err)
		return game.Session{}, err
	}

	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		logWarn("Failed to unmarshal session file %s (corrupted), removing: %v", sessionFile, err)
		_ = os.Remove(sessionFile)
		return game.Session{}, os.ErrNotExist
	}
	if err := s.Validate(); err != nil {
		logWarn("Session file %s has invalid structure (%v), removing", sessionFile, err)
		_ = os.Remove(sessionFile)
		return game.Session{}, os.ErrNotExist
	}

	logInfo("Loaded session from file: %s (phase: %s, answers: %d)", sessionFile, s.Phase, len(s.Answers))
	return s, nil
}

// deleteSessionFile removes the snapshot for sessionID if there is one.
func deleteSessionFile(dir, sessionID string) error {
	sessionFile, err := getSecureSessionPath(dir, sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// cleanupOldSessions removes session files older than maxAge.
var cleanupOldSessions = func(dir string, maxAge time.Duration) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logWarn("Failed to read sessions directory: %v", err)
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	removedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logWarn("Failed to get info for session file %s: %v", entry.Name(), err)
			errorCount++
			continue
		}

		if info.ModTime().Before(cutoff) {
			sessionFile := filepath.Join(dir, entry.Name())
			if err := os.Remove(sessionFile); err != nil {
				logWarn("Failed to remove old session file %s: %v", sessionFile, err)
				errorCount++
			} else {
				removedCount++
			}
		}
	}

	logInfo("Session cleanup completed: removed %d files, %d errors", removedCount, errorCount)
	return nil
}

// startSessionCleanup runs cleanupOldSessions every interval until stop is
// closed.
func (app *App) startSessionCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cleanupOldSessions(app.Config.SessionDir, app.Config.SessionTimeout); err != nil {
					logWarn("Session cleanup failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}
