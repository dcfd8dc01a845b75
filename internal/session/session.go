// Package session implements the session discovery file
// (~/.samply/session.json) the query CLI uses to locate a running server,
// and the liveness check used by "samply stop".
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Session is the on-disk session discovery record (§6).
type Session struct {
	ServerURL   string `json:"server_url"`
	ProfilePath string `json:"profile_path"`
	PID         int32  `json:"pid"`
	StartedAt   string `json:"started_at"`
}

// New builds a session record for the current process.
func New(serverURL, profilePath string) Session {
	return Session{
		ServerURL:   serverURL,
		ProfilePath: profilePath,
		PID:         int32(os.Getpid()),
		StartedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Save writes s to path, creating its parent directory if needed.
func (s Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session file %s: %w", path, err)
	}
	return nil
}

// Load reads the session discovery file at path.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read session file %s: %w", path, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return s, nil
}

// Remove deletes the session discovery file. Missing files are not an
// error: "stop" on an already-stopped server is idempotent.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a session discovery file is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsAlive reports whether s's process is still running, using gopsutil for
// a liveness check that works identically on POSIX (where the spec calls
// for signal 0) and Windows (where the spec assumes liveness from file
// presence alone, since Windows has no signal-0 analogue).
func (s Session) IsAlive() bool {
	alive, err := process.PidExists(s.PID)
	if err != nil {
		return false
	}
	return alive
}
