package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StorageState is the persisted cookie jar for a session. The format is
// deliberately minimal: cookies are the only storage the transport can read
// back reliably.
type StorageState struct {
	Cookies []Cookie  `json:"cookies"`
	SavedAt time.Time `json:"savedAt"`
}

// SaveStorageState reads cookies through the transport and writes them to
// path as JSON.
func SaveStorageState(t Transport, path string) error {
	cookies, err := t.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	state := StorageState{Cookies: cookies, SavedAt: time.Now()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage state: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write storage state: %w", err)
	}
	return nil
}

// LoadStorageState reads a saved state file and applies its cookies through
// the transport. A missing file is not an error; there is simply nothing to
// restore.
func LoadStorageState(t Transport, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read storage state: %w", err)
	}

	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode storage state: %w", err)
	}
	if len(state.Cookies) == 0 {
		return nil
	}

	if err := t.SetCookies(state.Cookies); err != nil {
		return fmt.Errorf("failed to apply cookies: %w", err)
	}
	return nil
}
