package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend persists the settings map as a single JSON document mapping
// guild-ID strings to their records.
type FileBackend struct {
	path string
}

// NewFileBackend creates the data directory if missing and returns a
// backend writing to <dataDir>/guild-settings.json.
func NewFileBackend(dataDir string) (*FileBackend, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileBackend{path: filepath.Join(dataDir, "guild-settings.json")}, nil
}

func (b *FileBackend) Load() (map[string]*GuildSettings, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*GuildSettings), nil
		}
		return nil, err
	}

	guilds := make(map[string]*GuildSettings)
	if err := json.Unmarshal(data, &guilds); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", b.path, err)
	}
	return guilds, nil
}

func (b *FileBackend) Save(guilds map[string]*GuildSettings) error {
	data, err := json.MarshalIndent(guilds, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write cannot truncate the store.
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
