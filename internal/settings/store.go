package settings

import (
	"sync"

	"render-relay/internal/logging"
)

// Backend is the durable layer behind a Store. Save always receives the
// whole map; the store has no notion of partial writes.
type Backend interface {
	Load() (map[string]*GuildSettings, error)
	Save(map[string]*GuildSettings) error
}

// Store holds every guild's settings in memory and writes the whole map
// back through its backend after each mutation. In-memory state is the
// source of truth for the process lifetime; persistence is best-effort.
type Store struct {
	mu      sync.Mutex
	backend Backend
	guilds  map[string]*GuildSettings
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		guilds:  make(map[string]*GuildSettings),
	}
}

// Load replaces the in-memory map with the backend's contents. A missing
// or unreadable backing store is logged and treated as empty, never fatal.
func (s *Store) Load() {
	data, err := s.backend.Load()
	if err != nil {
		logging.Warn("settings: load failed, starting empty: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds = data
	if s.guilds == nil {
		s.guilds = make(map[string]*GuildSettings)
	}
	logging.Info("settings: loaded %d guild record(s)", len(s.guilds))
}

// Get returns a copy of the guild's record, or the zero value if absent.
// Reading never creates a record.
func (s *Store) Get(guildID string) GuildSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.guilds[guildID]; ok {
		return *rec
	}
	return GuildSettings{}
}

// GuildIDs returns the IDs of every guild with a persisted record.
func (s *Store) GuildIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	return ids
}

// Mutate applies fn to the guild's record, creating a default record first
// if absent, then persists the entire map. A persistence failure is logged
// and does not roll back the in-memory change.
func (s *Store) Mutate(guildID string, fn func(*GuildSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.guilds[guildID]
	if !ok {
		rec = &GuildSettings{}
		s.guilds[guildID] = rec
	}
	fn(rec)

	if err := s.backend.Save(s.guilds); err != nil {
		logging.Warn("settings: persist failed for guild %s (in-memory state kept): %v", guildID, err)
	}
}
