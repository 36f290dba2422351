/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config holds sweepd's process-start settings: the sweep.Config
// constants spec.md §6 names, backend selection for the kv.Store/archive
// layers, and hot-reload of the parts that are safe to change while
// running. Modeled on storage/settings.go's global Settings var plus
// scm-free get/set dispatch.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/launix-de/sweepcells/sweep"
)

// Settings is sweepd's full process configuration.
type Settings struct {
	Sweep sweep.Config `json:"sweep"`

	// StoreBackend selects the kv.Store/TransactionTable implementation:
	// "mem" or "postgres".
	StoreBackend string `json:"store_backend"`
	PostgresDSN  string `json:"postgres_dsn,omitempty"`

	// ArchiveBackend selects an archive.Factory by name from
	// archive.BackendRegistry; "noop" disables archiving.
	ArchiveBackend   string            `json:"archive_backend"`
	ArchiveSettings  map[string]string `json:"archive_settings,omitempty"`
}

// Default mirrors sweep.DefaultConfig with an in-process store and no
// archiving — the configuration every sweep test and a bare `sweepd`
// invocation with no config file runs under.
func Default() Settings {
	return Settings{
		Sweep:          sweep.DefaultConfig(),
		StoreBackend:   "mem",
		ArchiveBackend: "noop",
	}
}

func (s Settings) Validate() error {
	if err := s.Sweep.Validate(); err != nil {
		return err
	}
	switch s.StoreBackend {
	case "mem":
	case "postgres":
		if s.PostgresDSN == "" {
			return fmt.Errorf("config: store_backend %q requires postgres_dsn", s.StoreBackend)
		}
	default:
		return fmt.Errorf("config: unknown store_backend %q", s.StoreBackend)
	}
	return nil
}

// Load reads Settings from a JSON file, unmarshalled onto Default(): a
// field the file omits keeps its default value. The result is validated
// before it is returned.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Store is a hot-reloadable holder for the settings currently in effect,
// guarded the same way storage.Settings is guarded against concurrent
// access from ChangeSettings: by an ordinary mutex, since reloads are
// rare and readers just need a consistent snapshot.
type Store struct {
	mu  sync.RWMutex
	cur Settings
}

func NewStore(initial Settings) *Store {
	return &Store{cur: initial}
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) set(next Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = next
}
