// Package skin persists the cosmetic skin chosen for each limb. Values are
// stored as "limb_skin.<slot>" keys in a small config file.
package skin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"limbrun/internal/limb"

	"github.com/spf13/viper"
)

const keyPrefix = "limb_skin."

// Store is a file-backed skin index per slot. Loads and saves are
// synchronous.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open reads path if it exists. The file format follows the extension
// (toml, yaml or json); a missing file starts empty.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read skins %s: %w", path, err)
		}
	}
	return &Store{v: v, path: path}, nil
}

// LoadSkin returns the stored skin index for slot, 0 when unset.
func (s *Store) LoadSkin(slot limb.Slot) int {
	if !slot.Valid() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetInt(key(slot))
}

// SaveSkin records idx for slot and writes the file.
func (s *Store) SaveSkin(slot limb.Slot, idx int) error {
	if !slot.Valid() {
		return fmt.Errorf("save skin: invalid slot %d", slot)
	}
	if idx < 0 {
		return fmt.Errorf("save skin %v: negative index %d", slot, idx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key(slot), idx)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save skin %v: %w", slot, err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("save skin %v: %w", slot, err)
	}
	return nil
}

// All returns the skin index of every slot.
func (s *Store) All() [limb.Count]int {
	var out [limb.Count]int
	for _, slot := range limb.All {
		out[slot] = s.LoadSkin(slot)
	}
	return out
}

func key(slot limb.Slot) string {
	return keyPrefix + strings.ToLower(slot.String())
}
