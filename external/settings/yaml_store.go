package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/foxseedlab/pwbot/internal/settings"
	"gopkg.in/yaml.v3"
)

// YAMLStore keeps the runtime settings in a single YAML file. Every Update
// rewrites the whole file through a temporary file and a rename.
type YAMLStore struct {
	path string

	mu      sync.RWMutex
	current settings.Settings
}

func NewYAMLStore(path string) (*YAMLStore, error) {
	s := &YAMLStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *YAMLStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.current = settings.Settings{ReactionRoles: map[string]*string{}}
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	loaded, err := decode(b)
	if err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}
	s.current = loaded
	return nil
}

func decode(b []byte) (settings.Settings, error) {
	var out settings.Settings
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return settings.Settings{}, err
	}
	if out.ReactionRoles == nil {
		out.ReactionRoles = map[string]*string{}
	}
	return out, nil
}

func (s *YAMLStore) Get() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *YAMLStore) Update(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if err := next.Apply(key, value); err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *YAMLStore) persist(next settings.Settings) error {
	b, err := yaml.Marshal(next)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
