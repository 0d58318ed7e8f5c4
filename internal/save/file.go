package save

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/levelkit/textquest/pkg/state"
)

// FileStore keeps one JSON file per slot under a directory. It is the
// default store for local play.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ Store = &FileStore{}

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

func (s *FileStore) Save(_ context.Context, slot string, gs *state.GameState) error {
	data, err := Encode(gs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	if err := os.WriteFile(s.path(slot), data, 0o644); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	s.logger.Debug("game saved", "slot", slot, "path", s.path(slot))
	return nil
}

func (s *FileStore) Load(_ context.Context, slot string) (*state.GameState, error) {
	data, err := os.ReadFile(s.path(slot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}
	return Decode(data)
}

func (s *FileStore) Delete(_ context.Context, slot string) error {
	err := os.Remove(s.path(slot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete save file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
