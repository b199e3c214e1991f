package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/devrev/swissmatch/internal/model"
)

const (
	snapshotExt  = ".yaml"
	backupSuffix = "~"
)

// FileSnapshotStore writes one YAML document per tournament. Writes go to
// a temporary file first and are renamed into place; the previous version
// is kept as a "~" backup when enabled.
type FileSnapshotStore struct {
	dir    string
	backup bool
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileSnapshotStore creates the directory if needed
func NewFileSnapshotStore(dir string, backup bool, logger *zap.Logger) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSnapshotStore{
		dir:    dir,
		backup: backup,
		logger: logger,
	}, nil
}

func (s *FileSnapshotStore) path(tournamentID string) string {
	return filepath.Join(s.dir, tournamentID+snapshotExt)
}

// Save writes the snapshot atomically
func (s *FileSnapshotStore) Save(ctx context.Context, snapshot *model.TournamentSnapshot) error {
	if err := validID(snapshot.ID); err != nil {
		return err
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(snapshot.ID)

	if existing, err := s.read(target); err == nil && existing.Version > snapshot.Version {
		return ErrVersionConflict
	}

	if s.backup {
		if err := copyFile(target, target+backupSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to back up snapshot: %w", err)
		}
	}

	tmp, err := os.CreateTemp(s.dir, "."+snapshot.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	s.logger.Debug("Snapshot written",
		zap.String("tournament_id", snapshot.ID),
		zap.Int64("version", snapshot.Version),
		zap.String("path", target))

	return nil
}

// Load reads a snapshot, falling back to the backup when the main file is
// unreadable
func (s *FileSnapshotStore) Load(ctx context.Context, tournamentID string) (*model.TournamentSnapshot, error) {
	// No snapshot can exist under an id Save refuses
	if validID(tournamentID) != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(tournamentID)
	snapshot, err := s.read(target)
	if err == nil {
		return snapshot, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	s.logger.Warn("Snapshot unreadable, trying backup",
		zap.String("tournament_id", tournamentID),
		zap.Error(err))

	snapshot, backupErr := s.read(target + backupSuffix)
	if backupErr != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *FileSnapshotStore) read(path string) (*model.TournamentSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snapshot model.TournamentSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &snapshot, nil
}

// Delete removes a snapshot and its backup
func (s *FileSnapshotStore) Delete(ctx context.Context, tournamentID string) error {
	if validID(tournamentID) != nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(tournamentID)
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := os.Remove(target + backupSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the ids of all snapshot files
func (s *FileSnapshotStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks that the directory is still accessible
func (s *FileSnapshotStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op
func (s *FileSnapshotStore) Close() error {
	return nil
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid tournament id %q", id)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
