// Package toml persists LocalStorage items in a single TOML file.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/chatkit-broker/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	StoragePathKey = "storage.path"

	storageFileMode   = 0o600
	storageDirMode    = 0o700
	storageConfigDir  = ".config/chatkit"
	storageConfigFile = "storage.toml"
	tempFilePattern   = ".storage-*.toml.tmp"
)

type Store struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.LocalStorage = (*Store)(nil)

// NewStore resolves the storage file from cfg, defaulting to
// ~/.config/chatkit/storage.toml.
func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(StoragePathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, storageConfigDir, storageConfigFile)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, mu: lockForPath(path)}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return "", false, err
	}

	value, ok := file.Items[key]
	return value, ok, nil
}

func (s *Store) SetItem(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return errors.New("storage key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	file.Items[key] = value

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	if _, ok := file.Items[key]; !ok {
		return nil
	}
	delete(file.Items, key)

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read storage file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode storage file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), storageDirMode); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp storage file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp storage file: %w", err)
	}

	if err := tempFile.Chmod(storageFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp storage file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp storage file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}

	cleanup = false
	return nil
}
