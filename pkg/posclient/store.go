// pkg/posclient/store.go
package posclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/juju/errors"
)

// Store keys shared with the web front end.
const (
	TokenKey = "auth-token"
	UserKey  = "pos-user"
)

// FileStore keeps string values in a JSON object on disk, the command line
// counterpart of browser local storage. A missing or unreadable file reads
// as empty.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath is ~/.posctl/state.json.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Annotate(err, "locating home directory")
	}
	return filepath.Join(home, ".posctl", "state.json"), nil
}

func (s *FileStore) load() map[string]string {
	values := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		logger.Debugf("ignoring malformed store %s: %v", s.path, err)
		return make(map[string]string)
	}
	return values
}

func (s *FileStore) save(values map[string]string) error {
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Annotate(err, "creating store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Annotate(err, "writing store")
	}
	return errors.Trace(os.Rename(tmp, s.path))
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	values[key] = value
	return s.save(values)
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}
