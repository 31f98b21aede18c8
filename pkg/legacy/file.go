package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSONPath turns a key into a gjson/sjson path naming exactly that member.
// gjson.Escape leaves a leading ':' alone, which both libraries read as a
// literal-key marker.
func JSONPath(key string) string {
	path := gjson.Escape(key)
	if strings.HasPrefix(path, ":") {
		path = `\` + path
	}
	return path
}

// FileStore persists the legacy store as one JSON object whose members are
// the keys in insertion order. A missing file is an empty store.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore opens path, validating it when it already exists.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("legacy file path is required")
	}
	s := &FileStore{path: filepath.Clean(path)}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	gjson.Parse(doc).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	res := gjson.Get(doc, JSONPath(key))
	if !res.Exists() {
		return "", false, nil
	}
	// Hand-edited files may hold documents instead of encoded strings.
	if res.Type == gjson.String {
		return res.Str, true, nil
	}
	return res.Raw, true, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	updated, err := sjson.Set(doc, JSONPath(key), value)
	if err != nil {
		return fmt.Errorf("set legacy key %s: %w", key, err)
	}
	return s.write(updated)
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	path := JSONPath(key)
	if !gjson.Get(doc, path).Exists() {
		return nil
	}
	updated, err := sjson.Delete(doc, path)
	if err != nil {
		return fmt.Errorf("remove legacy key %s: %w", key, err)
	}
	return s.write(updated)
}

// Close marks the store unusable. The file is left in place.
func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FileStore) read() (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	return s.load()
}

func (s *FileStore) load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("read legacy file: %w", err)
	}
	if len(data) == 0 {
		return "{}", nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return "", fmt.Errorf("legacy file %s is not a JSON object", s.path)
	}
	return string(data), nil
}

// write replaces the file through a temporary sibling so a crash never
// leaves a truncated document behind.
func (s *FileStore) write(doc string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare legacy directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".legacy-*.json")
	if err != nil {
		return fmt.Errorf("create legacy temp file: %w", err)
	}
	if _, err := tmp.WriteString(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write legacy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close legacy file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace legacy file: %w", err)
	}
	return nil
}
