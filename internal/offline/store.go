package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var ErrCorruptStore = errors.New("offline queue storage is corrupt")

// Store persists the whole queue as one JSON array.
type Store interface {
	Load(ctx context.Context) ([]QueuedRequest, error)
	Save(ctx context.Context, requests []QueuedRequest) error
}

type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]QueuedRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeQueue(s.data)
}

func (s *MemoryStore) Save(ctx context.Context, requests []QueuedRequest) error {
	data, err := encodeQueue(requests)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// FileStore keeps the queue in a single JSON file. Saves go through a
// temporary file and a rename so readers never see a partial array.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) ([]QueuedRequest, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []QueuedRequest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	return decodeQueue(data)
}

func (s *FileStore) Save(ctx context.Context, requests []QueuedRequest) error {
	data, err := encodeQueue(requests)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp queue file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

func encodeQueue(requests []QueuedRequest) ([]byte, error) {
	if requests == nil {
		requests = []QueuedRequest{}
	}
	data, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	return data, nil
}

func decodeQueue(data []byte) ([]QueuedRequest, error) {
	if len(data) == 0 {
		return []QueuedRequest{}, nil
	}
	var requests []QueuedRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if requests == nil {
		requests = []QueuedRequest{}
	}
	return requests, nil
}
