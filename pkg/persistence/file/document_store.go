package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// errDocumentNotFound is internal to the file store; repositories translate
// it into the shared persistence sentinels.
var errDocumentNotFound = errors.New("document not found")

// documentStore keeps one JSON file per record under root/<collection>/.
// Reads and writes are serialized per collection so concurrent executions
// can be advanced safely in tests and single-node deployments.
type documentStore struct {
	dir string
	mu  sync.RWMutex
}

func newDocumentStore(root, collection string) *documentStore {
	return &documentStore{dir: filepath.Join(root, collection)}
}

func (s *documentStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *documentStore) get(id string, target any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errDocumentNotFound
		}

		return fmt.Errorf("failed to read document %s: %w", id, err)
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to decode document %s: %w", id, err)
	}

	return nil
}

func (s *documentStore) put(id string, document any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	err = os.WriteFile(s.path(id), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", id, err)
	}

	return nil
}

func (s *documentStore) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errDocumentNotFound
		}

		return fmt.Errorf("failed to remove document %s: %w", id, err)
	}

	return nil
}

// ids lists the stored document ids in a stable order.
func (s *documentStore) ids() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list collection: %w", err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		ids = append(ids, name[:len(name)-len(".json")])
	}

	sort.Strings(ids)

	return ids, nil
}

// loadAll decodes every document in the collection.
func loadAll[T any](s *documentStore) ([]*T, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	documents := make([]*T, 0, len(ids))

	for _, id := range ids {
		document := new(T)

		err := s.get(id, document)
		if err != nil {
			return nil, err
		}

		documents = append(documents, document)
	}

	return documents, nil
}
