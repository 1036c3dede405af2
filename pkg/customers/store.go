// Package customers provides a file-backed customer snapshot store. The real
// customer platform sits behind the same interfaces; this store serves local
// development, demos and tests.
package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

// ErrCustomerNotFound is returned when no snapshot exists for a customer id.
var ErrCustomerNotFound = errors.New("customer not found")

// FileStore loads customer snapshots from a single JSON array file and serves
// them from memory. It implements models.AttributeSource and the population
// listing used by segment evaluation.
type FileStore struct {
	path string

	mu        sync.RWMutex
	customers map[string]*models.Customer
	order     []string
}

// NewFileStore creates a store reading from the given JSON file. Accepts
// plain paths and file:// URLs.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:      strings.Replace(path, "file://", "", 1),
		customers: make(map[string]*models.Customer),
	}
}

// Load reads the snapshot file into memory, replacing any previous load.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to read customer file: %w", err)
	}

	var loaded []*models.Customer

	err = json.Unmarshal(data, &loaded)
	if err != nil {
		return fmt.Errorf("failed to decode customer file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = make(map[string]*models.Customer, len(loaded))
	s.order = make([]string, 0, len(loaded))

	for _, customer := range loaded {
		if _, dup := s.customers[customer.ID]; !dup {
			s.order = append(s.order, customer.ID)
		}

		s.customers[customer.ID] = customer
	}

	return nil
}

// GetAttributes returns the snapshot for one customer.
func (s *FileStore) GetAttributes(customerID string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, found := s.customers[customerID]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}

	return customer, nil
}

// ListCustomers returns all snapshots in file order.
func (s *FileStore) ListCustomers(_ context.Context) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]*models.Customer, 0, len(s.order))
	for _, id := range s.order {
		customers = append(customers, s.customers[id])
	}

	return customers, nil
}

// Put inserts or replaces one snapshot in memory. Used by tests and demo
// seeding; it does not write back to the file.
func (s *FileStore) Put(customer *models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.customers[customer.ID]; !dup {
		s.order = append(s.order, customer.ID)
	}

	s.customers[customer.ID] = customer
}
