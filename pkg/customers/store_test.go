package customers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/lifecycle/pkg/customers"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "customers.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadAndGetAttributes(t *testing.T) {
	path := writeSnapshot(t, `[
		{"id": "cust-1", "name": "Ada Lovelace", "days_inactive": 45, "churn_risk": "low"},
		{"id": "cust-2", "name": "Grace Hopper", "days_inactive": 95, "churn_risk": "high"}
	]`)

	store := customers.NewFileStore(path)
	require.NoError(t, store.Load())

	customer, err := store.GetAttributes("cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", customer.Name)
	assert.Equal(t, 45, customer.DaysInactive)

	_, err = store.GetAttributes("cust-3")
	assert.ErrorIs(t, err, customers.ErrCustomerNotFound)
}

func TestListCustomersPreservesFileOrder(t *testing.T) {
	path := writeSnapshot(t, `[
		{"id": "cust-b", "name": "B"},
		{"id": "cust-a", "name": "A"}
	]`)

	store := customers.NewFileStore(path)
	require.NoError(t, store.Load())

	listed, err := store.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "cust-b", listed[0].ID)
	assert.Equal(t, "cust-a", listed[1].ID)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := customers.NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, store.Load())

	listed, err := store.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeSnapshot(t, `{"not": "an array"}`)

	store := customers.NewFileStore(path)
	assert.Error(t, store.Load())
}

func TestFileURLPathIsAccepted(t *testing.T) {
	path := writeSnapshot(t, `[{"id": "cust-1", "name": "Ada"}]`)

	store := customers.NewFileStore("file://" + path)
	require.NoError(t, store.Load())

	_, err := store.GetAttributes("cust-1")
	assert.NoError(t, err)
}
