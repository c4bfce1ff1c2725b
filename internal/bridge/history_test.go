package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPersistsAndOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	h := NewHistoryAt(path)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.Add(Transaction{ID: "a", Status: StatusPending, Timestamp: base}))
	require.NoError(t, h.Add(Transaction{ID: "b", Status: StatusPending, Timestamp: base.Add(time.Minute)}))

	updated, err := h.Update("a", func(tx *Transaction) { tx.Status = StatusConfirmed })
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.False(t, updated.UpdatedAt.IsZero())

	reloaded := NewHistoryAt(path)
	list, err := reloaded.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, StatusConfirmed, list[1].Status)
}

func TestHistoryUpdateUnknown(t *testing.T) {
	h := NewHistoryAt("")
	_, err := h.Update("missing", func(*Transaction) {})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestHistoryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.json")
	corrupt := []byte(`{"schema":1,"transactions":[{"id":"keep-me"`)
	require.NoError(t, os.WriteFile(path, corrupt, 0o600))

	h := NewHistoryAt(path)
	_, err := h.List()
	assert.Error(t, err)

	_, err = h.List()
	assert.Error(t, err, "a failed load is retried, not treated as empty")

	assert.Error(t, h.Add(Transaction{ID: "new"}))
	_, err = h.Update("keep-me", func(*Transaction) {})
	assert.Error(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, onDisk)
}

func TestHistoryInMemory(t *testing.T) {
	h := NewHistoryAt("")
	require.NoError(t, h.Add(Transaction{ID: "a"}))

	tx, ok, err := h.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", tx.ID)
}
