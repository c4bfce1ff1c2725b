package walletstate

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSONShape(t *testing.T) {
	b, err := json.Marshal(RecordFrom(ConnectionState{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":false,"address":null,"chainId":null,"balance":null}`, string(b))

	b, err = json.Marshal(RecordFrom(ConnectionState{Connected: true, Address: "0xAA", ChainID: "0x1", Balance: big.NewInt(25e16)}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":true,"address":"0xAA","chainId":"0x1","balance":"0.25"}`, string(b))
}

func TestRecordConnectionState(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"connected":true,"address":"0xAA","chainId":"0xaa36a7","balance":"1.0"}`), &r))

	c := r.ConnectionState()
	assert.True(t, c.Connected)
	assert.Equal(t, "1000000000000000000", c.Balance.String())

	r.Balance = strPtr("garbage")
	assert.Nil(t, r.ConnectionState().Balance)

	r.Address = nil
	assert.False(t, r.ConnectionState().Connected)
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet_state.json")
	p := NewFilePersistence(path, nil)

	_, ok := p.Load()
	assert.False(t, ok)

	p.Save(RecordFrom(ConnectionState{Connected: true, Address: "0xAA"}))
	got, ok := p.Load()
	require.True(t, ok)
	assert.Equal(t, "0xAA", *got.Address)

	p.Clear()
	_, ok = p.Load()
	assert.False(t, ok)
	p.Clear()
}

func TestFilePersistenceEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet_state.json")
	p := NewFilePersistence(path, []byte("session-pass"))

	p.Save(RecordFrom(ConnectionState{Connected: true, Address: "0xAA"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0xAA")

	got, ok := p.Load()
	require.True(t, ok)
	assert.Equal(t, "0xAA", *got.Address)

	_, ok = NewFilePersistence(path, []byte("other-pass")).Load()
	assert.False(t, ok, "wrong password is a load miss, not an error")
}

func TestFilePersistenceCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := NewFilePersistence(path, nil).Load()
	assert.False(t, ok)
}

func TestFilePersistenceSaveFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// parent is a regular file, so the write must fail
	p := NewFilePersistence(filepath.Join(blocker, "wallet_state.json"), nil)
	assert.NotPanics(t, func() { p.Save(Record{}) })
}
