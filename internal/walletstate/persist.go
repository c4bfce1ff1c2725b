package walletstate

import (
	"sync"

	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/securefile"
	"github.com/quantumauth-io/quantum-bridge-client/internal/units"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// Record is the persisted form of ConnectionState. Balance is a decimal
// string in native units.
type Record struct {
	Connected bool    `json:"connected"`
	Address   *string `json:"address"`
	ChainID   *string `json:"chainId"`
	Balance   *string `json:"balance"`
}

func RecordFrom(c ConnectionState) Record {
	r := Record{Connected: c.Connected}
	if c.Address != "" {
		r.Address = &c.Address
	}
	if c.ChainID != "" {
		r.ChainID = &c.ChainID
	}
	if c.Balance != nil {
		b := units.FormatEther(c.Balance)
		r.Balance = &b
	}
	return r
}

// ConnectionState converts the record back. An unparsable balance is dropped.
func (r Record) ConnectionState() ConnectionState {
	c := ConnectionState{Connected: r.Connected}
	if r.Address != nil {
		c.Address = *r.Address
	}
	if r.ChainID != nil {
		c.ChainID = *r.ChainID
	}
	if r.Balance != nil {
		if wei, err := units.ParseEther(*r.Balance); err == nil {
			c.Balance = wei
		}
	}
	if c.Address == "" {
		c.Connected = false
	}
	return c
}

// Persistence stores the single connection record. Implementations are best
// effort: failures are logged, never returned.
type Persistence interface {
	Save(r Record)
	Load() (Record, bool)
	Clear()
}

// FilePersistence keeps the record in a JSON file, encrypted when a
// password is set.
type FilePersistence struct {
	path     string
	password []byte
}

func NewFilePersistence(path string, password []byte) *FilePersistence {
	return &FilePersistence{path: path, password: password}
}

// DefaultFilePersistence resolves wallet_state.json under the app config dir.
func DefaultFilePersistence(password []byte) (*FilePersistence, error) {
	path, err := securefile.ResolvePath(constants.AppName, constants.WalletStateFile)
	if err != nil {
		return nil, err
	}
	return NewFilePersistence(path, password), nil
}

func (p *FilePersistence) Path() string { return p.path }

func (p *FilePersistence) options() securefile.Options {
	return securefile.Options{AAD: []byte(constants.WalletStateAAD)}
}

func (p *FilePersistence) Save(r Record) {
	var err error
	if len(p.password) > 0 {
		err = securefile.WriteEncryptedJSON(p.path, r, p.password, p.options())
	} else {
		err = securefile.WriteJSON(p.path, r, constants.FilePerm, constants.DirectoryPerm)
	}
	if err != nil {
		log.Error("failed to save wallet state", "path", p.path, "error", err)
	}
}

func (p *FilePersistence) Load() (Record, bool) {
	if !securefile.Exists(p.path) {
		return Record{}, false
	}

	var (
		r   Record
		err error
	)
	if len(p.password) > 0 {
		r, err = securefile.ReadEncryptedJSON[Record](p.path, p.password, p.options())
	} else {
		r, err = securefile.ReadJSON[Record](p.path)
	}
	if err != nil {
		log.Warn("failed to load wallet state", "path", p.path, "error", err)
		return Record{}, false
	}
	return r, true
}

func (p *FilePersistence) Clear() {
	if err := securefile.Remove(p.path); err != nil {
		log.Error("failed to clear wallet state", "path", p.path, "error", err)
	}
}

// MemoryPersistence keeps the record in memory.
type MemoryPersistence struct {
	mu     sync.Mutex
	record *Record
	saves  int
	clears int
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

// Seed sets the stored record without counting it as a save.
func (m *MemoryPersistence) Seed(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &r
}

func (m *MemoryPersistence) Save(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &r
	m.saves++
}

func (m *MemoryPersistence) Load() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return Record{}, false
	}
	return *m.record, true
}

func (m *MemoryPersistence) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	m.clears++
}

// Counts returns how many saves and clears happened.
func (m *MemoryPersistence) Counts() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}
