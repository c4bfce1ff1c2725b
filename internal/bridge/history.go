package bridge

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/securefile"
)

type historyStore struct {
	Schema       int           `json:"schema"`
	Transactions []Transaction `json:"transactions"`
}

// History is the list of submitted transfers, persisted to transactions.json.
// An empty path keeps it in memory only.
type History struct {
	mu     sync.Mutex
	path   string
	store  historyStore
	loaded bool
}

// NewHistory resolves transactions.json using securefile.ConfigPathCandidates.
func NewHistory() (*History, error) {
	path, err := securefile.ResolvePath(constants.AppName, constants.TransactionsFile)
	if err != nil {
		return nil, err
	}
	return NewHistoryAt(path), nil
}

func NewHistoryAt(path string) *History {
	return &History{
		path:  path,
		store: historyStore{Schema: constants.SchemaV1},
	}
}

func (h *History) Path() string { return h.path }

func (h *History) Add(tx Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLoaded(); err != nil {
		return err
	}
	h.store.Transactions = append(h.store.Transactions, tx)
	return h.persist()
}

// Update applies fn to the transaction with id and persists the result.
func (h *History) Update(id string, fn func(*Transaction)) (Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLoaded(); err != nil {
		return Transaction{}, err
	}
	for i := range h.store.Transactions {
		if h.store.Transactions[i].ID != id {
			continue
		}
		fn(&h.store.Transactions[i])
		h.store.Transactions[i].UpdatedAt = time.Now().UTC()
		return h.store.Transactions[i], h.persist()
	}
	return Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
}

func (h *History) Get(id string) (Transaction, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLoaded(); err != nil {
		return Transaction{}, false, err
	}
	for _, tx := range h.store.Transactions {
		if tx.ID == id {
			return tx, true, nil
		}
	}
	return Transaction{}, false, nil
}

// List returns the transactions newest first.
func (h *History) List() ([]Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make([]Transaction, len(h.store.Transactions))
	copy(out, h.store.Transactions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (h *History) ensureLoaded() error {
	if h.loaded {
		return nil
	}
	if h.path == "" || !securefile.Exists(h.path) {
		h.loaded = true
		return nil
	}

	// an unreadable file stays unloaded so nothing is persisted over it
	s, err := securefile.ReadJSON[historyStore](h.path)
	if err != nil {
		return fmt.Errorf("load transaction history: %w", err)
	}
	if s.Schema == 0 {
		s.Schema = constants.SchemaV1
	}
	h.store = s
	h.loaded = true
	return nil
}

func (h *History) persist() error {
	if h.path == "" {
		return nil
	}
	return securefile.WriteJSON(h.path, h.store, constants.FilePerm, constants.DirectoryPerm)
}
