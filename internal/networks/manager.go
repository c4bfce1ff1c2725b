package networks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/securefile"
)

var ErrNetworkExists = errors.New("network already exists")

// Manager is the registry of known networks persisted to networks.json.
type Manager struct {
	mu     sync.Mutex
	path   string
	store  Store
	loaded bool
}

func NewManager() (*Manager, error) {
	path, err := securefile.ResolvePath(constants.AppName, constants.NetworksFile)
	if err != nil {
		return nil, err
	}
	return NewManagerAt(path), nil
}

// NewManagerAt uses path as networks.json. An empty path keeps the registry
// in memory.
func NewManagerAt(path string) *Manager {
	return &Manager{
		path:  path,
		store: NewEmptyStore(),
	}
}

func (m *Manager) Path() string { return m.path }

// AddNetwork registers n under key (or the normalized name when key is empty).
// Duplicate keys or chain ids are rejected.
func (m *Manager) AddNetwork(ctx context.Context, key string, n NetworkDescriptor) (NetworkDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return NetworkDescriptor{}, err
	}

	normalized, err := normalizeDescriptor(n)
	if err != nil {
		return NetworkDescriptor{}, err
	}
	if key = NormalizeKey(key); key == "" {
		key = NormalizeKey(normalized.Name)
	}

	if _, exists := m.store.Networks[key]; exists {
		return NetworkDescriptor{}, fmt.Errorf("%w: key %s", ErrNetworkExists, key)
	}
	if existing, ok := m.findKeyByChainID(normalized.ChainID); ok {
		return NetworkDescriptor{}, fmt.Errorf("%w: chainId %s (key: %s)", ErrNetworkExists, normalized.ChainID, existing)
	}

	m.store.Networks[key] = normalized
	if err := m.persist(); err != nil {
		return NetworkDescriptor{}, err
	}
	return normalized, nil
}

func (m *Manager) RemoveByChainID(ctx context.Context, chainIdHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	key, ok := m.findKeyByChainID(chainIdHex)
	if !ok {
		return nil
	}
	delete(m.store.Networks, key)
	return m.persist()
}

func (m *Manager) FindByChainID(ctx context.Context, chainIdHex string) (NetworkDescriptor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return NetworkDescriptor{}, false, err
	}
	if NormalizeChainIDHex(chainIdHex) == "" {
		return NetworkDescriptor{}, false, errors.New("missing chainIdHex")
	}
	key, ok := m.findKeyByChainID(chainIdHex)
	if !ok {
		return NetworkDescriptor{}, false, nil
	}
	return m.store.Networks[key], true, nil
}

func (m *Manager) FindByKey(ctx context.Context, key string) (NetworkDescriptor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return NetworkDescriptor{}, false, err
	}
	n, ok := m.store.Networks[NormalizeKey(key)]
	return n, ok, nil
}

// Resolve accepts either a registry key or a chain id.
func (m *Manager) Resolve(ctx context.Context, keyOrChainID string) (NetworkDescriptor, error) {
	if n, ok, err := m.FindByKey(ctx, keyOrChainID); err != nil {
		return NetworkDescriptor{}, err
	} else if ok {
		return n, nil
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(keyOrChainID)), "0x") {
		if n, ok, err := m.FindByChainID(ctx, keyOrChainID); err != nil {
			return NetworkDescriptor{}, err
		} else if ok {
			return n, nil
		}
	}
	return NetworkDescriptor{}, fmt.Errorf("unknown network %q", keyOrChainID)
}

// List returns the registry sorted by key.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(m.store.Networks))
	for k, n := range m.store.Networks {
		out = append(out, Entry{Key: k, NetworkDescriptor: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Entry is a registry row.
type Entry struct {
	Key string `json:"key"`
	NetworkDescriptor
}

// EnsureFromConfig merges configured networks into networks.json:
// missing networks are added, blank fields of existing ones are filled, and
// user edits are never overwritten.
func (m *Manager) EnsureFromConfig(ctx context.Context, defaults map[string]NetworkDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}

	changed := !securefile.Exists(m.path)

	byChain := map[string]string{}
	for k, n := range m.store.Networks {
		byChain[NormalizeChainIDHex(n.ChainID)] = k
	}

	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		dn, err := normalizeDescriptor(defaults[rawKey])
		if err != nil {
			continue
		}
		key := NormalizeKey(rawKey)

		existingKey, ok := key, false
		if _, ok = m.store.Networks[key]; !ok {
			existingKey, ok = byChain[dn.ChainID]
		}

		if !ok {
			m.store.Networks[key] = dn
			byChain[dn.ChainID] = key
			changed = true
			continue
		}

		updated, filled := fillBlanks(m.store.Networks[existingKey], dn)
		if filled {
			m.store.Networks[existingKey] = updated
			changed = true
		}
	}

	if changed {
		return m.persist()
	}
	return nil
}

// Override forces the non-empty RPC and explorer URLs of each entry onto the
// registered network with the same key, or else the same chain id. Unlike
// EnsureFromConfig it replaces stored values. Unknown networks are added.
func (m *Manager) Override(ctx context.Context, overrides map[string]NetworkDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}

	changed := false
	for rawKey, o := range overrides {
		key := NormalizeKey(rawKey)
		existingKey, ok := key, false
		if _, ok = m.store.Networks[key]; !ok {
			existingKey, ok = m.findKeyByChainID(o.ChainID)
		}

		if !ok {
			n, err := normalizeDescriptor(o)
			if err != nil {
				return fmt.Errorf("override %q: %w", rawKey, err)
			}
			m.store.Networks[key] = n
			changed = true
			continue
		}

		cur := m.store.Networks[existingKey]
		if u := strings.TrimSpace(o.RPCURL); u != "" && u != cur.RPCURL {
			cur.RPCURL = u
			changed = true
		}
		if len(o.BlockExplorerURLs) > 0 && !slices.Equal(o.BlockExplorerURLs, cur.BlockExplorerURLs) {
			cur.BlockExplorerURLs = slices.Clone(o.BlockExplorerURLs)
			changed = true
		}
		m.store.Networks[existingKey] = cur
	}

	if changed {
		return m.persist()
	}
	return nil
}

func fillBlanks(cur, def NetworkDescriptor) (NetworkDescriptor, bool) {
	changed := false
	if cur.RPCURL == "" && def.RPCURL != "" {
		cur.RPCURL = def.RPCURL
		changed = true
	}
	if len(cur.BlockExplorerURLs) == 0 && len(def.BlockExplorerURLs) > 0 {
		cur.BlockExplorerURLs = def.BlockExplorerURLs
		changed = true
	}
	if cur.NativeCurrency.Symbol == "" && def.NativeCurrency.Symbol != "" {
		cur.NativeCurrency = def.NativeCurrency
		changed = true
	}
	return cur, changed
}

func (m *Manager) load(_ context.Context) error {
	s, err := securefile.ReadJSON[Store](m.path)
	if err != nil {
		return fmt.Errorf("read networks file: %w", err)
	}

	norm := NewEmptyStore()
	if s.Schema != 0 {
		norm.Schema = s.Schema
	}
	for key, n := range s.Networks {
		normalized, err := normalizeDescriptor(n)
		if err != nil {
			// skip invalid entries rather than bricking startup
			continue
		}
		norm.Networks[NormalizeKey(key)] = normalized
	}

	m.store = norm
	m.loaded = true
	return nil
}

func (m *Manager) ensureLoaded(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	if securefile.Exists(m.path) {
		return m.load(ctx)
	}
	m.store = NewEmptyStore()
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	if m.path == "" {
		return nil
	}
	return securefile.WriteJSON(m.path, m.store, constants.FilePerm, constants.DirectoryPerm)
}

func (m *Manager) findKeyByChainID(chainIdHex string) (string, bool) {
	want := NormalizeChainIDHex(chainIdHex)
	if want == "" {
		return "", false
	}
	for k, n := range m.store.Networks {
		if NormalizeChainIDHex(n.ChainID) == want {
			return k, true
		}
	}
	return "", false
}
