package networks

import (
	"errors"
	"sync"
)

var ErrSameNetwork = errors.New("source and destination networks must differ")

// Lookup returns the first candidate describing chainIdHex. A miss is the
// unsupported-network condition, not an error.
func Lookup(chainIdHex string, candidates ...NetworkDescriptor) (NetworkDescriptor, bool) {
	for _, n := range candidates {
		if n.Is(chainIdHex) {
			return n, true
		}
	}
	return NetworkDescriptor{}, false
}

// Selection holds the source/destination pair chosen for bridging.
type Selection struct {
	mu          sync.RWMutex
	source      NetworkDescriptor
	destination NetworkDescriptor
}

func NewSelection(source, destination NetworkDescriptor) (*Selection, error) {
	if source.Is(destination.ChainID) {
		return nil, ErrSameNetwork
	}
	return &Selection{source: source, destination: destination}, nil
}

func (s *Selection) Source() NetworkDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *Selection) Destination() NetworkDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destination
}

// Pair returns source and destination in that order.
func (s *Selection) Pair() (NetworkDescriptor, NetworkDescriptor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source, s.destination
}

func (s *Selection) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source, s.destination = s.destination, s.source
}

func (s *Selection) Set(source, destination NetworkDescriptor) error {
	if source.Is(destination.ChainID) {
		return ErrSameNetwork
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source, s.destination = source, destination
	return nil
}
