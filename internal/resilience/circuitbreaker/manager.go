package circuitbreaker

import (
	"fmt"
	"sort"
	"sync"
)

// Manager keeps the circuit breakers of the process by name.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{breakers: make(map[string]*CircuitBreaker)}
}

// Register adds cb. Names must be unique.
func (m *Manager) Register(cb *CircuitBreaker) error {
	if cb == nil {
		return fmt.Errorf("register circuit breaker: nil breaker")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.breakers[cb.Name()]; exists {
		return fmt.Errorf("register circuit breaker: %q already registered", cb.Name())
	}
	m.breakers[cb.Name()] = cb
	return nil
}

// Get returns the breaker registered under name.
func (m *Manager) Get(name string) (*CircuitBreaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cb, ok := m.breakers[name]
	return cb, ok
}

// All returns every registered breaker sorted by name.
func (m *Manager) All() []*CircuitBreaker {
	m.mu.RLock()
	all := make([]*CircuitBreaker, 0, len(m.breakers))
	for _, cb := range m.breakers {
		all = append(all, cb)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Names returns the registered breaker names in sorted order.
func (m *Manager) Names() []string {
	all := m.All()
	names := make([]string, len(all))
	for i, cb := range all {
		names[i] = cb.Name()
	}
	return names
}

// Execute runs fn through the breaker registered under name.
func (m *Manager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	cb, ok := m.Get(name)
	if !ok {
		return nil, fmt.Errorf("circuit breaker %q not registered", name)
	}
	return cb.Execute(fn)
}

// Reset closes the breaker registered under name.
func (m *Manager) Reset(name string) error {
	cb, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("circuit breaker %q not registered", name)
	}
	cb.Reset()
	return nil
}
