package auth

import "sync"

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverURL, token string) error
	LoadToken(serverURL string) (string, error)
	DeleteToken(serverURL string) error
}

// keyringStore implements TokenStore using the OS keyring
type keyringStore struct{}

// Default is the OS keyring store
var Default TokenStore = keyringStore{}

func (keyringStore) SaveToken(serverURL, token string) error {
	return SaveToken(serverURL, token)
}

func (keyringStore) LoadToken(serverURL string) (string, error) {
	return LoadToken(serverURL)
}

func (keyringStore) DeleteToken(serverURL string) error {
	return DeleteToken(serverURL)
}

// MemoryStore keeps tokens in memory
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (m *MemoryStore) SaveToken(serverURL, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[keyringKey(serverURL)] = token
	return nil
}

func (m *MemoryStore) LoadToken(serverURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[keyringKey(serverURL)]
	if !ok {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

func (m *MemoryStore) DeleteToken(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, keyringKey(serverURL))
	return nil
}
