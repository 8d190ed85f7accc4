// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/JacLaoky/SogniPet-miniapp/internal/sogni"
)

// MockChain is a test implementation of the contract read surface. The
// zero value from NewMockChain is an empty collection with no premium
// users.
type MockChain struct {
	mu      sync.RWMutex
	premium map[string]bool
	owners  []string // index == tokenID
	uris    map[uint64]string
	readErr error
	uriErrs map[uint64]error
}

// NewMockChain creates an empty mock chain state.
func NewMockChain() *MockChain {
	return &MockChain{
		premium: make(map[string]bool),
		uris:    make(map[uint64]string),
		uriErrs: make(map[uint64]error),
	}
}

// SetPremium marks an address as premium.
func (m *MockChain) SetPremium(addr string, premium bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.premium[addr] = premium
}

// AddToken appends a token owned by addr with the given metadata URI and
// returns its id.
func (m *MockChain) AddToken(owner, uri string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uint64(len(m.owners))
	m.owners = append(m.owners, owner)
	m.uris[id] = uri
	return id
}

// FailReads makes every read return err, simulating an unreachable node.
func (m *MockChain) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailTokenURI makes TokenURI fail for one token only.
func (m *MockChain) FailTokenURI(tokenID uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uriErrs[tokenID] = err
}

// IsPremiumUser reports the premium flag for addr.
func (m *MockChain) IsPremiumUser(_ context.Context, addr string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return false, m.readErr
	}
	return m.premium[addr], nil
}

// TotalSupply returns the minted token count.
func (m *MockChain) TotalSupply(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	return uint64(len(m.owners)), nil
}

// OwnerOf returns a token's owner.
func (m *MockChain) OwnerOf(_ context.Context, tokenID uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	if tokenID >= uint64(len(m.owners)) {
		return "", fmt.Errorf("token %d does not exist", tokenID)
	}
	return m.owners[tokenID], nil
}

// TokenURI returns a token's metadata URI.
func (m *MockChain) TokenURI(_ context.Context, tokenID uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	if err := m.uriErrs[tokenID]; err != nil {
		return "", err
	}
	uri, ok := m.uris[tokenID]
	if !ok {
		return "", fmt.Errorf("token %d does not exist", tokenID)
	}
	return uri, nil
}

// MockGeneration is a test implementation of the generation client surface.
type MockGeneration struct {
	mu        sync.Mutex
	ModelList []sogni.Model
	ImageURL  string
	Submitted []sogni.ProjectParams
	CreateErr error
	WaitErr   error
	NoResult  bool
}

// Models returns the configured catalog.
func (m *MockGeneration) Models() []sogni.Model {
	return m.ModelList
}

// CreateProject records the submission and returns a fixed project id.
func (m *MockGeneration) CreateProject(_ context.Context, params sogni.ProjectParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.Submitted = append(m.Submitted, params)
	return "proj-1", nil
}

// WaitForCompletion returns the configured image URL.
func (m *MockGeneration) WaitForCompletion(_ context.Context, _ string) ([]string, error) {
	if m.WaitErr != nil {
		return nil, m.WaitErr
	}
	if m.NoResult {
		return nil, nil
	}
	return []string{m.ImageURL}, nil
}

// LastSubmitted returns the most recent project params, if any.
func (m *MockGeneration) LastSubmitted() (sogni.ProjectParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Submitted) == 0 {
		return sogni.ProjectParams{}, false
	}
	return m.Submitted[len(m.Submitted)-1], true
}
