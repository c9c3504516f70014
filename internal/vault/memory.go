package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"mbackup-go/internal/mbackup"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and is safe for concurrent use.
type MemoryVault struct {
	name    string
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		objects: make(map[string][]byte),
	}
}

func (m *MemoryVault) Name() string {
	return m.name
}

// PutObject stores the object under key, replacing any previous version.
func (m *MemoryVault) PutObject(_ context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = data
	return nil
}

// GetObject writes the object stored under key to w.
func (m *MemoryVault) GetObject(key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("object not found: %s", key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	return nil
}

// DeletePrefix removes every object below the directory key prefix.
func (m *MemoryVault) DeletePrefix(_ context.Context, prefix string) error {
	dir := strings.TrimSuffix(prefix, "/") + "/"

	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.objects {
		if strings.HasPrefix(k, dir) {
			delete(m.objects, k)
		}
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements mbackup.Vault interface
var _ mbackup.Vault = (*MemoryVault)(nil)
