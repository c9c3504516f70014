package testutil

import (
	"context"
	"io"

	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

// FailingVault rejects every upload with Err.
type FailingVault struct {
	Err error
}

func (v *FailingVault) Name() string { return "failing-vault" }

func (v *FailingVault) PutObject(context.Context, string, io.Reader, int64) error { return v.Err }

func (v *FailingVault) DeletePrefix(context.Context, string) error { return v.Err }

func (v *FailingVault) ValidateSetup(context.Context) error { return v.Err }

// Compile-time check that FailingVault implements mbackup.Vault interface
var _ mbackup.Vault = (*FailingVault)(nil)
