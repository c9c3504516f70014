package mbackup

import (
	"context"
	"io"
)

// Vault is an offsite destination receiving copies of completed backups.
// Objects are addressed by slash-separated keys: <kind>/<directory>/<file>.
type Vault interface {
	// Name identifies the vault in logs.
	Name() string

	// PutObject stores size bytes read from r under key, replacing any
	// previous object with the same key.
	PutObject(ctx context.Context, key string, r io.Reader, size int64) error

	// DeletePrefix removes every object below prefix, a directory key such
	// as daily/backup_daily_20240115. Removing nothing is not an error.
	DeletePrefix(ctx context.Context, prefix string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
