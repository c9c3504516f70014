package vault

import (
	"context"
	"fmt"

	"mbackup-go/internal/config"
	"mbackup-go/internal/mbackup"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (mbackup.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		if cfg.S3BucketURL == "" {
			return nil, fmt.Errorf("s3 vault requires s3_bucket_url to be set")
		}
		return NewS3Vault(ctx, cfg.Name, S3Options{
			BucketURL: cfg.S3BucketURL,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}

// NewVaultsFromConfig builds every configured vault.
func NewVaultsFromConfig(ctx context.Context, cfgs []config.VaultConfig) ([]mbackup.Vault, error) {
	vaults := make([]mbackup.Vault, 0, len(cfgs))
	for _, c := range cfgs {
		v, err := NewVaultFromConfig(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("vault %q: %w", c.Name, err)
		}
		vaults = append(vaults, v)
	}
	return vaults, nil
}
