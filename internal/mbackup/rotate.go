package mbackup

import (
	"context"
	"fmt"
	"path"
)

// DeletionFailure records a backup that rotation could not delete.
type DeletionFailure struct {
	Record Record
	Err    error
}

// VaultFailure records an offsite copy that rotation could not prune.
type VaultFailure struct {
	Vault  string
	Record Record
	Err    error
}

// RotationReport summarises one rotation pass.
type RotationReport struct {
	Kind      Kind
	BaseDir   string
	KeepCount int
	Disabled  bool
	Found     int
	Retained  int
	Deleted   []Record
	Failures  []DeletionFailure
	// VaultFailures are offsite copies of deleted backups still present.
	// They do not count as failed deletions.
	VaultFailures []VaultFailure
}

// Rotate prunes the completed backups of kind in baseDir down to the
// configured keep count. A listing failure aborts the pass; each deletion
// is attempted independently and failures are collected in the report.
// Offsite copies of deleted backups are pruned from every vault.
func (s *Service) Rotate(ctx context.Context, kind Kind, baseDir string) (*RotationReport, error) {
	keep := s.layout.KeepCount(kind)
	report := &RotationReport{Kind: kind, BaseDir: baseDir, KeepCount: keep}

	if keep <= 0 {
		report.Disabled = true
		s.logger.Info("rotation disabled", "kind", kind.String(), "keep", keep)
		return report, nil
	}

	entries, err := s.catalog.Scan(baseDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s backups in %s: %w", kind, baseDir, err)
	}
	records, _ := Discover(entries, kind)
	decision := Decide(records, keep)

	report.Found = len(records)
	report.Retained = len(decision.Retain)

	for _, r := range decision.Delete {
		if err := s.catalog.Remove(r.Path); err != nil {
			s.logger.Warn("failed to delete old backup", "name", r.Name, "error", err)
			report.Failures = append(report.Failures, DeletionFailure{Record: r, Err: err})
			continue
		}
		s.logger.Info("deleted old backup", "name", r.Name)
		report.Deleted = append(report.Deleted, r)

		prefix := path.Join(kind.String(), r.Name)
		for _, v := range s.vaults {
			if err := v.DeletePrefix(ctx, prefix); err != nil {
				s.logger.Warn("failed to prune offsite copy", "vault", v.Name(), "name", r.Name, "error", err)
				report.VaultFailures = append(report.VaultFailures, VaultFailure{Vault: v.Name(), Record: r, Err: err})
			}
		}
	}

	// Failed deletions are still on disk.
	report.Retained += len(report.Failures)

	s.logger.Info("rotation complete",
		"kind", kind.String(),
		"found", report.Found,
		"keep", keep,
		"deleted", len(report.Deleted),
		"failed", len(report.Failures),
		"offsite_failed", len(report.VaultFailures),
	)
	return report, nil
}
