package mbackup

import (
	"context"
	"fmt"
	"path/filepath"
)

// BackupContents describes what a backup directory holds, as needed to
// confirm and drive a restore.
type BackupContents struct {
	Directory       string
	DumpFile        string
	UsersFile       string // empty when the backup has no users export
	ReplicationInfo *ReplicationInfo
}

// RestoreRequest asks for a backup to be restored. When Replica is non-nil
// the server is configured as a replica of Replica after the restore.
type RestoreRequest struct {
	Path    string
	Replica *ReplicaSource
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	Contents          *BackupContents
	UsersRestored     bool
	ReplicaConfigured bool
	ReplicaStatus     string
	Warnings          []string
}

// Inspect locates the restorable files of the backup at dir. Compressed
// files are preferred over plain ones.
func (s *Service) Inspect(dir string) (*BackupContents, error) {
	ok, err := s.catalog.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("checking backup path: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, dir)
	}

	contents := &BackupContents{Directory: dir}

	contents.DumpFile, err = s.pickFile(dir, DumpFileName)
	if err != nil {
		return nil, err
	}
	if contents.DumpFile == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoDumpFile, dir)
	}

	contents.UsersFile, err = s.pickFile(dir, UsersFileName)
	if err != nil {
		return nil, err
	}

	infoPath := filepath.Join(dir, ReplicationInfoFileName)
	if ok, err := s.catalog.Exists(infoPath); err != nil {
		return nil, fmt.Errorf("checking replication info: %w", err)
	} else if ok {
		r, err := s.catalog.Open(infoPath)
		if err != nil {
			return nil, fmt.Errorf("opening replication info: %w", err)
		}
		defer r.Close()
		info, err := readReplicationInfo(r)
		if err != nil {
			return nil, fmt.Errorf("parsing replication info: %w", err)
		}
		contents.ReplicationInfo = info
	}

	return contents, nil
}

// pickFile returns the compressed or plain variant of name in dir, or ""
// when neither exists.
func (s *Service) pickFile(dir, name string) (string, error) {
	for _, candidate := range []string{name + compressedSuffix, name} {
		p := filepath.Join(dir, candidate)
		ok, err := s.catalog.Exists(p)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if ok {
			return p, nil
		}
	}
	return "", nil
}

// Restore replaces the databases on the server with the backup at req.Path,
// then restores users and grants when present, then optionally configures
// replication from the binlog coordinates recorded in the backup.
func (s *Service) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	contents, err := s.Inspect(req.Path)
	if err != nil {
		return nil, err
	}
	if req.Replica != nil {
		if req.Replica.Host == "" {
			return nil, ErrReplicaSourceHost
		}
		// Credentials only matter when there are coordinates to replicate from.
		info := contents.ReplicationInfo
		hasCoordinates := info != nil && info.MasterStatus != nil
		if hasCoordinates && (req.Replica.User == "" || req.Replica.Password == "") {
			return nil, ErrReplicaSourceAuth
		}
	}

	result := &RestoreResult{Contents: contents}

	if err := s.server.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	s.logger.Info("restoring databases", "file", contents.DumpFile, "target", s.server.Target())
	if err := s.apply(ctx, contents.DumpFile); err != nil {
		return nil, fmt.Errorf("database restore failed: %w", err)
	}

	if contents.UsersFile == "" {
		s.logger.Warn("users backup file not found, skipping")
		result.Warnings = append(result.Warnings, "users backup file not found")
	} else if err := s.apply(ctx, contents.UsersFile); err != nil {
		s.logger.Warn("users restore had errors", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("users restore had errors: %v", err))
	} else {
		result.UsersRestored = true
	}

	if req.Replica == nil {
		s.logger.Info("restore complete", "replica", false)
		return result, nil
	}

	info := contents.ReplicationInfo
	if info == nil || info.MasterStatus == nil {
		s.logger.Warn("backup has no master status, skipping replication configuration")
		result.Warnings = append(result.Warnings, "backup has no master status; replication not configured")
		return result, nil
	}
	status, err := s.server.ConfigureReplica(ctx, *req.Replica, *info.MasterStatus)
	if err != nil {
		return nil, fmt.Errorf("configuring replication: %w", err)
	}
	result.ReplicaConfigured = true
	result.ReplicaStatus = status

	s.logger.Info("restore complete", "replica", true, "master", req.Replica.Host,
		"binlog_file", info.MasterStatus.BinlogFile, "binlog_position", info.MasterStatus.BinlogPosition)
	return result, nil
}

func (s *Service) apply(ctx context.Context, path string) (err error) {
	r, err := s.catalog.OpenDump(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return s.server.Apply(ctx, r)
}
