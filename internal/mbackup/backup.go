package mbackup

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
)

// BackupResult describes a completed backup run.
type BackupResult struct {
	Identity  Identity
	Directory string
	Replaced  bool
	Files     []FileInfo
	Size      int64
	Master    *MasterStatus
	// Rotation is nil for kinds that are never rotated or when the
	// rotation listing failed (see Warnings).
	Rotation *RotationReport
	Warnings []string
}

// Backup takes a backup of the given kind. baseDir overrides the configured
// base directory when non-empty.
//
// The bucket directory is replaced wholesale, populated, and only then
// marked complete by writing its manifest. Every file is renamed into
// place once written, so a killed run never leaves a truncated manifest. Failures to export users, to
// compress, to copy offsite, to rotate or to notify are warnings; the
// backup itself still succeeds.
func (s *Service) Backup(ctx context.Context, kind Kind, baseDir string) (*BackupResult, error) {
	if baseDir == "" {
		dir, err := s.layout.BaseDir(kind)
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}

	now := s.clock.Now()
	id := NameFor(kind, now)
	dir := filepath.Join(baseDir, id.DirectoryName)
	result := &BackupResult{Identity: id, Directory: dir}

	s.logger.Info("starting backup", "kind", kind.String(), "directory", dir)

	fail := func(reason string, err error) (*BackupResult, error) {
		s.logger.Error("backup failed", "kind", kind.String(), "reason", reason, "error", err)
		s.notify(ctx, Event{Kind: kind, Directory: dir, Message: reason, SizeBytes: -1})
		return nil, fmt.Errorf("%s: %w", reason, err)
	}
	warn := func(msg string, err error) {
		s.logger.Warn(msg, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	if err := s.catalog.EnsureDir(baseDir); err != nil {
		return fail("creating base directory", err)
	}
	replaced, err := s.catalog.Replace(dir)
	if err != nil {
		return fail("preparing backup directory", err)
	}
	result.Replaced = replaced
	if replaced {
		s.logger.Info("replaced existing backup", "directory", dir)
	}

	if err := s.server.Ping(ctx); err != nil {
		return fail("database connection failed", fmt.Errorf("%w: %v", ErrConnection, err))
	}

	master, err := s.server.MasterStatus(ctx)
	if err != nil {
		warn("reading master status", err)
		master = nil
	}
	result.Master = master

	dumpPath := filepath.Join(dir, DumpFileName)
	if err := s.writeFile(dumpPath, func(w io.Writer) error { return s.server.DumpAll(ctx, w) }); err != nil {
		return fail("database dump failed", err)
	}
	s.logger.Info("database dump complete", "file", dumpPath)

	usersPath := filepath.Join(dir, UsersFileName)
	usersWritten := true
	if err := s.writeFile(usersPath, func(w io.Writer) error { return s.server.DumpUsers(ctx, w) }); err != nil {
		warn("users and grants export failed", err)
		usersWritten = false
	}

	info := ReplicationInfo{
		BackupTime:   now.Format("2006-01-02T15:04:05"),
		BackupType:   kind.String(),
		MasterStatus: master,
	}
	if ident, err := s.server.Identity(ctx); err != nil {
		warn("reading server identity", err)
	} else {
		info.ServerID = ident.ServerID
		info.ServerUUID = ident.ServerUUID
	}
	infoPath := filepath.Join(dir, ReplicationInfoFileName)
	if err := s.writeFile(infoPath, func(w io.Writer) error { return writeReplicationInfo(w, info) }); err != nil {
		return fail("writing replication info", err)
	}

	if s.layout.Compress {
		toCompress := []string{dumpPath}
		if usersWritten {
			toCompress = append(toCompress, usersPath)
		}
		for _, p := range toCompress {
			if _, err := s.catalog.Compress(p); err != nil {
				warn("compression failed", err)
			}
		}
	}

	files, err := s.catalog.Files(dir)
	if err != nil {
		return fail("listing backup files", err)
	}
	m := manifest{Kind: kind, Time: now, Identity: id, Directory: dir, Files: files, Master: master}
	if err := s.writeFile(filepath.Join(dir, ManifestName), func(w io.Writer) error {
		_, err := m.WriteTo(w)
		return err
	}); err != nil {
		return fail("writing manifest", err)
	}

	if result.Files, err = s.catalog.Files(dir); err != nil {
		return fail("listing backup files", err)
	}
	for _, f := range result.Files {
		result.Size += f.Size
	}

	for _, v := range s.vaults {
		if err := s.copyOffsite(ctx, v, id, result.Files); err != nil {
			warn(fmt.Sprintf("offsite copy to %s failed", v.Name()), err)
		}
	}

	if kind.Rotated() {
		report, err := s.Rotate(ctx, kind, baseDir)
		if err != nil {
			warn("rotation failed", err)
		}
		result.Rotation = report
	}

	s.logger.Info("backup complete", "kind", kind.String(), "directory", dir, "size", result.Size)
	s.notify(ctx, Event{Success: true, Kind: kind, Directory: dir, Message: "Backup completed", SizeBytes: result.Size})
	return result, nil
}

// writeFile fills a temporary sibling of path and renames it into place, so
// path only ever holds complete content. On failure nothing is left behind.
func (s *Service) writeFile(path string, fill func(w io.Writer) error) (err error) {
	tmp := path + ".tmp"
	f, err := s.catalog.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if err != nil {
			if rerr := s.catalog.Remove(tmp); rerr != nil {
				s.logger.Warn("removing partial file", "file", tmp, "error", rerr)
			}
		}
	}()

	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := s.catalog.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// copyOffsite uploads every file of a completed backup to v.
func (s *Service) copyOffsite(ctx context.Context, v Vault, id Identity, files []FileInfo) error {
	for _, f := range files {
		key := path.Join(id.Kind.String(), id.DirectoryName, f.Name)
		if err := s.putFile(ctx, v, key, f); err != nil {
			return fmt.Errorf("uploading %s: %w", key, err)
		}
	}
	s.logger.Info("offsite copy complete", "vault", v.Name(), "backup", id.DirectoryName)
	return nil
}

func (s *Service) putFile(ctx context.Context, v Vault, key string, f FileInfo) error {
	r, err := s.catalog.Open(f.Path)
	if err != nil {
		return err
	}
	defer r.Close()
	return v.PutObject(ctx, key, r, f.Size)
}

func (s *Service) notify(ctx context.Context, e Event) {
	e.Time = s.clock.Now()
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}
}
