package mbackup_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/testutil"
)

func fileNames(files []mbackup.FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestBackup_EndToEnd(t *testing.T) {
	vault := testutil.NewTestVault()
	f := newFixture(t, withVaults(vault))

	result, err := f.svc.Backup(context.Background(), mbackup.Daily, "")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	wantDir := filepath.Join(f.baseDir(mbackup.Daily), "backup_daily_20240115")
	if result.Directory != wantDir {
		t.Errorf("Directory = %q, want %q", result.Directory, wantDir)
	}
	if result.Replaced {
		t.Error("Replaced = true for a fresh bucket")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}

	wantFiles := []string{"MANIFEST.txt", "all_databases.sql.gz", "replication_info.json", "users_and_grants.sql.gz"}
	if got := strings.Join(fileNames(result.Files), ","); got != strings.Join(wantFiles, ",") {
		t.Errorf("Files = %s, want %s", got, strings.Join(wantFiles, ","))
	}

	var total int64
	for _, fi := range result.Files {
		total += fi.Size
	}
	if result.Size != total || total == 0 {
		t.Errorf("Size = %d, want %d", result.Size, total)
	}

	manifest, err := os.ReadFile(filepath.Join(wantDir, mbackup.ManifestName))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	for _, want := range []string{
		"MariaDB Backup Manifest",
		"Backup Type: daily",
		"Backup Name: daily_20240115",
		"all_databases.sql.gz",
		"Binlog File: mysql-bin.000003",
		"Binlog Position: 1234",
	} {
		if !bytes.Contains(manifest, []byte(want)) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}

	raw, err := os.ReadFile(filepath.Join(wantDir, mbackup.ReplicationInfoFileName))
	if err != nil {
		t.Fatalf("reading replication info: %v", err)
	}
	var info mbackup.ReplicationInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		t.Fatalf("parsing replication info: %v", err)
	}
	if info.BackupType != "daily" || info.ServerID != "1" || info.MasterStatus == nil || info.MasterStatus.BinlogPosition != "1234" {
		t.Errorf("replication info = %+v", info)
	}

	keys := vault.Keys()
	if len(keys) != len(wantFiles) {
		t.Errorf("vault keys = %v, want %d objects", keys, len(wantFiles))
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, "daily/backup_daily_20240115/") {
			t.Errorf("vault key %q not under the backup prefix", k)
		}
	}

	events := f.notifier.Events()
	if len(events) != 1 || !events[0].Success || events[0].SizeBytes != result.Size {
		t.Errorf("events = %+v, want one success event with the backup size", events)
	}
	if result.Rotation == nil || result.Rotation.Found != 1 {
		t.Errorf("Rotation = %+v, want a pass that found the new backup", result.Rotation)
	}
}

func TestBackup_DumpRoundTripsThroughCompression(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Backup(context.Background(), mbackup.Hourly, "")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	r, err := f.catalog.OpenDump(filepath.Join(result.Directory, mbackup.DumpFileName+".gz"))
	if err != nil {
		t.Fatalf("OpenDump() error = %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if string(data) != f.server.Dump {
		t.Errorf("dump = %q, want %q", data, f.server.Dump)
	}
}

func TestBackup_SameBucketReplacesWholesale(t *testing.T) {
	f := newFixture(t, withoutCompression())

	first, err := f.svc.Backup(context.Background(), mbackup.Hourly, "")
	if err != nil {
		t.Fatalf("first Backup() error = %v", err)
	}
	stray := filepath.Join(first.Directory, "stray.txt")
	if err := os.WriteFile(stray, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(20 * time.Minute) // still within the same hour
	second, err := f.svc.Backup(context.Background(), mbackup.Hourly, "")
	if err != nil {
		t.Fatalf("second Backup() error = %v", err)
	}

	if second.Directory != first.Directory {
		t.Fatalf("second backup went to %s, want %s", second.Directory, first.Directory)
	}
	if !second.Replaced {
		t.Error("Replaced = false for an existing bucket")
	}
	if exists(stray) {
		t.Error("files from the replaced backup survived")
	}

	entries, err := os.ReadDir(f.baseDir(mbackup.Hourly))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("base dir has %d entries, want only the backup", len(entries))
	}
}

func TestBackup_PathOverride(t *testing.T) {
	f := newFixture(t)
	override := filepath.Join(t.TempDir(), "adhoc")

	result, err := f.svc.Backup(context.Background(), mbackup.Manual, override)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if filepath.Dir(result.Directory) != override {
		t.Errorf("Directory = %s, want under %s", result.Directory, override)
	}
	if result.Rotation != nil {
		t.Error("manual backup triggered rotation")
	}
}

func TestBackup_RotatesAfterSuccess(t *testing.T) {
	f := newFixture(t)
	paths := seedDaily(t, f, 5)

	result, err := f.svc.Backup(context.Background(), mbackup.Daily, "")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if result.Rotation == nil {
		t.Fatal("Rotation = nil")
	}
	if result.Rotation.Found != 6 || len(result.Rotation.Deleted) != 3 {
		t.Errorf("rotation found %d, deleted %d; want 6, 3", result.Rotation.Found, len(result.Rotation.Deleted))
	}
	if !exists(result.Directory) {
		t.Error("new backup was rotated away")
	}
	for _, p := range paths[2:] {
		if exists(p) {
			t.Errorf("%s survived rotation", filepath.Base(p))
		}
	}
}

func TestBackup_Failures(t *testing.T) {
	t.Run("connection failure", func(t *testing.T) {
		f := newFixture(t)
		f.server.PingErr = errors.New("connection refused")

		_, err := f.svc.Backup(context.Background(), mbackup.Daily, "")
		if !errors.Is(err, mbackup.ErrConnection) {
			t.Fatalf("Backup() error = %v, want ErrConnection", err)
		}

		events := f.notifier.Events()
		if len(events) != 1 || events[0].Success || events[0].SizeBytes != -1 {
			t.Errorf("events = %+v, want one failure event", events)
		}
	})

	t.Run("dump failure leaves no completed backup", func(t *testing.T) {
		f := newFixture(t)
		f.server.DumpErr = errors.New("mysqldump: got error 2013")

		if _, err := f.svc.Backup(context.Background(), mbackup.Daily, ""); err == nil {
			t.Fatal("Backup() expected error")
		}

		listing, err := f.svc.List([]mbackup.Kind{mbackup.Daily})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(listing.Backups) != 0 {
			t.Errorf("List() = %v, want no completed backups", listing.Backups)
		}
	})

	t.Run("manifest not renamed into place", func(t *testing.T) {
		f := newFixture(t)
		dir := filepath.Join(f.baseDir(mbackup.Daily), mbackup.NameFor(mbackup.Daily, f.clock.Now()).DirectoryName)
		manifestPath := filepath.Join(dir, mbackup.ManifestName)
		f.catalog.RenameErrs[manifestPath] = errors.New("no space left on device")

		if _, err := f.svc.Backup(context.Background(), mbackup.Daily, ""); err == nil {
			t.Fatal("Backup() expected error")
		}
		if exists(manifestPath) || exists(manifestPath+".tmp") {
			t.Error("a manifest was left behind by a failed write")
		}
		listing, err := f.svc.List([]mbackup.Kind{mbackup.Daily})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(listing.Backups) != 0 {
			t.Errorf("List() = %+v, want the unfinished backup hidden", listing.Backups)
		}
	})

	t.Run("no base directory configured", func(t *testing.T) {
		f := newFixture(t)
		svc := mbackup.NewService(f.server, f.catalog, nil, nil, nil, mbackup.NewNopLogger(), f.clock, mbackup.Layout{})

		if _, err := svc.Backup(context.Background(), mbackup.Daily, ""); !errors.Is(err, mbackup.ErrNoBaseDir) {
			t.Errorf("Backup() error = %v, want ErrNoBaseDir", err)
		}
	})
}

func TestBackup_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		opts   []fixtureOption
		check  func(t *testing.T, r *mbackup.BackupResult)
		wantWs int
	}{
		{
			name:   "users export failure",
			setup:  func(f *fixture) { f.server.UsersErr = errors.New("access denied") },
			wantWs: 1,
			check: func(t *testing.T, r *mbackup.BackupResult) {
				for _, fi := range r.Files {
					if strings.HasPrefix(fi.Name, mbackup.UsersFileName) || strings.HasSuffix(fi.Name, ".tmp") {
						t.Errorf("Files contains %s after a failed export", fi.Name)
					}
				}
			},
		},
		{
			name:   "master status unavailable",
			setup:  func(f *fixture) { f.server.Master = nil },
			wantWs: 0,
			check: func(t *testing.T, r *mbackup.BackupResult) {
				if r.Master != nil {
					t.Errorf("Master = %+v, want nil", r.Master)
				}
			},
		},
		{
			name:   "compression failure keeps plain files",
			setup:  func(f *fixture) { f.catalog.CompressErr = errors.New("disk full") },
			wantWs: 2,
			check: func(t *testing.T, r *mbackup.BackupResult) {
				names := strings.Join(fileNames(r.Files), ",")
				if !strings.Contains(names, mbackup.DumpFileName) || strings.Contains(names, ".gz") {
					t.Errorf("Files = %s, want plain dump", names)
				}
			},
		},
		{
			name:   "offsite copy failure",
			opts:   []fixtureOption{withVaults(&testutil.FailingVault{Err: errors.New("bucket not found")})},
			wantWs: 1,
		},
		{
			name:   "rotation listing failure",
			setup:  func(f *fixture) { f.catalog.ScanErr = errors.New("input/output error") },
			wantWs: 1,
			check: func(t *testing.T, r *mbackup.BackupResult) {
				if r.Rotation != nil {
					t.Errorf("Rotation = %+v, want nil", r.Rotation)
				}
			},
		},
		{
			name:   "notification failure",
			setup:  func(f *fixture) { f.notifier.Err = errors.New("webhook down") },
			wantWs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			if tt.setup != nil {
				tt.setup(f)
			}

			result, err := f.svc.Backup(context.Background(), mbackup.Daily, "")
			if err != nil {
				t.Fatalf("Backup() error = %v, want success with warnings", err)
			}
			if len(result.Warnings) != tt.wantWs {
				t.Errorf("Warnings = %v, want %d", result.Warnings, tt.wantWs)
			}
			if !exists(filepath.Join(result.Directory, mbackup.ManifestName)) {
				t.Error("manifest not written")
			}
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}
