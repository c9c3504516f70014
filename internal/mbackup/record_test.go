package mbackup_test

import (
	"testing"

	"mbackup-go/internal/mbackup"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		wantClass mbackup.ClassKind
		wantKind  mbackup.Kind
	}{
		{name: "backup_hourly_20240115_10", wantClass: mbackup.Recognized, wantKind: mbackup.Hourly},
		{name: "backup_daily_20240115", wantClass: mbackup.Recognized, wantKind: mbackup.Daily},
		{name: "backup_monthly_202401", wantClass: mbackup.Recognized, wantKind: mbackup.Monthly},
		{name: "backup_manual_20240115_103045", wantClass: mbackup.Recognized, wantKind: mbackup.Manual},
		{name: "backup_20240115_103045", wantClass: mbackup.Legacy},
		{name: "backup_weekly_2024w03", wantClass: mbackup.Legacy},
		{name: "backup_", wantClass: mbackup.Legacy},
		{name: "lost+found", wantClass: mbackup.Foreign},
		{name: ".replaced-backup_daily_20240115-1234", wantClass: mbackup.Foreign},
		{name: "daily_backup_20240115", wantClass: mbackup.Foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mbackup.Classify(tt.name)
			if c.Class != tt.wantClass {
				t.Fatalf("Class = %v, want %v", c.Class, tt.wantClass)
			}
			if c.Class == mbackup.Recognized && c.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", c.Kind, tt.wantKind)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	entries := []mbackup.DirEntry{
		{Name: "backup_daily_20240114", Path: "/b/backup_daily_20240114", IsDir: true, HasManifest: true, Size: 10, ModTime: baseTime},
		{Name: "backup_daily_20240115", Path: "/b/backup_daily_20240115", IsDir: true, HasManifest: false},
		{Name: "backup_hourly_20240115_10", Path: "/b/backup_hourly_20240115_10", IsDir: true, HasManifest: true},
		{Name: "backup_20230101_000000", Path: "/b/backup_20230101_000000", IsDir: true, HasManifest: true},
		{Name: "backup_20230102_000000", Path: "/b/backup_20230102_000000", IsDir: true, HasManifest: false},
		{Name: "backup_daily_20240113", Path: "/b/backup_daily_20240113", IsDir: false, HasManifest: false},
		{Name: "notes", Path: "/b/notes", IsDir: true, HasManifest: true},
	}

	records, legacy := mbackup.Discover(entries, mbackup.Daily)

	if len(records) != 1 {
		t.Fatalf("records = %v, want only the completed daily backup", records)
	}
	r := records[0]
	if r.Name != "backup_daily_20240114" || r.Kind != mbackup.Daily || r.Size != 10 || !r.ModTime.Equal(baseTime) || r.Legacy {
		t.Errorf("record = %+v", r)
	}

	if len(legacy) != 1 || legacy[0].Name != "backup_20230101_000000" {
		t.Fatalf("legacy = %v, want the completed legacy backup", legacy)
	}
	if !legacy[0].Legacy {
		t.Error("legacy record not flagged")
	}
}

func TestDiscover_ManifestGating(t *testing.T) {
	entries := []mbackup.DirEntry{
		{Name: "backup_daily_20240115", Path: "/b/backup_daily_20240115", IsDir: true, HasManifest: false},
	}

	records, legacy := mbackup.Discover(entries, mbackup.Daily)
	if len(records) != 0 || len(legacy) != 0 {
		t.Errorf("Discover() = (%v, %v), want nothing for an incomplete backup", records, legacy)
	}
}

func TestDiscover_KeepsListingOrder(t *testing.T) {
	entries := []mbackup.DirEntry{
		{Name: "backup_daily_20240112", Path: "c", IsDir: true, HasManifest: true},
		{Name: "backup_daily_20240110", Path: "a", IsDir: true, HasManifest: true},
		{Name: "backup_daily_20240111", Path: "b", IsDir: true, HasManifest: true},
	}

	records, _ := mbackup.Discover(entries, mbackup.Daily)
	if got := names(records); got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Errorf("order = %v", got)
	}
}
