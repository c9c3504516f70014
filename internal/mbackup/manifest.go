package mbackup

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
)

// Files written into every backup directory.
const (
	DumpFileName            = "all_databases.sql"
	UsersFileName           = "users_and_grants.sql"
	ReplicationInfoFileName = "replication_info.json"
	compressedSuffix        = ".gz"
)

// ReplicationInfo is stored alongside each dump so a restore can bootstrap
// a replica at the exact binlog coordinates of the dump.
type ReplicationInfo struct {
	BackupTime   string        `json:"backup_time"`
	BackupType   string        `json:"backup_type"`
	MasterStatus *MasterStatus `json:"master_status"`
	ServerID     string        `json:"server_id,omitempty"`
	ServerUUID   string        `json:"server_uuid,omitempty"`
}

func writeReplicationInfo(w io.Writer, info ReplicationInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func readReplicationInfo(r io.Reader) (*ReplicationInfo, error) {
	var info ReplicationInfo
	if err := json.NewDecoder(r).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// manifest is the content of MANIFEST.txt.
type manifest struct {
	Kind      Kind
	Time      time.Time
	Identity  Identity
	Directory string
	Files     []FileInfo
	Master    *MasterStatus
}

func (m manifest) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("MariaDB Backup Manifest\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Backup Type: %s\n", m.Kind)
	fmt.Fprintf(&b, "Backup Time: %s\n", m.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Backup Name: %s\n", strings.TrimPrefix(m.Identity.DirectoryName, dirPrefix))
	fmt.Fprintf(&b, "Backup Directory: %s\n\n", m.Directory)

	b.WriteString("Files:\n")
	for _, f := range m.Files {
		if f.Name == ManifestName {
			continue
		}
		fmt.Fprintf(&b, "  - %s (%s bytes)\n", f.Name, humanize.Comma(f.Size))
	}

	b.WriteString("\nReplication Status:\n")
	if m.Master != nil {
		fmt.Fprintf(&b, "  Binlog File: %s\n", m.Master.BinlogFile)
		fmt.Fprintf(&b, "  Binlog Position: %s\n", m.Master.BinlogPosition)
	} else {
		b.WriteString("  Not available (not a master or binary logging disabled)\n")
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
