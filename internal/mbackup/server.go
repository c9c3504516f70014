package mbackup

import (
	"context"
	"io"
)

// MasterStatus holds the binary log coordinates reported by SHOW MASTER STATUS.
type MasterStatus struct {
	BinlogFile     string `json:"binlog_file"`
	BinlogPosition string `json:"binlog_position"`
	BinlogDoDB     string `json:"binlog_do_db"`
	BinlogIgnoreDB string `json:"binlog_ignore_db"`
}

// ServerIdentity identifies the server a backup was taken from.
type ServerIdentity struct {
	ServerID   string
	ServerUUID string
}

// ReplicaSource describes the master a restored server should replicate from.
type ReplicaSource struct {
	Host     string
	User     string
	Password string
	Port     int
}

// Server is the database server as reached through its client binaries.
type Server interface {
	// Target returns host:port, for messages.
	Target() string

	// Ping verifies that the server accepts connections.
	Ping(ctx context.Context) error

	// MasterStatus returns the current binlog coordinates, or nil when
	// binary logging is disabled.
	MasterStatus(ctx context.Context) (*MasterStatus, error)

	// Identity returns @@server_id and @@server_uuid. Fields the server
	// does not report are left empty.
	Identity(ctx context.Context) (ServerIdentity, error)

	// DumpAll writes a logical dump of every database to w.
	DumpAll(ctx context.Context, w io.Writer) error

	// DumpUsers writes CREATE USER and GRANT statements for every
	// non-system account to w.
	DumpUsers(ctx context.Context, w io.Writer) error

	// Apply feeds SQL from r to the server.
	Apply(ctx context.Context, r io.Reader) error

	// ConfigureReplica points the server at src starting from the given
	// coordinates and starts replication. It returns the replica status text.
	ConfigureReplica(ctx context.Context, src ReplicaSource, at MasterStatus) (string, error)
}
