package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"mbackup-go/internal/mbackup"
)

// FakeServer is an in-memory mbackup.Server. Each step can be made to fail
// by setting the matching error field.
type FakeServer struct {
	mu sync.Mutex

	Dump   string
	Users  string
	Master *mbackup.MasterStatus
	ID     mbackup.ServerIdentity

	PingErr      error
	MasterErr    error
	IdentityErr  error
	DumpErr      error
	UsersErr     error
	ApplyErr     error
	ReplicaErr   error
	ReplicaState string

	// Applied collects every SQL stream passed to Apply, in order.
	Applied []string
	// ReplicaCalls records ConfigureReplica arguments.
	ReplicaCalls []ReplicaCall
}

// ReplicaCall is one recorded ConfigureReplica invocation.
type ReplicaCall struct {
	Source mbackup.ReplicaSource
	At     mbackup.MasterStatus
}

// NewFakeServer returns a healthy server with binary logging enabled.
func NewFakeServer() *FakeServer {
	return &FakeServer{
		Dump:   "-- MariaDB dump\nCREATE DATABASE shop;\n",
		Users:  "-- Users and Grants Backup\nCREATE USER 'app'@'%';\n",
		Master: &mbackup.MasterStatus{BinlogFile: "mysql-bin.000003", BinlogPosition: "1234"},
		ID:     mbackup.ServerIdentity{ServerID: "1"},

		ReplicaState: "Slave_IO_Running: Yes\nSlave_SQL_Running: Yes\n",
	}
}

func (f *FakeServer) Target() string { return "fake:3306" }

func (f *FakeServer) Ping(context.Context) error { return f.PingErr }

func (f *FakeServer) MasterStatus(context.Context) (*mbackup.MasterStatus, error) {
	if f.MasterErr != nil {
		return nil, f.MasterErr
	}
	return f.Master, nil
}

func (f *FakeServer) Identity(context.Context) (mbackup.ServerIdentity, error) {
	return f.ID, f.IdentityErr
}

func (f *FakeServer) DumpAll(_ context.Context, w io.Writer) error {
	if f.DumpErr != nil {
		return f.DumpErr
	}
	_, err := io.WriteString(w, f.Dump)
	return err
}

func (f *FakeServer) DumpUsers(_ context.Context, w io.Writer) error {
	if f.UsersErr != nil {
		return f.UsersErr
	}
	_, err := io.WriteString(w, f.Users)
	return err
}

func (f *FakeServer) Apply(_ context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading sql: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Applied = append(f.Applied, string(data))
	return f.ApplyErr
}

func (f *FakeServer) ConfigureReplica(_ context.Context, src mbackup.ReplicaSource, at mbackup.MasterStatus) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReplicaCalls = append(f.ReplicaCalls, ReplicaCall{Source: src, At: at})
	if f.ReplicaErr != nil {
		return "", f.ReplicaErr
	}
	return f.ReplicaState, nil
}

// Compile-time check that FakeServer implements mbackup.Server interface
var _ mbackup.Server = (*FakeServer)(nil)
