package mbackup

import (
	"errors"
	"fmt"
)

var (
	ErrConnection        = errors.New("cannot connect to database server")
	ErrBackupNotFound    = errors.New("backup not found")
	ErrNoDumpFile        = errors.New("database dump file not found")
	ErrNoBaseDir         = errors.New("no base directory configured")
	ErrReplicaSourceHost = errors.New("master host required for replica setup")
	ErrReplicaSourceAuth = errors.New("master user and password required for replica setup")
)

// Layout tells the orchestrators where each kind lives and how many
// backups of it to keep.
type Layout struct {
	BaseDirs   map[Kind]string
	KeepCounts map[Kind]int
	Compress   bool
}

// BaseDir returns the configured base directory for kind.
func (l Layout) BaseDir(kind Kind) (string, error) {
	dir := l.BaseDirs[kind]
	if dir == "" {
		return "", fmt.Errorf("%w for %s backups", ErrNoBaseDir, kind)
	}
	return dir, nil
}

// KeepCount returns the retention count for kind. Kinds that are never
// rotated always report 0.
func (l Layout) KeepCount(kind Kind) int {
	if !kind.Rotated() {
		return 0
	}
	return l.KeepCounts[kind]
}

// Service is the orchestration layer that sequences backup, rotation,
// listing and restore over its collaborators.
type Service struct {
	server   Server
	catalog  Catalog
	vaults   []Vault
	notifier Notifier
	history  History
	logger   Logger
	clock    Clock
	layout   Layout
}

// NewService creates a new Service with the provided dependencies.
// vaults may be empty and history may be nil.
func NewService(server Server, catalog Catalog, vaults []Vault, notifier Notifier, history History, logger Logger, clock Clock, layout Layout) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		server:   server,
		catalog:  catalog,
		vaults:   vaults,
		notifier: notifier,
		history:  history,
		logger:   logger,
		clock:    clock,
		layout:   layout,
	}
}
