package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalid is returned when a configuration value is out of range.
	ErrInvalid = errors.New("invalid configuration")

	// ErrUnknownKey is returned by Set for keys that do not exist.
	ErrUnknownKey = errors.New("unknown configuration key")
)

// Config represents the main configuration for mbackup.
//
// Config is a value: Set returns a modified copy and Save returns the
// snapshot that was persisted. Nothing mutates a Config in place.
type Config struct {
	LogDir      string            `toml:"log_dir"`
	MySQL       MySQLConfig       `toml:"mysql"`
	BackupPaths BackupPathsConfig `toml:"backup_paths"`
	Options     OptionsConfig     `toml:"options"`
	Rotation    RotationConfig    `toml:"rotation"`
	Replication ReplicationConfig `toml:"replication"`
	Webhooks    WebhooksConfig    `toml:"webhooks"`
	Database    DatabaseConfig    `toml:"database"`
	Vaults      []VaultConfig     `toml:"vaults"`
}

// MySQLConfig holds the server connection settings.
type MySQLConfig struct {
	Host         string `toml:"host"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Port         int    `toml:"port"`
	MysqlBin     string `toml:"mysql_bin"`
	MysqldumpBin string `toml:"mysqldump_bin"`
}

// BackupPathsConfig holds the base directory for each backup kind.
type BackupPathsConfig struct {
	Hourly  string `toml:"hourly"`
	Daily   string `toml:"daily"`
	Monthly string `toml:"monthly"`
	Manual  string `toml:"manual"`
}

type OptionsConfig struct {
	Compression bool `toml:"compression"`
}

// RotationConfig holds keep counts. A count of zero or less disables
// rotation for that kind.
type RotationConfig struct {
	HourlyKeep  int `toml:"hourly_keep"`
	DailyKeep   int `toml:"daily_keep"`
	MonthlyKeep int `toml:"monthly_keep"`
}

// ReplicationConfig holds the master used when restoring as a replica.
type ReplicationConfig struct {
	MasterHost     string `toml:"master_host"`
	MasterUser     string `toml:"master_user"`
	MasterPassword string `toml:"master_password"`
	MasterPort     int    `toml:"master_port"`
}

type WebhooksConfig struct {
	SuccessURL string `toml:"success_url"`
	FailureURL string `toml:"failure_url"`
}

// VaultConfig represents configuration for an offsite copy destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3BucketURL string `toml:"s3_bucket_url,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	AccessKey   string `toml:"access_key,omitempty"`
	SecretKey   string `toml:"secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// Default returns the configuration used for every field a file leaves out.
func Default() Config {
	return Config{
		LogDir: "/var/log/mbackup",
		MySQL: MySQLConfig{
			Host:         "localhost",
			User:         "root",
			Port:         3306,
			MysqlBin:     "mysql",
			MysqldumpBin: "mysqldump",
		},
		BackupPaths: BackupPathsConfig{
			Hourly:  "/var/backups/mariadb/hourly",
			Daily:   "/var/backups/mariadb/daily",
			Monthly: "/var/backups/mariadb/monthly",
			Manual:  "/var/backups/mariadb/manual",
		},
		Options: OptionsConfig{Compression: true},
		Rotation: RotationConfig{
			HourlyKeep:  24,
			DailyKeep:   31,
			MonthlyKeep: 12,
		},
		Replication: ReplicationConfig{MasterPort: 3306},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "/var/lib/mbackup",
		},
	}
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	if c.MySQL.Host == "" {
		return fmt.Errorf("%w: mysql.host must not be empty", ErrInvalid)
	}
	if c.MySQL.Port < 1 || c.MySQL.Port > 65535 {
		return fmt.Errorf("%w: mysql.port %d out of range", ErrInvalid, c.MySQL.Port)
	}
	if c.Replication.MasterPort < 0 || c.Replication.MasterPort > 65535 {
		return fmt.Errorf("%w: replication.master_port %d out of range", ErrInvalid, c.Replication.MasterPort)
	}
	switch c.Database.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: database.type must be sqlite or memory, got %q", ErrInvalid, c.Database.Type)
	}
	return nil
}

// normalize restores defaults for paths that a file explicitly emptied.
func (c Config) normalize() Config {
	d := Default()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.BackupPaths.Hourly, d.BackupPaths.Hourly)
	fill(&c.BackupPaths.Daily, d.BackupPaths.Daily)
	fill(&c.BackupPaths.Monthly, d.BackupPaths.Monthly)
	fill(&c.BackupPaths.Manual, d.BackupPaths.Manual)
	fill(&c.MySQL.MysqlBin, d.MySQL.MysqlBin)
	fill(&c.MySQL.MysqldumpBin, d.MySQL.MysqldumpBin)
	fill(&c.LogDir, d.LogDir)
	return c
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	c.Vaults = slices.Clone(c.Vaults)
	return c
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader on top of Default.
// The returned warnings name keys that were present but not understood.
func (m *Manager) Read(r io.Reader) (Config, []string, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown configuration key %q ignored", key.String()))
	}
	return cfg.normalize(), warnings, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads and validates the config file at path.
func Load(path string) (Config, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, warnings, err := m.Read(f)
	if err != nil {
		return Config{}, nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, warnings, nil
}

// LoadOrCreate loads path, first writing def there
// when no file exists. created reports whether the file was written.
func LoadOrCreate(path string, def Config) (cfg Config, warnings []string, created bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg, err := Save(path, def)
		if err != nil {
			return Config{}, nil, false, fmt.Errorf("creating default config: %w", err)
		}
		return cfg, nil, true, nil
	}

	cfg, warnings, err = Load(path)
	return cfg, warnings, false, err
}

// Save validates cfg, writes it to path atomically with mode 0600 and
// returns the configuration as read back from disk.
func Save(path string, cfg Config) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mbackup-*.toml")
	if err != nil {
		return Config{}, fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	m := &Manager{}
	if err := m.Write(tmp, cfg); err != nil {
		tmp.Close()
		return Config{}, fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return Config{}, fmt.Errorf("setting config permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Config{}, fmt.Errorf("syncing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Config{}, fmt.Errorf("closing config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Config{}, fmt.Errorf("replacing config file: %w", err)
	}

	saved, _, err := Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("re-reading saved config: %w", err)
	}
	return saved, nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg Config) (Config, error) {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return Config{}, fmt.Errorf("config file already exists at %s", path)
	}

	saved, err := Save(path, cfg)
	if err != nil {
		return Config{}, fmt.Errorf("initializing config: %w", err)
	}
	return saved, nil
}
