package config

import (
	"fmt"
	"sort"
	"strconv"
)

type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalid, v)
			}
			*p(c) = n
			return nil
		},
	}
}

func boolField(p func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalid, v)
			}
			*p(c) = b
			return nil
		},
	}
}

// fields lists every key that can be edited with Set, in dotted form.
// Vaults are edited in the file directly.
var fields = map[string]field{
	"log_dir": stringField(func(c *Config) *string { return &c.LogDir }),

	"mysql.host":          stringField(func(c *Config) *string { return &c.MySQL.Host }),
	"mysql.user":          stringField(func(c *Config) *string { return &c.MySQL.User }),
	"mysql.password":      stringField(func(c *Config) *string { return &c.MySQL.Password }),
	"mysql.port":          intField(func(c *Config) *int { return &c.MySQL.Port }),
	"mysql.mysql_bin":     stringField(func(c *Config) *string { return &c.MySQL.MysqlBin }),
	"mysql.mysqldump_bin": stringField(func(c *Config) *string { return &c.MySQL.MysqldumpBin }),

	"backup_paths.hourly":  stringField(func(c *Config) *string { return &c.BackupPaths.Hourly }),
	"backup_paths.daily":   stringField(func(c *Config) *string { return &c.BackupPaths.Daily }),
	"backup_paths.monthly": stringField(func(c *Config) *string { return &c.BackupPaths.Monthly }),
	"backup_paths.manual":  stringField(func(c *Config) *string { return &c.BackupPaths.Manual }),

	"options.compression": boolField(func(c *Config) *bool { return &c.Options.Compression }),

	"rotation.hourly_keep":  intField(func(c *Config) *int { return &c.Rotation.HourlyKeep }),
	"rotation.daily_keep":   intField(func(c *Config) *int { return &c.Rotation.DailyKeep }),
	"rotation.monthly_keep": intField(func(c *Config) *int { return &c.Rotation.MonthlyKeep }),

	"replication.master_host":     stringField(func(c *Config) *string { return &c.Replication.MasterHost }),
	"replication.master_user":     stringField(func(c *Config) *string { return &c.Replication.MasterUser }),
	"replication.master_password": stringField(func(c *Config) *string { return &c.Replication.MasterPassword }),
	"replication.master_port":     intField(func(c *Config) *int { return &c.Replication.MasterPort }),

	"webhooks.success_url": stringField(func(c *Config) *string { return &c.Webhooks.SuccessURL }),
	"webhooks.failure_url": stringField(func(c *Config) *string { return &c.Webhooks.FailureURL }),

	"database.type":     stringField(func(c *Config) *string { return &c.Database.Type }),
	"database.data_dir": stringField(func(c *Config) *string { return &c.Database.DataDir }),
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the textual value of key.
func (c Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(&c), nil
}

// Set returns a copy of c with key set to value. The copy is validated;
// c itself is never modified.
func (c Config) Set(key, value string) (Config, error) {
	f, ok := fields[key]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	next := c.clone()
	if err := f.set(&next, value); err != nil {
		return Config{}, fmt.Errorf("setting %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return Config{}, err
	}
	return next, nil
}
