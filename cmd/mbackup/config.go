package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mbackup-go/internal/app"
	"mbackup-go/internal/config"
)

const masked = "********"

// secretKeys are never echoed back.
var secretKeys = map[string]bool{
	"mysql.password":              true,
	"replication.master_password": true,
}

// redact returns cfg with every secret replaced by a mask.
func redact(cfg config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&cfg.MySQL.Password)
	mask(&cfg.Replication.MasterPassword)
	vaults := make([]config.VaultConfig, len(cfg.Vaults))
	for i, v := range cfg.Vaults {
		mask(&v.SecretKey)
		vaults[i] = v
	}
	cfg.Vaults = vaults
	return cfg
}

func showConfig(w io.Writer, path string, cfg config.Config) error {
	fmt.Fprintf(w, "# Configuration from %s\n\n", path)
	m := &config.Manager{}
	return m.Write(w, redact(cfg))
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := configPath(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.Init(d.Path, app.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", d.Path)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Data Dir: %s\n", cfg.Database.DataDir)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return showConfig(os.Stdout, path, cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print which configuration file is used",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := configPath(cmd)
		if err != nil {
			return err
		}

		fmt.Println(d.Path)
		if !d.Exists {
			fmt.Fprintln(os.Stderr, "(does not exist yet; it will be created on first use)")
		}
		if len(d.Conflicts) > 0 {
			fmt.Fprintln(os.Stderr, "Other candidates:")
			for _, c := range d.Conflicts[1:] {
				fmt.Fprintf(os.Stderr, "  %s (%s, modified %s)\n", c.Path, humanize.Bytes(uint64(c.Size)), humanize.Time(c.ModTime))
			}
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting",
	Long:  "Change one setting and save the configuration file.\n\nKeys:\n  " + strings.Join(config.Keys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		next, err := cfg.Set(key, value)
		if err != nil {
			return err
		}
		saved, err := config.Save(path, next)
		if err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		shown, _ := saved.Get(key)
		if secretKeys[key] {
			shown = masked
		}
		fmt.Printf("%s = %s\n", key, shown)
		return nil
	},
}
