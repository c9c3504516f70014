package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mbackup-go/internal/app"
	"mbackup-go/internal/config"
	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/schedule"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// configPath resolves the config file for cmd, printing a warning when
// several candidate files exist.
func configPath(cmd *cobra.Command) (*config.Discovery, error) {
	explicit, _ := cmd.Flags().GetString("config")

	d, err := app.ResolveConfigPath(explicit)
	if err != nil {
		return nil, fmt.Errorf("locating config: %w", err)
	}

	if len(d.Conflicts) > 0 {
		fmt.Fprintln(os.Stderr, "Warning: multiple configuration files found:")
		for _, c := range d.Conflicts {
			fmt.Fprintf(os.Stderr, "  %s (%s, modified %s)\n",
				c.Path, humanize.Bytes(uint64(c.Size)), c.ModTime.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(os.Stderr, "Using %s\n", d.Path)
	}
	return d, nil
}

// loadConfig reads the config for cmd, creating a default one on first use.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	d, err := configPath(cmd)
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, warnings, created, err := config.LoadOrCreate(d.Path, app.DefaultConfig())
	if err != nil {
		return config.Config{}, "", fmt.Errorf("reading config: %w", err)
	}
	if created {
		fmt.Fprintf(os.Stderr, "Created default configuration at %s\n", d.Path)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return cfg, d.Path, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "backup", "rotate").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func kindNames(kinds []mbackup.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, "|")
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

func printRotation(r *mbackup.RotationReport) {
	if r.Disabled {
		fmt.Printf("Rotation disabled for %s backups\n", r.Kind)
		return
	}
	fmt.Printf("Rotation (%s, keep %d): %d found, %d retained, %d deleted, %d failed\n",
		r.Kind, r.KeepCount, r.Found, r.Retained, len(r.Deleted), len(r.Failures))
	for _, d := range r.Deleted {
		fmt.Printf("  deleted %s\n", d.Name)
	}
	for _, f := range r.Failures {
		fmt.Printf("  failed to delete %s: %v\n", f.Record.Name, f.Err)
	}
	for _, f := range r.VaultFailures {
		fmt.Printf("  offsite copy of %s left in %s: %v\n", f.Record.Name, f.Vault, f.Err)
	}
}

var rootCmd = &cobra.Command{
	Use:          "mbackup",
	Short:        "MariaDB backup, restore and rotation tool",
	SilenceUsage: true,
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup KIND",
	Short: "Run a backup (" + kindNames(mbackup.Kinds()) + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := mbackup.ParseKind(args[0])
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")

		a, err := newApp(cmd, "backup")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Backup(cmd.Context(), kind, path)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		if result.Replaced {
			fmt.Printf("Replaced existing backup in %s\n", result.Directory)
		}
		fmt.Printf("Backup completed: %s (%s)\n", result.Directory, humanize.Bytes(uint64(result.Size)))
		for _, f := range result.Files {
			fmt.Printf("  %-28s %10s\n", f.Name, humanize.Bytes(uint64(f.Size)))
		}
		if result.Master != nil {
			fmt.Printf("Binlog position: %s:%s\n", result.Master.BinlogFile, result.Master.BinlogPosition)
		}
		if result.Rotation != nil {
			printRotation(result.Rotation)
		}
		printWarnings(result.Warnings)
		return nil
	},
}

// rotate command
var rotateCmd = &cobra.Command{
	Use:   "rotate KIND",
	Short: "Delete old backups beyond the keep count (" + kindNames(mbackup.RotatedKinds()) + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := mbackup.ParseKind(args[0])
		if err != nil {
			return err
		}
		if !kind.Rotated() {
			return fmt.Errorf("%s backups are never rotated", kind)
		}

		a, err := newApp(cmd, "rotate")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Rotate(cmd.Context(), kind)
		if err != nil {
			return fmt.Errorf("rotation failed: %w", err)
		}
		printRotation(report)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := mbackup.Kinds()
		if k, _ := cmd.Flags().GetString("kind"); k != "" {
			kind, err := mbackup.ParseKind(k)
			if err != nil {
				return err
			}
			kinds = []mbackup.Kind{kind}
		}

		a, err := newApp(cmd, "list")
		if err != nil {
			return err
		}
		defer a.Close()

		listing, err := a.List(kinds)
		if err != nil {
			return err
		}

		if len(listing.Backups) == 0 {
			fmt.Println("No backups found.")
		}
		for _, r := range listing.Backups {
			fmt.Printf("%-8s  %-34s  %10s  %s  (%s)\n",
				r.Kind,
				r.Name,
				humanize.Bytes(uint64(r.Size)),
				r.ModTime.Format("2006-01-02 15:04:05"),
				humanize.Time(r.ModTime),
			)
		}

		if len(listing.Legacy) > 0 {
			fmt.Println()
			fmt.Println("Legacy backup directories (kind unknown, never rotated):")
			for _, r := range listing.Legacy {
				fmt.Printf("  %s  %10s  %s\n", r.Path, humanize.Bytes(uint64(r.Size)), r.ModTime.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the database connection and offsite vaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "check")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		failed := 0
		for _, r := range a.Check(ctx) {
			if r.Err != nil {
				failed++
				fmt.Printf("FAIL  %s: %v\n", r.Name, r.Err)
				continue
			}
			fmt.Printf("OK    %s\n", r.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent backup, rotation and restore runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			d := r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond)
			fmt.Printf("%s  %-8s  %-8s  %-8s  %10s",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Operation,
				r.Kind,
				r.Status,
				d,
			)
			if r.Deleted > 0 || r.Failed > 0 {
				fmt.Printf("  deleted=%d failed=%d", r.Deleted, r.Failed)
			}
			if r.Message != "" {
				fmt.Printf("  %s", r.Message)
			} else if r.Directory != "" {
				fmt.Printf("  %s", r.Directory)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: discovered, or $"+app.ConfigEnv+")")

	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().String("path", "", "Base directory overriding the configured one")

	rootCmd.AddCommand(rotateCmd)

	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("kind", "", "Only list backups of this kind")

	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("replica", false, "Configure this server as a replica after restoring")
	restoreCmd.Flags().String("master-host", "", "Master host for replication (default: [replication] master_host)")
	restoreCmd.Flags().String("master-user", "", "Master replication user (default: [replication] master_user)")
	restoreCmd.Flags().String("master-password", "", "Master replication password (default: [replication] master_password, else prompted)")
	restoreCmd.Flags().Int("master-port", 0, "Master port (default: [replication] master_port, else 3306)")
	restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(checkCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleInstallCmd)
	scheduleInstallCmd.Flags().String("preset", "all", "Schedule preset ("+strings.Join(schedule.Presets(), "|")+"|custom)")
	for _, k := range mbackup.RotatedKinds() {
		scheduleInstallCmd.Flags().String(k.String(), "", "Cron schedule for "+k.String()+" backups (overrides --preset)")
	}
	scheduleCmd.AddCommand(scheduleRemoveCmd)
}
