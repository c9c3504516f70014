package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/schedule"
)

// newScheduler creates a crontab manager whose entries run this binary
// with the resolved config file.
func newScheduler(cmd *cobra.Command) (*schedule.Manager, error) {
	d, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	cfgPath, err := filepath.Abs(d.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating mbackup binary: %w", err)
	}
	return schedule.NewManager(schedule.ExecCrontab{}, binary, cfgPath), nil
}

// entriesFromFlags builds the schedule from per-kind flags when any is set
// or the preset is "custom", else from --preset.
func entriesFromFlags(cmd *cobra.Command) ([]schedule.Entry, error) {
	custom := make(map[mbackup.Kind]string)
	for _, k := range mbackup.RotatedKinds() {
		if cmd.Flags().Changed(k.String()) {
			custom[k], _ = cmd.Flags().GetString(k.String())
		}
	}
	preset, _ := cmd.Flags().GetString("preset")
	if len(custom) > 0 || preset == "custom" {
		return schedule.Custom(custom)
	}
	return schedule.Preset(preset)
}

// schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled backups in the crontab",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the installed backup schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newScheduler(cmd)
		if err != nil {
			return err
		}

		lines, err := m.Show(cmd.Context())
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Println("No scheduled backups.")
			return nil
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		return nil
	},
}

var scheduleInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or replace the backup schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := entriesFromFlags(cmd)
		if err != nil {
			return err
		}

		m, err := newScheduler(cmd)
		if err != nil {
			return err
		}

		lines, err := m.Install(cmd.Context(), entries)
		if err != nil {
			return fmt.Errorf("installing schedule: %w", err)
		}

		fmt.Println("Installed:")
		for _, l := range lines {
			if l != "" {
				fmt.Printf("  %s\n", l)
			}
		}
		fmt.Printf("Output is appended to %s\n", schedule.LogPath)
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove every scheduled backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newScheduler(cmd)
		if err != nil {
			return err
		}

		n, err := m.Remove(cmd.Context())
		if err != nil {
			return fmt.Errorf("removing schedule: %w", err)
		}
		if n == 0 {
			fmt.Println("No scheduled backups to remove.")
			return nil
		}
		fmt.Printf("Removed %d crontab line(s)\n", n)
		return nil
	},
}
