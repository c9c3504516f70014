package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"mbackup-go/internal/config"
	"mbackup-go/internal/mbackup"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "yes\n", want: true},
		{input: "  yes  \n", want: true},
		{input: "yes", want: true},
		{input: "y\n", want: false},
		{input: "YES\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirm(strings.NewReader(tt.input), &out, "Overwrite?")
			if err != nil {
				t.Fatalf("confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "Overwrite?") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestRedact(t *testing.T) {
	cfg := config.Default()
	cfg.MySQL.Password = "root-pw"
	cfg.Vaults = []config.VaultConfig{{Type: "s3", Name: "offsite", AccessKey: "AKIA", SecretKey: "secret"}}

	var buf bytes.Buffer
	if err := showConfig(&buf, "/etc/mbackup.toml", cfg); err != nil {
		t.Fatalf("showConfig() error = %v", err)
	}

	out := buf.String()
	for _, secret := range []string{"root-pw", "secret\""} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "AKIA") {
		t.Error("access key id should be shown")
	}
	if cfg.Vaults[0].SecretKey != "secret" {
		t.Error("redact modified the original config")
	}
}

func TestEntriesFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "install"}
		cmd.Flags().String("preset", "all", "")
		for _, k := range mbackup.RotatedKinds() {
			cmd.Flags().String(k.String(), "", "")
		}
		return cmd
	}

	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "default preset", want: 3},
		{name: "named preset", args: []string{"--preset", "daily"}, want: 1},
		{name: "unknown preset", args: []string{"--preset", "weekly"}, wantErr: true},
		{name: "custom flags", args: []string{"--daily", "30 1 * * *"}, want: 1},
		{name: "custom preset without schedules", args: []string{"--preset", "custom"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}

			entries, err := entriesFromFlags(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("entriesFromFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(entries) != tt.want {
				t.Errorf("len(entries) = %d, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestKindNames(t *testing.T) {
	if got := kindNames(mbackup.Kinds()); got != "hourly|daily|monthly|manual" {
		t.Errorf("kindNames() = %q", got)
	}
}
