package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mbackup-go/internal/mbackup"
)

// errAborted is returned when the operator declines a confirmation.
var errAborted = errors.New("restore aborted")

// confirm asks question on out and reports whether the answer read from in
// is "yes".
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s Type 'yes' to continue: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line) == "yes", nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func describeBackup(w io.Writer, c *mbackup.BackupContents) {
	fmt.Fprintf(w, "Backup:   %s\n", c.Directory)
	fmt.Fprintf(w, "Dump:     %s\n", c.DumpFile)
	if c.UsersFile != "" {
		fmt.Fprintf(w, "Users:    %s\n", c.UsersFile)
	} else {
		fmt.Fprintln(w, "Users:    (none)")
	}
	if info := c.ReplicationInfo; info != nil {
		fmt.Fprintf(w, "Taken:    %s (%s)\n", info.BackupTime, info.BackupType)
		if info.MasterStatus != nil {
			fmt.Fprintf(w, "Binlog:   %s:%s\n", info.MasterStatus.BinlogFile, info.MasterStatus.BinlogPosition)
		}
	}
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore PATH",
	Short: "Restore a backup, optionally setting this server up as a replica",
	Long: `Restore replaces every database on the configured server with the
backup at PATH, then restores users and grants when the backup has them.

With --replica the server is then pointed at the master recorded in the
flags or the [replication] config section, starting from the binlog
coordinates stored in the backup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		asReplica, _ := cmd.Flags().GetBool("replica")

		a, err := newApp(cmd, "restore")
		if err != nil {
			return err
		}
		defer a.Close()

		contents, err := a.Inspect(args[0])
		if err != nil {
			return err
		}
		describeBackup(os.Stdout, contents)

		var replica *mbackup.ReplicaSource
		if asReplica {
			host, _ := cmd.Flags().GetString("master-host")
			user, _ := cmd.Flags().GetString("master-user")
			password, _ := cmd.Flags().GetString("master-password")
			port, _ := cmd.Flags().GetInt("master-port")

			replica = a.ReplicaSource(mbackup.ReplicaSource{Host: host, User: user, Password: password, Port: port})
			if replica.Host == "" {
				return mbackup.ErrReplicaSourceHost
			}
			if replica.Password == "" && stdinIsTerminal() {
				if replica.Password, err = readPassword(fmt.Sprintf("Password for %s@%s: ", replica.User, replica.Host)); err != nil {
					return err
				}
			}
			fmt.Printf("Replica of: %s@%s:%d\n", replica.User, replica.Host, replica.Port)
		}

		if !yes {
			if !stdinIsTerminal() {
				return errors.New("refusing to restore without confirmation; pass --yes")
			}
			ok, err := confirm(os.Stdin, os.Stdout, fmt.Sprintf("\nThis will overwrite all databases on %s.", a.Target()))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}

		result, err := a.Restore(cmd.Context(), args[0], replica)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Println("Databases restored.")
		if result.UsersRestored {
			fmt.Println("Users and grants restored.")
		}
		if result.ReplicaConfigured {
			fmt.Println("Replication configured:")
			fmt.Println(result.ReplicaStatus)
		}
		printWarnings(result.Warnings)
		return nil
	},
}
