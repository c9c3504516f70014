// Package mysql drives a MariaDB/MySQL server through the mysql and
// mysqldump client binaries.
package mysql

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mbackup-go/internal/mbackup"
)

const pingTimeout = 10 * time.Second

// systemUsers are accounts owned by the server itself; they are recreated
// by the server and never exported.
var systemUsers = []string{"mysql.sys", "mariadb.sys", "mysql.infoschema", "mysql.session"}

// dumpFlags produce a consistent, replica-ready logical dump. The CHANGE
// MASTER statement is written commented out.
var dumpFlags = []string{
	"--all-databases",
	"--single-transaction",
	"--routines",
	"--triggers",
	"--events",
	"--flush-privileges",
	"--hex-blob",
	"--master-data=2",
	"--add-drop-database",
	"--quick",
}

// Options holds connection settings and binary locations.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	// MysqlBin and DumpBin default to "mysql" and "mysqldump".
	MysqlBin string
	DumpBin  string
}

// Client implements mbackup.Server on top of the client binaries.
type Client struct {
	opts   Options
	runner Runner
	clock  mbackup.Clock
}

// NewClient creates a Client. The password is passed through MYSQL_PWD so
// it never shows up in the process list.
func NewClient(opts Options, runner Runner, clock mbackup.Clock) *Client {
	if opts.MysqlBin == "" {
		opts.MysqlBin = "mysql"
	}
	if opts.DumpBin == "" {
		opts.DumpBin = "mysqldump"
	}
	return &Client{opts: opts, runner: runner, clock: clock}
}

func (c *Client) Target() string {
	return fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
}

func (c *Client) connArgs() []string {
	return []string{
		"--host=" + c.opts.Host,
		"--user=" + c.opts.User,
		"--port=" + strconv.Itoa(c.opts.Port),
	}
}

func (c *Client) env() []string {
	if c.opts.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + c.opts.Password}
}

func (c *Client) mysql(args ...string) Command {
	return Command{
		Name: c.opts.MysqlBin,
		Args: append(c.connArgs(), args...),
		Env:  c.env(),
	}
}

// query runs a statement in batch mode without column names.
func (c *Client) query(ctx context.Context, sql string) (string, error) {
	return c.runner.Run(ctx, c.mysql("-N", "-B", "-e", sql))
}

// exec runs a statement and discards its output.
func (c *Client) exec(ctx context.Context, sql string) (string, error) {
	return c.runner.Run(ctx, c.mysql("-e", sql))
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.query(ctx, "SELECT 1;"); err != nil {
		return err
	}
	return nil
}

func (c *Client) MasterStatus(ctx context.Context) (*mbackup.MasterStatus, error) {
	out, err := c.query(ctx, "SHOW MASTER STATUS;")
	if err != nil {
		return nil, err
	}
	return parseMasterStatus(out), nil
}

// parseMasterStatus reads the tab-separated SHOW MASTER STATUS row.
// It returns nil when binary logging is disabled.
func parseMasterStatus(out string) *mbackup.MasterStatus {
	line := strings.TrimSpace(out)
	if line == "" {
		return nil
	}
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return nil
	}
	status := &mbackup.MasterStatus{
		BinlogFile:     parts[0],
		BinlogPosition: parts[1],
	}
	if len(parts) > 2 {
		status.BinlogDoDB = parts[2]
	}
	if len(parts) > 3 {
		status.BinlogIgnoreDB = parts[3]
	}
	return status
}

// Identity reads @@server_id and @@server_uuid. MariaDB has no
// @@server_uuid; that lookup failing leaves ServerUUID empty.
func (c *Client) Identity(ctx context.Context) (mbackup.ServerIdentity, error) {
	var ident mbackup.ServerIdentity

	out, err := c.query(ctx, "SELECT @@server_id;")
	if err != nil {
		return ident, err
	}
	ident.ServerID = strings.TrimSpace(out)

	if out, err := c.query(ctx, "SELECT @@server_uuid;"); err == nil {
		ident.ServerUUID = strings.TrimSpace(out)
	}
	return ident, nil
}

func (c *Client) DumpAll(ctx context.Context, w io.Writer) error {
	_, err := c.runner.Run(ctx, Command{
		Name:   c.opts.DumpBin,
		Args:   append(c.connArgs(), dumpFlags...),
		Env:    c.env(),
		Stdout: w,
	})
	return err
}

func (c *Client) DumpUsers(ctx context.Context, w io.Writer) error {
	out, err := c.query(ctx, usersQuery())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	if _, err := fmt.Fprintf(w, "-- Users and Grants Backup\n-- Created: %s\n\n",
		c.clock.Now().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			continue
		}
		account := quote(parts[0]) + "@" + quote(parts[1])

		if create, err := c.query(ctx, "SHOW CREATE USER "+account+";"); err == nil {
			if _, err := fmt.Fprintf(w, "%s;\n", strings.TrimSpace(create)); err != nil {
				return err
			}
		}

		if grants, err := c.query(ctx, "SHOW GRANTS FOR "+account+";"); err == nil {
			for _, g := range strings.Split(strings.TrimSpace(grants), "\n") {
				if g = strings.TrimSpace(g); g == "" {
					continue
				}
				if _, err := fmt.Fprintf(w, "%s;\n", g); err != nil {
					return err
				}
			}
		}

		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func usersQuery() string {
	excluded := make([]string, len(systemUsers))
	for i, u := range systemUsers {
		excluded[i] = quote(u)
	}
	return "SELECT DISTINCT user, host FROM mysql.user WHERE user NOT IN (" + strings.Join(excluded, ", ") + ");"
}

func (c *Client) Apply(ctx context.Context, r io.Reader) error {
	cmd := c.mysql()
	cmd.Stdin = r
	_, err := c.runner.Run(ctx, cmd)
	return err
}

func (c *Client) ConfigureReplica(ctx context.Context, src mbackup.ReplicaSource, at mbackup.MasterStatus) (string, error) {
	change, err := changeMasterSQL(src, at)
	if err != nil {
		return "", err
	}

	// A server that was never a replica rejects these; that is fine.
	_, _ = c.exec(ctx, "STOP SLAVE;")
	_, _ = c.exec(ctx, "RESET SLAVE ALL;")

	if _, err := c.exec(ctx, change); err != nil {
		return "", fmt.Errorf("configuring master connection: %w", err)
	}
	if _, err := c.exec(ctx, "START SLAVE;"); err != nil {
		return "", fmt.Errorf("starting replica: %w", err)
	}

	status, err := c.exec(ctx, `SHOW SLAVE STATUS\G`)
	if err != nil {
		return "", fmt.Errorf("reading replica status: %w", err)
	}
	return status, nil
}

func changeMasterSQL(src mbackup.ReplicaSource, at mbackup.MasterStatus) (string, error) {
	pos, err := strconv.ParseUint(strings.TrimSpace(at.BinlogPosition), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid binlog position %q: %w", at.BinlogPosition, err)
	}
	port := src.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("CHANGE MASTER TO MASTER_HOST=%s, MASTER_USER=%s, MASTER_PASSWORD=%s, MASTER_PORT=%d, MASTER_LOG_FILE=%s, MASTER_LOG_POS=%d;",
		quote(src.Host), quote(src.User), quote(src.Password), port, quote(at.BinlogFile), pos), nil
}

// quote renders s as a single-quoted SQL string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// Compile-time check that Client implements mbackup.Server interface
var _ mbackup.Server = (*Client)(nil)
