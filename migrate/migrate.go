package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// migrationsFS holds embedded SQL migrations in migrate/sql.
//
//go:embed sql/*.sql
var migrationsFS embed.FS

// Options defines how to run schema migrations.
type Options struct {
	Driver  string      // sqlite or postgres
	DSN     string      // ./iam.db for sqlite, or a full postgres DSN
	Command string      // up, down, status, version, reset
	Logger  *log.Logger // optional
}

// Run executes schema migrations. If Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	if strings.TrimSpace(opts.Driver) == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}
	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("schema_migrations")

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	dir := "sql"
	switch strings.ToLower(strings.TrimSpace(opts.Command)) {
	case "", "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	case "reset":
		return goose.Reset(db, dir)
	default:
		return fmt.Errorf("unknown migration command: %s", opts.Command)
	}
}

// RunFromEnv runs migrations when IAM_MIGRATE_ON_START is truthy.
//
// Env vars:
// - IAM_MIGRATE_ON_START: if 1/true/yes, run migrations
// - IAM_MIGRATE_DRIVER: sqlite or postgres
// - IAM_MIGRATE_DSN: db connection string
// - IAM_MIGRATE_CMD: up, down, status, version, reset (default: up)
func RunFromEnv() error {
	if !isTruthy(os.Getenv("IAM_MIGRATE_ON_START")) {
		return nil
	}
	cmd := strings.TrimSpace(os.Getenv("IAM_MIGRATE_CMD"))
	if cmd == "" {
		cmd = "up"
	}
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags)
	return Run(Options{
		Driver:  strings.TrimSpace(os.Getenv("IAM_MIGRATE_DRIVER")),
		DSN:     strings.TrimSpace(os.Getenv("IAM_MIGRATE_DSN")),
		Command: cmd,
		Logger:  logger,
	})
}

func isTruthy(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	return s == "1" || s == "true" || s == "yes" || s == "y"
}
