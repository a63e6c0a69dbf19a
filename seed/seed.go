package seed

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

// seedFS holds embedded SQL seed files in seed/sql.
//
//go:embed sql/*.sql
var seedFS embed.FS

// Options defines how to run seed migrations against the durable store.
type Options struct {
	Driver  string
	DSN     string
	Command string // up, down, status, reset
	Logger  *log.Logger
}

// Run executes SQL seed migrations. Seed versions are tracked separately from
// schema migrations. If Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	if strings.TrimSpace(opts.Driver) == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}
	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(seedFS)
	goose.SetTableName("seed_migrations")

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
	case "reset":
		return goose.Reset(db, dir)
	default:
		return fmt.Errorf("unknown seed command: %s", opts.Command)
	}
}

// RunFromEnv runs SQL seeds when IAM_SEED_ON_START is truthy. Driver and DSN
// fall back to the IAM_MIGRATE_* values so both runners can share one target.
func RunFromEnv() error {
	if !isTruthy(os.Getenv("IAM_SEED_ON_START")) {
		return nil
	}
	driver := strings.TrimSpace(os.Getenv("IAM_SEED_DRIVER"))
	if driver == "" {
		driver = strings.TrimSpace(os.Getenv("IAM_MIGRATE_DRIVER"))
	}
	dsn := strings.TrimSpace(os.Getenv("IAM_SEED_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("IAM_MIGRATE_DSN"))
	}
	cmd := strings.TrimSpace(os.Getenv("IAM_SEED_CMD"))
	if cmd == "" {
		cmd = "up"
	}
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags)
	return Run(Options{Driver: driver, DSN: dsn, Command: cmd, Logger: logger})
}

func isTruthy(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	return s == "1" || s == "true" || s == "yes" || s == "y"
}
