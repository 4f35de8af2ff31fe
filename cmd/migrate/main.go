package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/erp/purchasing/internal/infrastructure/logger"
	"github.com/erp/purchasing/internal/infrastructure/migration"
	"github.com/erp/purchasing/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one migrate subcommand. Commands with a nil migrate func work
// offline and never touch the database.
type command struct {
	usage   string
	help    string
	minArgs int
	offline func(args []string) error
	migrate func(m *migration.Migrator, args []string) error
}

var (
	migrationsPath string
	log            *zap.Logger
)

var commands = map[string]command{
	"up":   {usage: "up", help: "Apply all pending migrations", migrate: func(m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {usage: "down", help: "Roll back all migrations", migrate: func(m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {usage: "step <n>", help: "Apply n migrations (negative rolls back)", minArgs: 1, migrate: func(m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {usage: "goto <version>", help: "Migrate up or down to a version", minArgs: 1, migrate: func(m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"version": {usage: "version", help: "Show the applied version", migrate: func(m *migration.Migrator, _ []string) error {
		v, dirty, err := m.Version()
		if err == nil {
			log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		}
		return err
	}},
	"force": {usage: "force <version>", help: "Set the version after a failed run", minArgs: 1, migrate: func(m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"create": {usage: "create <name> [desc]", help: "Create a new up/down file pair", minArgs: 1, offline: create},
	"list":   {usage: "list", help: "List available migrations", offline: list},
}

func main() {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}
	if len(args) < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(2)
	}

	var err error
	log, err = logger.New(&logger.Config{Level: *logLevel, Format: "console", TimeFormat: "2006-01-02 15:04:05"}, "migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cmd.offline != nil {
		err = cmd.offline(args)
	} else {
		err = withMigrator(func(m *migration.Migrator) error { return cmd.migrate(m, args) })
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func withMigrator(fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations run against postgres only; the server auto-migrates %s", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var m *migration.Migrator
	if migrationsPath == "" {
		m, err = migration.New(db, log)
	} else {
		m, err = migration.NewFromDir(db, migrationsPath, log)
	}
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func create(args []string) error {
	dir := migrationsPath
	if dir == "" {
		dir = "migrations"
	}
	desc := strings.Join(args[1:], " ")
	mf, err := migration.CreateMigration(dir, args[0], desc, time.Now())
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list([]string) error {
	var fsys fs.FS = migrations.FS
	if migrationsPath != "" {
		fsys = os.DirFS(migrationsPath)
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Purchasing database migration tool")
	fmt.Fprintln(out, "\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range []string{"up", "down", "step", "goto", "version", "force", "create", "list"} {
		c := commands[name]
		fmt.Fprintf(out, "  %-22s%s\n", c.usage, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nConnection settings come from config.toml or PURCHASING_DATABASE_* variables.")
}
