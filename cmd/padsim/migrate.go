package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/padplane/internal/config"
	"github.com/banshee-data/padplane/internal/monitoring"
	"github.com/banshee-data/padplane/internal/storage/sqlite"
)

const migrateUsage = `Usage: padsim migrate [-db path] <action>

Actions:
  up               apply all pending migrations
  down             roll back the most recent migration
  status           print the current version and dirty flag
  version <n>      migrate up or down to version n
  force <n>        record version n without migrating (recovery only)
`

// runMigrate handles the 'migrate' subcommand.
func runMigrate(args []string, stdout io.Writer, env config.RuntimeEnv) error {
	fs := flag.NewFlagSet("padsim migrate", flag.ContinueOnError)
	dbPath := fs.String("db", env.DBPath, "SQLite database to migrate")
	fs.Usage = func() { fmt.Fprint(fs.Output(), migrateUsage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("missing migrate action\n\n%s", migrateUsage)
	}
	if *dbPath == "" {
		return fmt.Errorf("migrate needs -db or PADSIM_DB")
	}

	action := fs.Arg(0)
	var target int
	switch action {
	case "up", "down", "status":
	case "version", "force":
		if fs.NArg() < 2 {
			return fmt.Errorf("usage: padsim migrate %s <version_number>", action)
		}
		n, err := strconv.Atoi(fs.Arg(1))
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number: %s", fs.Arg(1))
		}
		target = n
	default:
		return fmt.Errorf("unknown migrate action: %s\n\n%s", action, migrateUsage)
	}

	db, err := sqlite.OpenNoMigrate(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		monitoring.Logf("[migrate] running migrations")
		err = db.MigrateUp()
	case "down":
		monitoring.Logf("[migrate] rolling back one migration")
		err = db.MigrateDown()
	case "version":
		monitoring.Logf("[migrate] migrating to version %d", target)
		err = db.MigrateTo(uint(target))
	case "force":
		monitoring.Logf("[migrate] forcing version %d", target)
		err = db.MigrateForce(target)
	}
	if err != nil {
		return err
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(stdout, "version=%d dirty=%v\n", version, dirty)
	if dirty {
		fmt.Fprintln(stdout, "database is dirty: inspect it, then run 'padsim migrate force <version>'")
	}
	return nil
}
