package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"replyflow/internal/app"
	"replyflow/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const (
	migrationsDir = "migrations"
	seedsDir      = "migrations/seed"
)

var (
	migrationPattern = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.up\.sql$`)
	seedPattern      = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.sql$`)
)

// Migration is one versioned schema change with its rollback
type Migration struct {
	Version   int
	Name      string
	UpPath    string
	DownPath  string
	Applied   bool
	AppliedAt *time.Time
}

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up", "down", "status", "reset", "seed":
	default:
		printUsage()
		if command != "help" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	printInfo("=== ReplyFlow Migration Runner ===\n")

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	printInfo("Connecting to database...")
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	defer db.Close()
	printSuccess("✓ Connected to database\n")

	if err := createMigrationTable(db); err != nil {
		printError(fmt.Sprintf("Failed to create migration table: %v", err))
		os.Exit(1)
	}

	commands := map[string]func(*sql.DB) error{
		"up":     runUp,
		"down":   runDown,
		"status": showMigrationStatus,
		"reset":  runReset,
		"seed":   runSeeds,
	}
	if err := commands[command](db); err != nil {
		printError(fmt.Sprintf("%s failed: %v", command, err))
		os.Exit(1)
	}

	printInfo("\n✨ Operation completed successfully!")
}

// createMigrationTable creates the schema_migrations tracking table
func createMigrationTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations retrieves all applied migrations from database
func getAppliedMigrations(db *sql.DB) (map[int]Migration, error) {
	rows, err := db.Query(`SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		m.Applied = true
		applied[m.Version] = m
	}

	return applied, rows.Err()
}

// getMigrationFiles lists NNN_name.up.sql files in version order. A missing
// NNN_name.down.sql leaves DownPath empty.
func getMigrationFiles(dir string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	seen := map[int]string{}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}

		version, _ := strconv.Atoi(matches[1])
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %03d used by both %s and %s", version, other, file.Name())
		}
		seen[version] = file.Name()

		m := Migration{
			Version: version,
			Name:    matches[2],
			UpPath:  filepath.Join(dir, file.Name()),
		}
		down := filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", matches[1], matches[2]))
		if _, err := os.Stat(down); err == nil {
			m.DownPath = down
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// getSeedFiles lists NNN_name.sql seed files in order
func getSeedFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory: %w", err)
	}

	var seeds []string
	for _, file := range files {
		if !file.IsDir() && seedPattern.MatchString(file.Name()) {
			seeds = append(seeds, filepath.Join(dir, file.Name()))
		}
	}
	sort.Strings(seeds)
	return seeds, nil
}

// pendingMigrations returns the migrations not yet recorded as applied
func pendingMigrations(all []Migration, applied map[int]Migration) []Migration {
	var pending []Migration
	for _, m := range all {
		if _, ok := applied[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending
}

// runUp applies all pending migrations
func runUp(db *sql.DB) error {
	printInfo("Running pending migrations...\n")

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	migrations, err := getMigrationFiles(migrationsDir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		printWarning("No migration files found in migrations/ directory")
		return nil
	}

	pending := pendingMigrations(migrations, applied)
	if len(pending) == 0 {
		printSuccess("✓ All migrations are up to date")
		return nil
	}

	for _, m := range pending {
		printInfo(fmt.Sprintf("Applying migration %03d_%s...", m.Version, m.Name))
		err := execFile(db, m.UpPath, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Version, m.Name)
		if err != nil {
			return fmt.Errorf("failed to apply migration %03d_%s: %w", m.Version, m.Name, err)
		}
		printSuccess(fmt.Sprintf("  ✓ Migration %03d applied successfully", m.Version))
	}

	printSuccess(fmt.Sprintf("\n✓ Successfully applied %d migration(s)", len(pending)))
	return nil
}

// execFile runs a SQL file and its bookkeeping statement in one transaction
func execFile(db *sql.DB, path, record string, args ...interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", filepath.Base(path), err)
	}
	if _, err := tx.Exec(record, args...); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// runDown rolls back the last applied migration
func runDown(db *sql.DB) error {
	printInfo("Rolling back last migration...\n")

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		printWarning("No migrations to rollback")
		return nil
	}

	var last int
	for version := range applied {
		if version > last {
			last = version
		}
	}
	return rollbackMigration(db, last)
}

// rollbackMigration runs the down file of one applied migration
func rollbackMigration(db *sql.DB, version int) error {
	migrations, err := getMigrationFiles(migrationsDir)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version != version {
			continue
		}
		if m.DownPath == "" {
			return fmt.Errorf("no rollback defined for migration version %03d", version)
		}

		printInfo(fmt.Sprintf("Rolling back migration %03d_%s...", m.Version, m.Name))
		if err := execFile(db, m.DownPath, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
			return fmt.Errorf("failed to rollback migration %03d_%s: %w", m.Version, m.Name, err)
		}
		printSuccess(fmt.Sprintf("  ✓ Migration %03d rolled back", version))
		return nil
	}

	return fmt.Errorf("migration file for version %03d not found", version)
}

// runReset rolls back all migrations and reapplies them
func runReset(db *sql.DB) error {
	printWarning("Resetting database (rollback all + reapply all)...\n")

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}

	versions := make([]int, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for _, version := range versions {
		if err := rollbackMigration(db, version); err != nil {
			return err
		}
	}
	if len(versions) > 0 {
		printSuccess("\n✓ All migrations rolled back\n")
	}

	printInfo("Reapplying all migrations...")
	return runUp(db)
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(db *sql.DB) error {
	printInfo("Migration Status:\n")

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	migrations, err := getMigrationFiles(migrationsDir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		printWarning("No migration files found in migrations/ directory")
		return nil
	}

	fmt.Printf("%s%-10s %-40s %-12s %-20s%s\n",
		colorBold, "VERSION", "NAME", "STATUS", "APPLIED AT", colorReset)
	fmt.Println(strings.Repeat("-", 85))

	appliedCount := 0
	for _, m := range migrations {
		status, statusColor, appliedAt := "pending", colorYellow, "-"
		if a, ok := applied[m.Version]; ok {
			appliedCount++
			status, statusColor = "applied", colorGreen
			if a.AppliedAt != nil {
				appliedAt = a.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Printf("%-10s %-40s %s%-12s%s %-20s\n",
			fmt.Sprintf("%03d", m.Version), m.Name, statusColor, status, colorReset, appliedAt)
	}

	fmt.Println(strings.Repeat("-", 85))
	printInfo(fmt.Sprintf("\nSummary: %d/%d migrations applied", appliedCount, len(migrations)))
	return nil
}

// runSeeds executes SQL seed files. Seeds are not tracked and must be idempotent.
func runSeeds(db *sql.DB) error {
	printInfo("Running seed files...\n")

	seeds, err := getSeedFiles(seedsDir)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		printWarning("No seed files found in migrations/seed/ directory")
		return nil
	}

	for _, path := range seeds {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute seed %s: %w", filepath.Base(path), err)
		}
		printSuccess(fmt.Sprintf("  ✓ Seed %s applied", filepath.Base(path)))
	}

	printSuccess(fmt.Sprintf("\n✓ Successfully ran %d seed file(s)", len(seeds)))
	return nil
}

// Helper functions for colored output

func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

func printUsage() {
	printInfo("=== ReplyFlow Migration Runner ===\n")
	fmt.Println("Usage: go run ./cmd/migrate [command]")
	fmt.Println("\nCommands:")
	fmt.Println("  up       - Apply all pending migrations")
	fmt.Println("  down     - Rollback the last applied migration")
	fmt.Println("  status   - Show current migration status")
	fmt.Println("  reset    - Rollback all migrations and reapply them")
	fmt.Println("  seed     - Run SQL seed files")
	fmt.Println("  help     - Show this help message")
	fmt.Println("\nMigration Files:")
	fmt.Println("  Schema:  migrations/NNN_name.up.sql with an optional NNN_name.down.sql")
	fmt.Println("  Seeds:   migrations/seed/NNN_name.sql")
}
