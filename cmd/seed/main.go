package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"replyflow/internal/app"
	"replyflow/internal/config"
	"replyflow/internal/repository"
	"replyflow/internal/service"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	tenantName    = flag.String("tenant", "Demo Shop", "Name of the tenant to create or reuse")
	instanceName  = flag.String("instance", "demo-shop", "Gateway session name for the tenant")
	contactsCount = flag.Int("contacts", 12, "Number of contacts to create")
	creditsLimit  = flag.Int("credits", 500, "Credit limit for a newly created tenant")
	clearData     = flag.Bool("clear", false, "Clear existing seed contacts before inserting")
	showHelp      = flag.Bool("help", false, "Show usage information")
)

var firstNames = []string{"Amina", "Brian", "Cynthia", "Daniel", "Esther", "Felix", "Grace", "Hassan", "Irene", "James", "Kendi", "Lucy", "Moses", "Njeri", "Otieno"}

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== ReplyFlow Database Seeder ===\n")

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

	ctx := context.Background()

	tenantID, err := ensureTenant(ctx, db, *tenantName, *creditsLimit)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed tenant: %v", err))
		os.Exit(1)
	}

	if *clearData {
		if err := clearSeedContacts(ctx, db, tenantID); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
	}

	if err := ensureInstance(ctx, db, tenantID, *instanceName); err != nil {
		printError(fmt.Sprintf("Failed to seed instance: %v", err))
		os.Exit(1)
	}

	contactsCreated, err := seedContacts(ctx, repository.NewContactRepository(db), tenantID, *contactsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed contacts: %v", err))
		os.Exit(1)
	}

	seeded, err := ensureDefaultSequence(ctx, db, tenantID)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed default sequence: %v", err))
		os.Exit(1)
	}

	printInfo("\n=== Seeding Summary ===")
	printSuccess(fmt.Sprintf("✓ Tenant: %s (id %d)", *tenantName, tenantID))
	printSuccess(fmt.Sprintf("✓ Instance: %s", *instanceName))
	printSuccess(fmt.Sprintf("✓ Contacts: %d", contactsCreated))
	if seeded {
		printSuccess("✓ Default follow-up sequence created")
	} else {
		printWarning("• Default follow-up sequence already present")
	}
	printInfo("\nSeeding completed successfully!")
}

// ensureTenant returns the id of the tenant named name, creating it when missing
func ensureTenant(ctx context.Context, db *sql.DB, name string, limit int) (int, error) {
	var id int
	err := db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE name = $1 ORDER BY id LIMIT 1`, name).Scan(&id)
	if err == nil {
		printWarning(fmt.Sprintf("• Reusing tenant %q", name))
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	err = db.QueryRowContext(ctx,
		`INSERT INTO tenants (name, credits_limit) VALUES ($1, $2) RETURNING id`,
		name, limit,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tenant: %w", err)
	}
	printSuccess(fmt.Sprintf("✓ Created tenant %q", name))
	return id, nil
}

// ensureInstance registers the session as working so dispatch can pick it up
func ensureInstance(ctx context.Context, db *sql.DB, tenantID int, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO instances (id, tenant_id, status)
		VALUES ($1, $2, 'WORKING')
		ON CONFLICT (id) DO NOTHING
	`, name, tenantID)
	return err
}

// seedContacts creates contacts with phones 2547000200NN. Every fifth one has no name.
func seedContacts(ctx context.Context, contacts repository.ContactRepository, tenantID, count int) (int, error) {
	printInfo(fmt.Sprintf("Seeding %d contacts...", count))

	for i := 1; i <= count; i++ {
		phone := fmt.Sprintf("2547000200%02d", i)

		var name *string
		if i%5 != 0 {
			n := firstNames[i%len(firstNames)]
			name = &n
		}

		if _, err := contacts.FindOrCreateByPhone(ctx, tenantID, phone, name); err != nil {
			return i - 1, fmt.Errorf("failed to insert contact %s: %w", phone, err)
		}
	}

	return count, nil
}

// ensureDefaultSequence seeds the default follow-up sequence unless the tenant has one
func ensureDefaultSequence(ctx context.Context, db *sql.DB, tenantID int) (bool, error) {
	sequences := repository.NewSequenceRepository(db)
	_, err := sequences.GetDefault(ctx, tenantID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	engine := service.NewSequenceService(sequences, repository.NewContactRepository(db))
	if _, err := engine.SeedDefaultSequence(ctx, tenantID); err != nil {
		return false, err
	}
	return true, nil
}

// clearSeedContacts removes contacts created by this seeder
func clearSeedContacts(ctx context.Context, db *sql.DB, tenantID int) error {
	printWarning("Clearing existing seed contacts...")

	result, err := db.ExecContext(ctx, `DELETE FROM contacts WHERE tenant_id = $1 AND phone LIKE '2547000200%'`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete contacts: %w", err)
	}

	deleted, _ := result.RowsAffected()
	printSuccess(fmt.Sprintf("✓ Removed %d contacts\n", deleted))
	return nil
}

// printSuccess prints a success message in green
func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

// printError prints an error message in red
func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

// printInfo prints an info message in cyan
func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

// printWarning prints a warning message in yellow
func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

// printUsage displays usage information
func printUsage() {
	printInfo("=== ReplyFlow Database Seeder ===\n")
	fmt.Println("Usage: go run ./cmd/seed [flags]")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./cmd/seed")
	fmt.Println("  go run ./cmd/seed -tenant=\"Kibanda Cafe\" -instance=kibanda -contacts=30")
	fmt.Println("  go run ./cmd/seed -clear")
	fmt.Println("\nNotes:")
	fmt.Println("  - Contacts use phone pattern 2547000200NN")
	fmt.Println("  - The seeder is idempotent, running it twice creates no duplicates")
}
