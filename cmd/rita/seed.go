package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ritahq/rita/internal/config"
	"github.com/ritahq/rita/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo organization with owner, admin and member accounts",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const seedPassword = "Demo1234"

var demoAccounts = []struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}{
	{Email: "owner@demo.rita.dev", FirstName: "Olivia", LastName: "Nguyen", Role: "owner"},
	{Email: "admin@demo.rita.dev", FirstName: "Arjun", LastName: "Patel", Role: "admin"},
	{Email: "user@demo.rita.dev", FirstName: "Uma", LastName: "Keller", Role: "user"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool)

	// Check if seed has already run.
	exists, err := userStore.EmailExists(ctx, demoAccounts[0].Email)
	if err != nil {
		return fmt.Errorf("checking existing accounts: %w", err)
	}
	if exists {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	orgID := uuid.NewString()
	if _, err := pool.Exec(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2)`,
		orgID, "Demo Org",
	); err != nil {
		return fmt.Errorf("creating demo organization: %w", err)
	}

	var ownerID string
	for _, acct := range demoAccounts {
		p, err := userStore.Create(ctx, user.CreateProfileInput{
			Email:     acct.Email,
			Password:  seedPassword,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
		})
		if err != nil {
			return fmt.Errorf("creating account %q: %w", acct.Email, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO organization_members (organization_id, user_id, role, is_active)
			 VALUES ($1, $2, $3, true)`,
			orgID, p.ID, acct.Role,
		); err != nil {
			return fmt.Errorf("adding %q to organization: %w", acct.Email, err)
		}
		if _, err := pool.Exec(ctx,
			`UPDATE user_profiles SET active_organization_id = $1 WHERE id = $2`,
			orgID, p.ID,
		); err != nil {
			return fmt.Errorf("setting active organization for %q: %w", acct.Email, err)
		}
		slog.Info("created account", "email", p.Email, "role", acct.Role, "id", p.ID)
		if acct.Role == "owner" {
			ownerID = p.ID
		}
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO conversations (id, organization_id, user_id, title)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), orgID, ownerID, "Welcome to Rita",
	); err != nil {
		return fmt.Errorf("creating demo conversation: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Organization: Demo Org (%s)\n", orgID)
	fmt.Printf("Accounts:     %d created, password %q\n", len(demoAccounts), seedPassword)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":\"owner@demo.rita.dev\",\"password\":\"%s\"}'\n", seedPassword)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/organizations/%s/members\n", orgID)

	return nil
}
