// Command admin manages account roles from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"techatlas/internal/config"
	"techatlas/internal/database"
	"techatlas/internal/models"
	"techatlas/internal/repository"
)

const usage = `Usage:
  go run ./cmd/admin promote <user_id|email>          - Make a user an admin
  go run ./cmd/admin demote <user_id|email>           - Reset a user to the user role
  go run ./cmd/admin set-role <user_id|email> <role>  - Assign user, moderator, editor or admin
  go run ./cmd/admin list-admins                      - List staff accounts`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "promote":
		requireArgs(3)
		setRole(ctx, users, os.Args[2], string(models.RoleAdmin))
	case "demote":
		requireArgs(3)
		setRole(ctx, users, os.Args[2], string(models.RoleUser))
	case "set-role":
		requireArgs(4)
		setRole(ctx, users, os.Args[2], os.Args[3])
	case "list-admins":
		listStaff(ctx, users)
	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}
}

func requireArgs(n int) {
	if len(os.Args) < n {
		fmt.Println(usage)
		os.Exit(1)
	}
}

func findUser(ctx context.Context, users repository.UserRepository, ref string) (*models.User, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return users.GetByID(ctx, uint(id))
	}
	return users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(ref)))
}

func setRole(ctx context.Context, users repository.UserRepository, ref, raw string) {
	role, ok := models.ParseRole(raw)
	if !ok {
		log.Fatalf("Unknown role %q (expected one of %v)", raw, models.Roles())
	}

	user, err := findUser(ctx, users, ref)
	if err != nil {
		log.Fatalf("Lookup failed for %s: %v", ref, err)
	}
	if user == nil {
		log.Fatalf("No user found for %s", ref)
	}
	if user.Role == role {
		fmt.Printf("%s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return
	}
	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Updated %s (ID: %d): %s -> %s\n", user.Username, user.ID, user.Role, role)
}

func listStaff(ctx context.Context, users repository.UserRepository) {
	found := 0
	for _, role := range []models.Role{models.RoleAdmin, models.RoleEditor, models.RoleModerator} {
		list, err := users.List(ctx, role, 100, 0)
		if err != nil {
			log.Fatalf("Failed to fetch %s accounts: %v", role, err)
		}
		for _, u := range list {
			fmt.Printf("%-9s | ID: %d | Username: %s | Email: %s\n", role, u.ID, u.Username, u.Email)
			found++
		}
	}
	if found == 0 {
		fmt.Println("No staff accounts found")
	}
}
