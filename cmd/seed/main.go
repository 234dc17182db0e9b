package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"tell-all/pkg/config"
	"tell-all/pkg/database"
	"tell-all/pkg/logger"
	"tell-all/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var defaultTags = []string{"announcements", "culture", "golang", "opinion", "tutorials"}

type options struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	Tags          []string
}

func main() {
	var (
		username = flag.String("admin-username", "admin", "username of the seeded admin")
		email    = flag.String("admin-email", "admin@tell-all.com", "email of the seeded admin")
		tags     = flag.String("tags", strings.Join(defaultTags, ","), "comma-separated tag names to create")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Error("SEED_ADMIN_PASSWORD must be set")
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	opts := options{
		AdminUsername: *username,
		AdminEmail:    *email,
		AdminPassword: password,
		Tags:          splitTags(*tags),
	}
	if err := seedDatabase(context.Background(), db, opts, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

// seedDatabase creates the admin account and tags that are missing. Rows that
// already exist are left untouched.
func seedDatabase(ctx context.Context, db *gorm.DB, opts options, log *logger.Logger) error {
	db = db.WithContext(ctx)

	var existing models.User
	err := db.Where("email = ? OR username = ?", opts.AdminEmail, opts.AdminUsername).First(&existing).Error
	switch {
	case err == nil:
		log.Info("User %s already exists, skipping", existing.Username)
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		admin := &models.User{
			Email:     opts.AdminEmail,
			Username:  opts.AdminUsername,
			Password:  string(hashedPassword),
			FirstName: "Site",
			LastName:  "Admin",
			IsAdmin:   true,
			IsActive:  true,
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		log.Info("Created admin: %s (%s)", admin.Username, admin.Email)
	default:
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	for _, name := range opts.Tags {
		var tag models.Tag
		err := db.Where("name = ?", name).First(&tag).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up tag %s: %w", name, err)
		}
		if err := db.Create(&models.Tag{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to create tag %s: %w", name, err)
		}
		log.Info("Created tag: %s", name)
	}

	return nil
}

func splitTags(raw string) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	return tags
}
