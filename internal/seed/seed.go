// Package seed creates a default tenant and admin user on first boot when
// the users table is empty.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/stockpulse/stockpulse/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminOptions configures the seed admin user and its company.
type AdminOptions struct {
	Email       string
	Password    string // if empty, a random password is generated
	CompanyName string
}

// EnsureAdmin creates a seed company plus admin user if no users exist.
// A generated password is printed to stdout exactly once. The function is
// idempotent and safe to call on every startup.
func EnsureAdmin(ctx context.Context, db *gorm.DB, opts AdminOptions, log *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info("seed admin already exists")
		return nil
	}

	password := opts.Password
	if password == "" {
		var err error
		password, err = generatePassword()
		if err != nil {
			return fmt.Errorf("generate seed password: %w", err)
		}
		fmt.Printf("[stockpulse] seed admin password: %s\n", password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	company := &model.Company{
		Name:  opts.CompanyName,
		Email: opts.Email,
	}
	if err := db.WithContext(ctx).Create(company).Error; err != nil {
		return fmt.Errorf("insert seed company: %w", err)
	}

	u := &model.User{
		CompanyID:    &company.ID,
		Email:        opts.Email,
		Name:         "Seed Admin",
		PasswordHash: string(hash),
		Roles:        model.StringSlice{"Admin"},
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("insert seed admin: %w", err)
	}

	log.Info("seed admin created", "email", opts.Email, "company", opts.CompanyName)
	return nil
}

func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
