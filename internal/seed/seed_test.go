package seed_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stockpulse/stockpulse/internal/db"
	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stockpulse/stockpulse/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func seedDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func TestEnsureAdmin(t *testing.T) {
	gdb := seedDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := seed.AdminOptions{
		Email:       "admin@acme.test",
		Password:    "seed-password",
		CompanyName: "Acme",
	}

	require.NoError(t, seed.EnsureAdmin(context.Background(), gdb, opts, log))

	var company model.Company
	require.NoError(t, gdb.First(&company).Error)
	assert.Equal(t, "Acme", company.Name)

	var user model.User
	require.NoError(t, gdb.First(&user).Error)
	assert.Equal(t, "admin@acme.test", user.Email)
	require.NotNil(t, user.CompanyID)
	assert.Equal(t, company.ID, *user.CompanyID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("seed-password")))
	assert.Contains(t, user.Roles, "Admin")
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	gdb := seedDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := seed.AdminOptions{Email: "admin@acme.test", Password: "pw", CompanyName: "Acme"}

	require.NoError(t, seed.EnsureAdmin(context.Background(), gdb, opts, log))
	require.NoError(t, seed.EnsureAdmin(context.Background(), gdb, opts, log))

	var users, companies int64
	require.NoError(t, gdb.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, gdb.Model(&model.Company{}).Count(&companies).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, companies)
}
