// Package seed creates the default administrator account on first run.
package seed

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/hash"
	"github.com/vcms-io/vcms/internal/models"
)

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// EnsureAdmin creates the default admin user unless some admin already
// exists. Safe to run on every startup.
func EnsureAdmin(db *gorm.DB, l *slog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	pwHash, err := hash.HashPassword(DefaultAdminPassword)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     DefaultAdminUsername,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
		CompanyName:  "System Admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	l.Info("default admin user created", "username", DefaultAdminUsername)
	return nil
}
