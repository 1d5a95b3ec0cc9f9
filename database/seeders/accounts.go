package seeders

import (
	"log"
	"os"

	"fleet-dispatch/constants"
	userModel "fleet-dispatch/models/user"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAccounts creates one starter account per role when the users table is
// empty. The shared initial password comes from SEED_PASSWORD and must be
// rotated on first login.
func SeedAccounts(db *gorm.DB) {
	var userCount int64
	if err := db.Model(&userModel.User{}).Count(&userCount).Error; err != nil {
		log.Printf("❌ Failed to count users: %v", err)
		return
	}
	if userCount > 0 {
		return
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		log.Printf("⚠️ SEED_PASSWORD not set, skipping account seeding")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash seed password: %v", err)
		return
	}

	users := []userModel.User{
		{Username: "admin", LegalName: "Fleet Administrator", PasswordHash: string(hash),
			Permissions: userModel.StringSlice{constants.PermAdminFull}},
		{Username: "dispatch", LegalName: "Dispatch Officer", PasswordHash: string(hash),
			Permissions: userModel.StringSlice{constants.PermDispatchFull}},
		{Username: "employee", LegalName: "Sample Employee", PasswordHash: string(hash),
			Permissions: userModel.StringSlice{constants.PermEmployeeFull}},
	}

	if err := db.Create(&users).Error; err != nil {
		log.Printf("❌ Failed to seed accounts: %v", err)
		return
	}
	log.Printf("✅ Seeded %d role accounts", len(users))
}
