package customdomain

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkhub/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.CustomDomain{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, plan model.UserPlan) *model.User {
	t.Helper()

	user := &model.User{
		Username:     "user-" + string(plan),
		PasswordHash: "x",
		Role:         "user",
		Plan:         plan,
		Status:       model.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedDomain(t *testing.T, db *gorm.DB, userID int, domain string, mutate func(*model.CustomDomain)) *model.CustomDomain {
	t.Helper()

	d := &model.CustomDomain{
		Domain:                      domain,
		CreatedBy:                   userID,
		IsEnabled:                   true,
		VerificationPhase:           model.PhaseDNSVerification,
		OwnershipStatus:             model.OwnershipPending,
		SSLStatus:                   model.SSLInitializing,
		RegistrationState:           model.RegistrationNone,
		OwnershipValidationTxtName:  "_linkhub-verify." + domain,
		OwnershipValidationTxtValue: "linkhub-verify=token-" + domain,
	}
	if mutate != nil {
		mutate(d)
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("failed to seed domain %s: %v", domain, err)
	}
	return d
}
