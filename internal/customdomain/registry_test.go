package customdomain

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"linkhub/internal/model"
)

func TestRegistry_CreateDuplicate(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	user := seedUser(t, db, model.UserPlanPro)

	seedDomain(t, db, user.ID, "links.example.com", nil)

	dup := &model.CustomDomain{
		Domain:                      "links.example.com",
		CreatedBy:                   user.ID + 1,
		OwnershipValidationTxtName:  "_linkhub-verify.links.example.com",
		OwnershipValidationTxtValue: "linkhub-verify=other",
	}
	err := reg.Create(ctx, dup)
	if !errors.Is(err, ErrDomainExists) {
		t.Errorf("Expected ErrDomainExists, got %v", err)
	}
}

func TestRegistry_SetDefault_ExactlyOne(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	user := seedUser(t, db, model.UserPlanPro)

	a := seedDomain(t, db, user.ID, "a.example.com", nil)
	b := seedDomain(t, db, user.ID, "b.example.com", nil)

	if err := reg.SetDefault(ctx, a.ID, user.ID); err != nil {
		t.Fatalf("SetDefault(a) failed: %v", err)
	}
	if err := reg.SetDefault(ctx, b.ID, user.ID); err != nil {
		t.Fatalf("SetDefault(b) failed: %v", err)
	}
	if err := reg.SetDefault(ctx, a.ID, user.ID); err != nil {
		t.Fatalf("SetDefault(a) again failed: %v", err)
	}

	var defaults int64
	if err := db.Model(&model.CustomDomain{}).
		Where("created_by = ? AND is_default = ?", user.ID, true).
		Count(&defaults).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default domain, got %d", defaults)
	}

	got, err := reg.GetDefault(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Errorf("Expected domain a to be default, got %+v", got)
	}
}

func TestRegistry_SetDefault_WrongOwner(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	owner := seedUser(t, db, model.UserPlanPro)

	d := seedDomain(t, db, owner.ID, "links.example.com", nil)

	err := reg.SetDefault(ctx, d.ID, owner.ID+99)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Expected gorm.ErrRecordNotFound for foreign domain, got %v", err)
	}
}

func TestRegistry_ClearDefault_NoopWhenNoneSet(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	user := seedUser(t, db, model.UserPlanPro)

	seedDomain(t, db, user.ID, "links.example.com", nil)

	if err := reg.ClearDefault(ctx, user.ID); err != nil {
		t.Errorf("ClearDefault with no default should succeed, got %v", err)
	}
}

func TestRegistry_ClaimRegistration(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	user := seedUser(t, db, model.UserPlanPro)

	d := seedDomain(t, db, user.ID, "links.example.com", nil)

	if err := reg.ClaimRegistration(ctx, d.ID); err != nil {
		t.Fatalf("first claim should win: %v", err)
	}

	// A second concurrent claim loses
	if err := reg.ClaimRegistration(ctx, d.ID); !errors.Is(err, ErrRegistrationClaimed) {
		t.Errorf("Expected ErrRegistrationClaimed, got %v", err)
	}

	// Releasing reopens the claim
	if err := reg.ReleaseRegistration(ctx, d.ID); err != nil {
		t.Fatalf("ReleaseRegistration failed: %v", err)
	}
	if err := reg.ClaimRegistration(ctx, d.ID); err != nil {
		t.Errorf("claim after release should win: %v", err)
	}

	// Completing closes the claim for good
	if err := reg.CompleteRegistration(ctx, d.ID, map[string]interface{}{
		"cloudflare_hostname_id": "ch-1",
	}); err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}
	if err := reg.ClaimRegistration(ctx, d.ID); !errors.Is(err, ErrRegistrationClaimed) {
		t.Errorf("Expected ErrRegistrationClaimed after completion, got %v", err)
	}
}

func TestRegistry_UpdateAfterDeleteIsLost(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	user := seedUser(t, db, model.UserPlanPro)

	d := seedDomain(t, db, user.ID, "links.example.com", nil)

	if err := reg.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// An in-flight verification write after the delete affects zero
	// rows and must not error.
	if err := reg.Update(ctx, d.ID, map[string]interface{}{
		"ownership_txt_verified": true,
	}); err != nil {
		t.Errorf("Update after delete should be silently lost, got %v", err)
	}

	if _, err := reg.GetByID(ctx, d.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestRegistry_ListByUser_ScopedAndPaginated(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ctx := context.Background()
	alice := seedUser(t, db, model.UserPlanPro)
	bob := seedUser(t, db, model.UserPlanBusiness)

	seedDomain(t, db, alice.ID, "a1.example.com", nil)
	seedDomain(t, db, alice.ID, "a2.example.com", nil)
	seedDomain(t, db, alice.ID, "a3.example.com", nil)
	seedDomain(t, db, bob.ID, "b1.example.com", nil)

	items, total, err := reg.ListByUser(ctx, alice.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items on page 1, got %d", len(items))
	}
	for _, it := range items {
		if it.CreatedBy != alice.ID {
			t.Errorf("List leaked a foreign domain: %+v", it)
		}
	}

	items, _, err = reg.ListByUser(ctx, alice.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListByUser page 2 failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item on page 2, got %d", len(items))
	}
}
