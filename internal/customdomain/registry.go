package customdomain

import (
	"context"
	"errors"
	"strings"

	"linkhub/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrDomainExists is returned when the hostname is already
	// registered, by any user.
	ErrDomainExists = errors.New("domain already exists")

	// ErrRegistrationClaimed is returned when another request is
	// already registering the hostname at the provider.
	ErrRegistrationClaimed = errors.New("hostname registration already in progress")
)

// Registry provides persistence for custom domains, including the
// transactional default-domain invariant and the single-registration
// claim.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a new registry
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Create persists a new custom domain. Uniqueness of the hostname is
// enforced by the storage layer; duplicates surface as ErrDomainExists.
func (r *Registry) Create(ctx context.Context, d *model.CustomDomain) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDomainExists
		}
		return err
	}
	return nil
}

// GetByID returns a domain by id, gorm.ErrRecordNotFound when absent
func (r *Registry) GetByID(ctx context.Context, id int) (*model.CustomDomain, error) {
	var d model.CustomDomain
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByDomain returns a domain by its hostname (stored lowercased)
func (r *Registry) GetByDomain(ctx context.Context, domain string) (*model.CustomDomain, error) {
	var d model.CustomDomain
	err := r.db.WithContext(ctx).
		Where("domain = ?", strings.ToLower(domain)).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByUser returns a page of the user's domains plus the total count
func (r *Registry) ListByUser(ctx context.Context, userID, page, pageSize int) ([]model.CustomDomain, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.CustomDomain{}).Where("created_by = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.CustomDomain
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountByUser returns how many domains the user owns
func (r *Registry) CountByUser(ctx context.Context, userID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CustomDomain{}).
		Where("created_by = ?", userID).
		Count(&count).Error
	return count, err
}

// Update applies a field map to a domain row. After a hard delete the
// update affects zero rows and is silently lost, which is the accepted
// policy for verification racing deletion.
func (r *Registry) Update(ctx context.Context, id int, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.CustomDomain{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete hard-deletes a domain row
func (r *Registry) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Delete(&model.CustomDomain{}, id).Error
}

// GetDefault returns the user's default domain, nil when none is set
func (r *Registry) GetDefault(ctx context.Context, userID int) (*model.CustomDomain, error) {
	var d model.CustomDomain
	err := r.db.WithContext(ctx).
		Where("created_by = ? AND is_default = ?", userID, true).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SetDefault makes domainID the user's only default domain. Clearing
// the others and setting the new one happen in one transaction; the
// transaction boundary is the correctness mechanism under concurrent
// calls, not application-level locking.
func (r *Registry) SetDefault(ctx context.Context, domainID, userID int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CustomDomain{}).
			Where("created_by = ? AND id <> ?", userID, domainID).
			Update("is_default", false).Error; err != nil {
			return err
		}

		res := tx.Model(&model.CustomDomain{}).
			Where("id = ? AND created_by = ?", domainID, userID).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ClearDefault clears the user's default domain. A no-op when none is
// set.
func (r *Registry) ClearDefault(ctx context.Context, userID int) error {
	return r.db.WithContext(ctx).
		Model(&model.CustomDomain{}).
		Where("created_by = ?", userID).
		Update("is_default", false).Error
}

// ClaimRegistration claims the right to register the hostname at the
// provider. The optimistic single-row UPDATE guarantees only one of
// any number of concurrent verify calls wins the claim.
func (r *Registry) ClaimRegistration(ctx context.Context, domainID int) error {
	res := r.db.WithContext(ctx).
		Model(&model.CustomDomain{}).
		Where("id = ? AND registration_state = ?", domainID, model.RegistrationNone).
		Update("registration_state", model.RegistrationInProgress)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRegistrationClaimed
	}
	return nil
}

// ReleaseRegistration returns a failed claim so a later verify call can
// retry the provider registration.
func (r *Registry) ReleaseRegistration(ctx context.Context, domainID int) error {
	return r.db.WithContext(ctx).
		Model(&model.CustomDomain{}).
		Where("id = ? AND registration_state = ?", domainID, model.RegistrationInProgress).
		Update("registration_state", model.RegistrationNone).Error
}

// CompleteRegistration stores the provider registration result and
// marks the claim as done.
func (r *Registry) CompleteRegistration(ctx context.Context, domainID int, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["registration_state"] = model.RegistrationDone
	return r.Update(ctx, domainID, fields)
}

// isDuplicateKeyErr detects unique-constraint violations across MySQL
// (error 1062) and SQLite (used in tests).
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "1062") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
