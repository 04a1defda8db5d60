package model

import (
	"gorm.io/datatypes"
)

// VerificationPhase represents which stage of verification a custom
// domain is in. The phase only ever moves forward; a certificate that
// later expires changes SSLStatus, not the phase.
type VerificationPhase string

const (
	PhaseDNSVerification VerificationPhase = "dns_verification"
	PhaseCloudflareSSL   VerificationPhase = "cloudflare_ssl"
)

// OwnershipStatus mirrors the provider's ownership confirmation
type OwnershipStatus string

const (
	OwnershipPending  OwnershipStatus = "pending"
	OwnershipVerified OwnershipStatus = "verified"
)

// SSLStatus mirrors the custom-hostname API's certificate lifecycle
type SSLStatus string

const (
	SSLInitializing       SSLStatus = "initializing"
	SSLPendingValidation  SSLStatus = "pending_validation"
	SSLPendingIssuance    SSLStatus = "pending_issuance"
	SSLPendingDeployment  SSLStatus = "pending_deployment"
	SSLActive             SSLStatus = "active"
	SSLPendingExpiration  SSLStatus = "pending_expiration"
	SSLExpired            SSLStatus = "expired"
	SSLDeleted            SSLStatus = "deleted"
	SSLValidationTimedOut SSLStatus = "validation_timed_out"
)

// RegistrationState guards the single createHostname call per domain.
// Claimed with an optimistic single-row UPDATE so two concurrent verify
// calls cannot both register the hostname at the provider.
type RegistrationState string

const (
	RegistrationNone       RegistrationState = "none"
	RegistrationInProgress RegistrationState = "registering"
	RegistrationDone       RegistrationState = "registered"
)

// CustomDomain represents a user-owned hostname that short links can
// resolve under. One row per hostname, owned by exactly one user.
type CustomDomain struct {
	BaseModel
	Domain               string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"domain"`
	CreatedBy            int               `gorm:"index:idx_custom_domains_created_by;not null" json:"createdBy"`
	IsEnabled            bool              `gorm:"not null;default:true" json:"isEnabled"`
	IsDefault            bool              `gorm:"not null;default:false" json:"isDefault"`
	VerificationPhase    VerificationPhase `gorm:"type:varchar(32);default:'dns_verification'" json:"verificationPhase"`
	OwnershipTxtVerified bool              `gorm:"not null;default:false" json:"ownershipTxtVerified"`
	CnameVerified        bool              `gorm:"not null;default:false" json:"cnameVerified"`
	OwnershipStatus      OwnershipStatus   `gorm:"type:varchar(16);default:'pending'" json:"ownershipStatus"`
	SSLStatus            SSLStatus         `gorm:"type:varchar(32);default:'initializing'" json:"sslStatus"`

	// CloudflareHostnameID is null until the hostname is registered with
	// the provider, i.e. until the phase reaches cloudflare_ssl.
	CloudflareHostnameID *string           `gorm:"type:varchar(128);index:idx_custom_domains_cf_hostname_id" json:"cloudflareHostnameId"`
	RegistrationState    RegistrationState `gorm:"type:varchar(16);default:'none'" json:"-"`

	// Platform-chosen TXT record proving control of the domain.
	// Generated at creation and never changes.
	OwnershipValidationTxtName  string `gorm:"type:varchar(255);not null" json:"ownershipValidationTxtName"`
	OwnershipValidationTxtValue string `gorm:"type:varchar(255);not null" json:"ownershipValidationTxtValue"`

	// Provider-chosen TXT record for certificate validation; null until
	// the provider returns them.
	SSLValidationTxtName  *string `gorm:"type:varchar(255)" json:"sslValidationTxtName"`
	SSLValidationTxtValue *string `gorm:"type:varchar(255)" json:"sslValidationTxtValue"`

	// ValidationErrors holds provider error strings as a JSON array
	ValidationErrors datatypes.JSON `gorm:"type:json" json:"validationErrors"`
}

// TableName specifies the table name for CustomDomain model
func (CustomDomain) TableName() string {
	return "custom_domains"
}
