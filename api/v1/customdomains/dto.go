package customdomains

import (
	"encoding/json"
	"time"

	"linkhub/internal/model"
)

// CustomDomainDTO is the API shape of a custom domain. Internal
// bookkeeping like the registration claim never leaves this layer.
type CustomDomainDTO struct {
	ID                          int       `json:"id"`
	Domain                      string    `json:"domain"`
	IsEnabled                   bool      `json:"isEnabled"`
	IsDefault                   bool      `json:"isDefault"`
	VerificationPhase           string    `json:"verificationPhase"`
	OwnershipTxtVerified        bool      `json:"ownershipTxtVerified"`
	CnameVerified               bool      `json:"cnameVerified"`
	OwnershipStatus             string    `json:"ownershipStatus"`
	SSLStatus                   string    `json:"sslStatus"`
	OwnershipValidationTxtName  string    `json:"ownershipValidationTxtName"`
	OwnershipValidationTxtValue string    `json:"ownershipValidationTxtValue"`
	SSLValidationTxtName        *string   `json:"sslValidationTxtName"`
	SSLValidationTxtValue       *string   `json:"sslValidationTxtValue"`
	ValidationErrors            []string  `json:"validationErrors"`
	CreatedAt                   time.Time `json:"createdAt"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

// toDTO converts a model to its API shape
func toDTO(d *model.CustomDomain) CustomDomainDTO {
	var validationErrors []string
	if len(d.ValidationErrors) > 0 {
		_ = json.Unmarshal(d.ValidationErrors, &validationErrors)
	}

	return CustomDomainDTO{
		ID:                          d.ID,
		Domain:                      d.Domain,
		IsEnabled:                   d.IsEnabled,
		IsDefault:                   d.IsDefault,
		VerificationPhase:           string(d.VerificationPhase),
		OwnershipTxtVerified:        d.OwnershipTxtVerified,
		CnameVerified:               d.CnameVerified,
		OwnershipStatus:             string(d.OwnershipStatus),
		SSLStatus:                   string(d.SSLStatus),
		OwnershipValidationTxtName:  d.OwnershipValidationTxtName,
		OwnershipValidationTxtValue: d.OwnershipValidationTxtValue,
		SSLValidationTxtName:        d.SSLValidationTxtName,
		SSLValidationTxtValue:       d.SSLValidationTxtValue,
		ValidationErrors:            validationErrors,
		CreatedAt:                   d.CreatedAt,
		UpdatedAt:                   d.UpdatedAt,
	}
}

func toDTOs(items []model.CustomDomain) []CustomDomainDTO {
	dtos := make([]CustomDomainDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, toDTO(&items[i]))
	}
	return dtos
}

// CreateRequest represents the request body for attaching a domain
type CreateRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// EnableRequest represents the request body for toggling a domain
type EnableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
