package customdomain

import (
	"linkhub/internal/model"
)

// Validity reasons, in evaluation order. The first failing check wins
// so the reason string is stable and debuggable.
const (
	ReasonDisabled             = "Domain is disabled"
	ReasonCnameNotVerified     = "CNAME record not verified"
	ReasonOwnershipNotVerified = "Ownership not verified"
	ReasonSSLNotActive         = "SSL certificate not active"
)

// Verdict is the outcome of the usable-for-routing evaluation
type Verdict struct {
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason,omitempty"`
}

// EvaluateValidity decides whether a domain may serve traffic. Pure
// function of the four inputs; used both by the public resolve
// endpoint and before a domain may become the user's default.
func EvaluateValidity(isEnabled, cnameVerified bool, ownership model.OwnershipStatus, ssl model.SSLStatus) Verdict {
	if !isEnabled {
		return Verdict{IsValid: false, Reason: ReasonDisabled}
	}
	if !cnameVerified {
		return Verdict{IsValid: false, Reason: ReasonCnameNotVerified}
	}
	if ownership != model.OwnershipVerified {
		return Verdict{IsValid: false, Reason: ReasonOwnershipNotVerified}
	}
	if ssl != model.SSLActive {
		return Verdict{IsValid: false, Reason: ReasonSSLNotActive}
	}
	return Verdict{IsValid: true}
}

// DomainValidity evaluates a domain record
func DomainValidity(d *model.CustomDomain) Verdict {
	return EvaluateValidity(d.IsEnabled, d.CnameVerified, d.OwnershipStatus, d.SSLStatus)
}
