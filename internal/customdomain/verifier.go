package customdomain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"linkhub/internal/dnslookup"
	"linkhub/internal/hostnames"
	"linkhub/internal/model"
)

// Verification steps
const (
	StepOwnership = "ownership"
	StepCname     = "cname"
)

// FailureKind classifies a verification failure
type FailureKind string

const (
	FailureRecordNotFound FailureKind = "record_not_found"
	FailureRecordMismatch FailureKind = "record_mismatch"
	FailureLookupError    FailureKind = "lookup_failed"
)

// VerificationError reports a failed DNS check. The domain record is
// never mutated on failure; the user fixes DNS and retries the same
// endpoint.
type VerificationError struct {
	Step    string
	Kind    FailureKind
	Message string
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	return e.Message
}

// Verifier drives a domain through ownership-TXT check, CNAME check,
// provider hostname registration, and SSL polling. Every step is
// idempotent: repeating a successful check is a no-op, and the
// hostname registration happens at most once per domain.
type Verifier struct {
	registry    *Registry
	resolver    dnslookup.Resolver
	hostnames   hostnames.Client
	cnameTarget string
	logger      *logrus.Entry
}

// VerifierConfig holds the collaborators of a Verifier
type VerifierConfig struct {
	Registry    *Registry
	Resolver    dnslookup.Resolver
	Hostnames   hostnames.Client
	CNAMETarget string
	Logger      *logrus.Entry
}

// NewVerifier creates a new verification orchestrator
func NewVerifier(cfg *VerifierConfig) *Verifier {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Verifier{
		registry:    cfg.Registry,
		resolver:    cfg.Resolver,
		hostnames:   cfg.Hostnames,
		cnameTarget: cfg.CNAMETarget,
		logger:      logger.WithField("component", "domain-verifier"),
	}
}

// VerifyOwnership runs the ownership TXT check and, once both DNS
// checks have passed, registers the hostname at the provider. Once the
// domain is in the SSL phase this call polls the provider instead and
// no longer touches the DNS flags.
func (v *Verifier) VerifyOwnership(ctx context.Context, d *model.CustomDomain) (*model.CustomDomain, error) {
	if d.VerificationPhase == model.PhaseCloudflareSSL {
		return v.refreshSSL(ctx, d)
	}

	if d.OwnershipTxtVerified {
		// Already confirmed: no lookup, just a chance to complete the
		// phase transition if the CNAME check finished in the meantime.
		return v.maybeRegister(ctx, d)
	}

	records, err := v.resolver.LookupTXT(ctx, d.OwnershipValidationTxtName)
	if err != nil {
		if errors.Is(err, dnslookup.ErrNoRecord) {
			return nil, &VerificationError{
				Step: StepOwnership,
				Kind: FailureRecordNotFound,
				Message: fmt.Sprintf("no TXT record found at %s, please add the verification record",
					d.OwnershipValidationTxtName),
			}
		}
		return nil, &VerificationError{
			Step:    StepOwnership,
			Kind:    FailureLookupError,
			Message: err.Error(),
		}
	}

	matched := false
	for _, rec := range records {
		// Exact match only, no substring or case folding
		if rec == d.OwnershipValidationTxtValue {
			matched = true
			break
		}
	}
	if !matched {
		return nil, &VerificationError{
			Step: StepOwnership,
			Kind: FailureRecordMismatch,
			Message: fmt.Sprintf("TXT record found at %s but does not match the expected value",
				d.OwnershipValidationTxtName),
		}
	}

	if err := v.registry.Update(ctx, d.ID, map[string]interface{}{
		"ownership_txt_verified": true,
	}); err != nil {
		return nil, err
	}
	d.OwnershipTxtVerified = true

	v.logger.WithFields(logrus.Fields{
		"domain": d.Domain,
		"user":   d.CreatedBy,
	}).Info("ownership TXT record verified")

	return v.maybeRegister(ctx, d)
}

// VerifyCname runs the CNAME routing check. A no-op when already
// verified.
func (v *Verifier) VerifyCname(ctx context.Context, d *model.CustomDomain) (*model.CustomDomain, error) {
	if d.CnameVerified {
		return v.maybeRegister(ctx, d)
	}

	targets, err := v.resolver.LookupCNAME(ctx, d.Domain)
	if err != nil {
		if errors.Is(err, dnslookup.ErrNoRecord) {
			return nil, &VerificationError{
				Step: StepCname,
				Kind: FailureRecordNotFound,
				Message: fmt.Sprintf("no CNAME record found for %s, please point it at %s",
					d.Domain, v.cnameTarget),
			}
		}
		return nil, &VerificationError{
			Step:    StepCname,
			Kind:    FailureLookupError,
			Message: err.Error(),
		}
	}

	matched := false
	for _, target := range targets {
		if strings.EqualFold(strings.TrimSuffix(target, "."), v.cnameTarget) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, &VerificationError{
			Step: StepCname,
			Kind: FailureRecordMismatch,
			Message: fmt.Sprintf("CNAME record for %s points at %s, expected %s",
				d.Domain, strings.Join(targets, ", "), v.cnameTarget),
		}
	}

	if err := v.registry.Update(ctx, d.ID, map[string]interface{}{
		"cname_verified": true,
	}); err != nil {
		return nil, err
	}
	d.CnameVerified = true

	v.logger.WithFields(logrus.Fields{
		"domain": d.Domain,
		"user":   d.CreatedBy,
	}).Info("CNAME record verified")

	return v.maybeRegister(ctx, d)
}

// maybeRegister performs the phase transition once both DNS checks have
// passed. The registry claim guarantees CreateHostname is called at
// most once per domain even under concurrent verify calls; the loser
// simply observes the current state on its next poll.
func (v *Verifier) maybeRegister(ctx context.Context, d *model.CustomDomain) (*model.CustomDomain, error) {
	if d.VerificationPhase != model.PhaseDNSVerification ||
		!d.OwnershipTxtVerified || !d.CnameVerified ||
		d.CloudflareHostnameID != nil {
		return d, nil
	}

	if err := v.registry.ClaimRegistration(ctx, d.ID); err != nil {
		if errors.Is(err, ErrRegistrationClaimed) {
			v.logger.WithField("domain", d.Domain).
				Info("hostname registration already claimed by a concurrent request")
			return d, nil
		}
		return nil, err
	}

	h, err := v.hostnames.CreateHostname(ctx, d.Domain)
	if err != nil {
		if relErr := v.registry.ReleaseRegistration(ctx, d.ID); relErr != nil {
			v.logger.WithError(relErr).WithField("domain", d.Domain).
				Error("failed to release registration claim")
		}
		return nil, err
	}

	sslStatus := model.SSLStatus(h.SSLStatus)
	if sslStatus == "" {
		sslStatus = model.SSLInitializing
	}

	fields := map[string]interface{}{
		"cloudflare_hostname_id": h.ID,
		"ssl_status":             sslStatus,
		"ownership_status":       model.OwnershipVerified,
		"verification_phase":     model.PhaseCloudflareSSL,
	}
	if len(h.SSLValidationRecords) > 0 {
		fields["ssl_validation_txt_name"] = h.SSLValidationRecords[0].Name
		fields["ssl_validation_txt_value"] = h.SSLValidationRecords[0].Value
	}
	if raw := marshalValidationErrors(h.ValidationErrors); raw != nil {
		fields["validation_errors"] = raw
	}

	if err := v.registry.CompleteRegistration(ctx, d.ID, fields); err != nil {
		return nil, err
	}

	hostnameID := h.ID
	d.CloudflareHostnameID = &hostnameID
	d.SSLStatus = sslStatus
	d.OwnershipStatus = model.OwnershipVerified
	d.VerificationPhase = model.PhaseCloudflareSSL
	d.RegistrationState = model.RegistrationDone
	if len(h.SSLValidationRecords) > 0 {
		name, value := h.SSLValidationRecords[0].Name, h.SSLValidationRecords[0].Value
		d.SSLValidationTxtName = &name
		d.SSLValidationTxtValue = &value
	}
	d.ValidationErrors = marshalValidationErrors(h.ValidationErrors)

	v.logger.WithFields(logrus.Fields{
		"domain":      d.Domain,
		"user":        d.CreatedBy,
		"hostname_id": h.ID,
		"ssl_status":  sslStatus,
	}).Info("custom hostname registered with provider")

	return d, nil
}

// refreshSSL polls the provider for the latest certificate state and
// copies it down. The phase never regresses: an expired certificate
// changes ssl_status, not the phase.
func (v *Verifier) refreshSSL(ctx context.Context, d *model.CustomDomain) (*model.CustomDomain, error) {
	if d.CloudflareHostnameID == nil {
		return nil, fmt.Errorf("domain %s is in the SSL phase without a provider hostname id", d.Domain)
	}

	h, err := v.hostnames.RefreshHostname(ctx, *d.CloudflareHostnameID)
	if err != nil {
		// Some providers reject a refresh while a validation attempt is
		// in flight; fall back to a plain read.
		h, err = v.hostnames.GetHostname(ctx, *d.CloudflareHostnameID)
		if err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{
		"ssl_status":        model.SSLStatus(h.SSLStatus),
		"validation_errors": marshalValidationErrors(h.ValidationErrors),
	}
	if len(h.SSLValidationRecords) > 0 {
		fields["ssl_validation_txt_name"] = h.SSLValidationRecords[0].Name
		fields["ssl_validation_txt_value"] = h.SSLValidationRecords[0].Value
	}

	if err := v.registry.Update(ctx, d.ID, fields); err != nil {
		return nil, err
	}

	d.SSLStatus = model.SSLStatus(h.SSLStatus)
	d.ValidationErrors = marshalValidationErrors(h.ValidationErrors)
	if len(h.SSLValidationRecords) > 0 {
		name, value := h.SSLValidationRecords[0].Name, h.SSLValidationRecords[0].Value
		d.SSLValidationTxtName = &name
		d.SSLValidationTxtValue = &value
	}

	return d, nil
}

func marshalValidationErrors(errs []string) []byte {
	if len(errs) == 0 {
		return nil
	}
	raw, err := json.Marshal(errs)
	if err != nil {
		return nil
	}
	return raw
}
