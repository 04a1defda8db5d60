package customdomain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"linkhub/internal/domainutil"
	"linkhub/internal/hostnames"
	"linkhub/internal/model"
)

// ErrNotOwner is returned when a user addresses a domain owned by
// someone else.
var ErrNotOwner = errors.New("domain belongs to another user")

// ErrInvalidDomain wraps hostname normalization failures
var ErrInvalidDomain = errors.New("invalid domain")

// planDomainLimits decides how many custom domains each plan allows.
// A limit of zero means the plan does not include custom domains.
var planDomainLimits = map[model.UserPlan]int{
	model.UserPlanFree:     0,
	model.UserPlanPro:      5,
	model.UserPlanBusiness: 20,
}

// PlanLimitError is returned when a plan does not allow another domain
type PlanLimitError struct {
	Plan  model.UserPlan
	Limit int
}

// Error implements the error interface
func (e *PlanLimitError) Error() string {
	if e.Limit == 0 {
		return fmt.Sprintf("the %s plan does not include custom domains", e.Plan)
	}
	return fmt.Sprintf("the %s plan allows at most %d custom domains", e.Plan, e.Limit)
}

// NotReadyError is returned when a domain cannot become the default yet
type NotReadyError struct {
	Domain string
	Reason string
}

// Error implements the error interface
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("domain %s cannot be used yet: %s", e.Domain, e.Reason)
}

// ResolveResult is the public resolve verdict. Only the domain and a
// boolean leave this path; internal fields never do.
type ResolveResult struct {
	Domain  string `json:"domain"`
	IsValid bool   `json:"isValid"`
}

// DNSInstruction is one record the user must publish
type DNSInstruction struct {
	RecordType string `json:"recordType"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	Purpose    string `json:"purpose"`
}

// SetupInstructions lists the DNS records a domain still needs
type SetupInstructions struct {
	Domain  string           `json:"domain"`
	Zone    string           `json:"zone"`
	Records []DNSInstruction `json:"records"`
	Message string           `json:"message"`
}

// Service implements the custom-domain lifecycle: creation with plan
// limits, deletion with best-effort deprovisioning, default selection,
// and the public resolve path.
type Service struct {
	db              *gorm.DB
	registry        *Registry
	hostnames       hostnames.Client
	cache           *redis.Client
	logger          *logrus.Entry
	txtPrefix       string
	cnameTarget     string
	resolveCacheTTL time.Duration
}

// ServiceConfig holds the collaborators of a Service. Cache is
// optional; without it resolve verdicts are computed on every call.
type ServiceConfig struct {
	DB                 *gorm.DB
	Registry           *Registry
	Hostnames          hostnames.Client
	Cache              *redis.Client
	Logger             *logrus.Entry
	TXTRecordPrefix    string
	CNAMETarget        string
	ResolveCacheTTLSec int
}

// NewService creates a new lifecycle service
func NewService(cfg *ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	txtPrefix := cfg.TXTRecordPrefix
	if txtPrefix == "" {
		txtPrefix = "_linkhub-verify"
	}
	ttl := cfg.ResolveCacheTTLSec
	if ttl <= 0 {
		ttl = 30
	}
	return &Service{
		db:              cfg.DB,
		registry:        cfg.Registry,
		hostnames:       cfg.Hostnames,
		cache:           cfg.Cache,
		logger:          logger.WithField("component", "custom-domain-service"),
		txtPrefix:       txtPrefix,
		cnameTarget:     cfg.CNAMETarget,
		resolveCacheTTL: time.Duration(ttl) * time.Second,
	}
}

// GetForUser loads a domain and enforces ownership. Absent rows keep
// gorm.ErrRecordNotFound; foreign rows return ErrNotOwner so the
// handler can answer 403 instead of 404.
func (s *Service) GetForUser(ctx context.Context, id, userID int) (*model.CustomDomain, error) {
	d, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy != userID {
		return nil, ErrNotOwner
	}
	return d, nil
}

// List returns a page of the user's domains
func (s *Service) List(ctx context.Context, userID, page, pageSize int) ([]model.CustomDomain, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.registry.ListByUser(ctx, userID, page, pageSize)
}

// Create registers a new custom domain in the DNS verification phase.
// The ownership token is generated here and never changes for the
// lifetime of the domain.
func (s *Service) Create(ctx context.Context, userID int, rawDomain string) (*model.CustomDomain, error) {
	domain, err := domainutil.Normalize(rawDomain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	limit := planDomainLimits[user.Plan]
	if limit == 0 {
		return nil, &PlanLimitError{Plan: user.Plan, Limit: 0}
	}
	count, err := s.registry.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= int64(limit) {
		return nil, &PlanLimitError{Plan: user.Plan, Limit: limit}
	}

	d := &model.CustomDomain{
		Domain:                      domain,
		CreatedBy:                   userID,
		IsEnabled:                   true,
		VerificationPhase:           model.PhaseDNSVerification,
		OwnershipStatus:             model.OwnershipPending,
		SSLStatus:                   model.SSLInitializing,
		RegistrationState:           model.RegistrationNone,
		OwnershipValidationTxtName:  s.txtPrefix + "." + domain,
		OwnershipValidationTxtValue: "linkhub-verify=" + uuid.NewString(),
	}

	if err := s.registry.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"domain": d.Domain,
		"user":   userID,
	}).Info("custom domain created")

	return d, nil
}

// Delete removes the domain. Provider deprovisioning is best effort: a
// provider failure is logged but the local record, the source of truth
// for routing, is always deleted.
func (s *Service) Delete(ctx context.Context, d *model.CustomDomain) error {
	if d.CloudflareHostnameID != nil {
		if err := s.hostnames.DeleteHostname(ctx, *d.CloudflareHostnameID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"domain":      d.Domain,
				"hostname_id": *d.CloudflareHostnameID,
			}).Warn("provider deprovisioning failed, deleting local record anyway")
		}
	}

	if err := s.registry.Delete(ctx, d.ID); err != nil {
		return err
	}
	s.invalidateResolveCache(ctx, d.Domain)

	s.logger.WithFields(logrus.Fields{
		"domain": d.Domain,
		"user":   d.CreatedBy,
	}).Info("custom domain deleted")

	return nil
}

// SetDefault makes the domain the user's default. Only a domain that
// is currently usable for routing may become the default.
func (s *Service) SetDefault(ctx context.Context, d *model.CustomDomain) error {
	verdict := DomainValidity(d)
	if !verdict.IsValid {
		return &NotReadyError{Domain: d.Domain, Reason: verdict.Reason}
	}
	if err := s.registry.SetDefault(ctx, d.ID, d.CreatedBy); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"domain": d.Domain,
		"user":   d.CreatedBy,
	}).Info("default domain changed")

	return nil
}

// ClearDefault clears the user's default domain, succeeding even when
// none is set.
func (s *Service) ClearDefault(ctx context.Context, userID int) error {
	return s.registry.ClearDefault(ctx, userID)
}

// GetDefault returns the user's default domain, nil when none is set
// or the default has been disabled.
func (s *Service) GetDefault(ctx context.Context, userID int) (*model.CustomDomain, error) {
	d, err := s.registry.GetDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil || !d.IsEnabled {
		return nil, nil
	}
	return d, nil
}

// SetEnabled flips the user-controlled on/off switch. Disabled domains
// are never valid for use, even when fully verified.
func (s *Service) SetEnabled(ctx context.Context, d *model.CustomDomain, enabled bool) error {
	if err := s.registry.Update(ctx, d.ID, map[string]interface{}{
		"is_enabled": enabled,
	}); err != nil {
		return err
	}
	d.IsEnabled = enabled
	s.invalidateResolveCache(ctx, d.Domain)

	s.logger.WithFields(logrus.Fields{
		"domain":  d.Domain,
		"user":    d.CreatedBy,
		"enabled": enabled,
	}).Info("custom domain toggled")

	return nil
}

// SetupInstructions lists the DNS records the user still needs to
// publish, with names relative to the zone as a DNS provider expects
// them.
func (s *Service) SetupInstructions(d *model.CustomDomain) *SetupInstructions {
	zone, err := domainutil.EffectiveApex(d.Domain)
	if err != nil {
		zone = d.Domain
	}

	records := []DNSInstruction{
		{
			RecordType: "TXT",
			Name:       d.OwnershipValidationTxtName,
			Label:      relativeLabel(d.OwnershipValidationTxtName, zone),
			Value:      d.OwnershipValidationTxtValue,
			Purpose:    "proves you control this domain",
		},
		{
			RecordType: "CNAME",
			Name:       d.Domain,
			Label:      relativeLabel(d.Domain, zone),
			Value:      s.cnameTarget,
			Purpose:    "routes traffic to the edge",
		},
	}

	message := fmt.Sprintf("Add the records above at your DNS provider for %s, then run verification again.", zone)
	if d.VerificationPhase == model.PhaseCloudflareSSL &&
		d.SSLValidationTxtName != nil && d.SSLValidationTxtValue != nil {
		records = append(records, DNSInstruction{
			RecordType: "TXT",
			Name:       *d.SSLValidationTxtName,
			Label:      relativeLabel(*d.SSLValidationTxtName, zone),
			Value:      *d.SSLValidationTxtValue,
			Purpose:    "validates the SSL certificate",
		})
		message = fmt.Sprintf("Add the SSL validation record at your DNS provider for %s; the certificate is issued once it is visible.", zone)
	}

	return &SetupInstructions{
		Domain:  d.Domain,
		Zone:    zone,
		Records: records,
		Message: message,
	}
}

// Resolve answers the public routing question for a bare hostname. The
// reply never reveals whether a record exists: unknown and unusable
// both come back as not valid.
func (s *Service) Resolve(ctx context.Context, rawDomain string) ResolveResult {
	domain, err := domainutil.Normalize(rawDomain)
	if err != nil {
		return ResolveResult{Domain: strings.ToLower(strings.TrimSpace(rawDomain)), IsValid: false}
	}

	cacheKey := "linkhub:resolve:" + domain
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			return ResolveResult{Domain: domain, IsValid: val == "1"}
		}
	}

	isValid := false
	d, err := s.registry.GetByDomain(ctx, domain)
	if err == nil {
		isValid = DomainValidity(d).IsValid
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		// Storage trouble: answer not-valid rather than failing the
		// edge router, and skip caching the verdict.
		s.logger.WithError(err).WithField("domain", domain).Error("resolve lookup failed")
		return ResolveResult{Domain: domain, IsValid: false}
	}

	if s.cache != nil {
		val := "0"
		if isValid {
			val = "1"
		}
		if err := s.cache.Set(ctx, cacheKey, val, s.resolveCacheTTL).Err(); err != nil {
			s.logger.WithError(err).WithField("domain", domain).Warn("failed to cache resolve verdict")
		}
	}

	return ResolveResult{Domain: domain, IsValid: isValid}
}

func (s *Service) invalidateResolveCache(ctx context.Context, domain string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, "linkhub:resolve:"+domain).Err(); err != nil {
		s.logger.WithError(err).WithField("domain", domain).Warn("failed to invalidate resolve cache")
	}
}

// relativeLabel converts a fully-qualified name to the label entered at
// a DNS provider for the given zone, "@" for the zone itself.
func relativeLabel(name, zone string) string {
	if name == zone {
		return "@"
	}
	if strings.HasSuffix(name, "."+zone) {
		return strings.TrimSuffix(name, "."+zone)
	}
	return name
}
