package customdomains

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"linkhub/internal/customdomain"
	"linkhub/internal/hostnames"
	"linkhub/internal/httpx"
	"linkhub/internal/model"
)

// Handler handles custom domain management requests
type Handler struct {
	svc      *customdomain.Service
	verifier *customdomain.Verifier
}

// NewHandler creates a new custom domains handler
func NewHandler(svc *customdomain.Service, verifier *customdomain.Verifier) *Handler {
	return &Handler{svc: svc, verifier: verifier}
}

// failErr maps domain errors onto the unified error envelope
func failErr(c *gin.Context, err error) {
	var (
		limitErr  *customdomain.PlanLimitError
		notReady  *customdomain.NotReadyError
		verifyErr *customdomain.VerificationError
		apiErr    *hostnames.APIError
	)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.FailErr(c, httpx.ErrNotFound("domain not found"))
	case errors.Is(err, customdomain.ErrNotOwner):
		httpx.FailErr(c, httpx.ErrForbidden("domain belongs to another user"))
	case errors.Is(err, customdomain.ErrInvalidDomain):
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
	case errors.Is(err, customdomain.ErrDomainExists):
		httpx.FailErr(c, httpx.ErrAlreadyExists("domain is already registered"))
	case errors.Is(err, customdomain.ErrRegistrationClaimed):
		httpx.FailErr(c, httpx.ErrStateConflict("verification already in progress"))
	case errors.As(err, &limitErr):
		httpx.FailErr(c, httpx.ErrPlanLimitReached(limitErr.Error()))
	case errors.As(err, &notReady):
		httpx.FailErr(c, httpx.ErrDomainNotReady(notReady.Error()))
	case errors.As(err, &verifyErr):
		httpx.FailErr(c, httpx.ErrVerificationFailed(verifyErr.Message).WithData(gin.H{
			"step": verifyErr.Step,
			"kind": verifyErr.Kind,
		}))
	case errors.As(err, &apiErr):
		httpx.FailErr(c, httpx.ErrExternalError("custom hostname provider error", err))
	default:
		httpx.FailErr(c, httpx.ErrDatabaseError("database error", err))
	}
}

// load parses the :id param and enforces ownership
func (h *Handler) load(c *gin.Context) (*model.CustomDomain, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid domain id"))
		return nil, false
	}

	d, err := h.svc.GetForUser(c.Request.Context(), id, c.GetInt("uid"))
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return d, true
}

// List handles GET /api/v1/custom-domains
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	items, total, err := h.svc.List(c.Request.Context(), c.GetInt("uid"), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	httpx.OKItems(c, toDTOs(items), total, page, pageSize)
}

// Create handles POST /api/v1/custom-domains
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}

	d, err := h.svc.Create(c.Request.Context(), c.GetInt("uid"), req.Domain)
	if err != nil {
		failErr(c, err)
		return
	}

	httpx.Created(c, toDTO(d))
}

// Get handles GET /api/v1/custom-domains/:id
func (h *Handler) Get(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	httpx.OK(c, toDTO(d))
}

// SetupInstructions handles GET /api/v1/custom-domains/:id/setup-instructions
func (h *Handler) SetupInstructions(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}
	httpx.OK(c, h.svc.SetupInstructions(d))
}

// Verify handles POST /api/v1/custom-domains/:id/verify. It runs the
// ownership TXT check, completes the phase transition once both DNS
// checks have passed, and polls the SSL certificate afterwards.
func (h *Handler) Verify(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}

	d, err := h.verifier.VerifyOwnership(c.Request.Context(), d)
	if err != nil {
		failErr(c, err)
		return
	}
	httpx.OK(c, toDTO(d))
}

// VerifyCname handles POST /api/v1/custom-domains/:id/verify-cname
func (h *Handler) VerifyCname(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}

	d, err := h.verifier.VerifyCname(c.Request.Context(), d)
	if err != nil {
		failErr(c, err)
		return
	}
	httpx.OK(c, toDTO(d))
}

// SetDefault handles POST /api/v1/custom-domains/:id/set-default
func (h *Handler) SetDefault(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.svc.SetDefault(c.Request.Context(), d); err != nil {
		failErr(c, err)
		return
	}
	httpx.OKMsg(c, "default domain updated", toDTO(d))
}

// ClearDefault handles POST /api/v1/custom-domains/clear-default
func (h *Handler) ClearDefault(c *gin.Context) {
	if err := h.svc.ClearDefault(c.Request.Context(), c.GetInt("uid")); err != nil {
		failErr(c, err)
		return
	}
	httpx.OK(c, gin.H{"cleared": true})
}

// GetDefault handles GET /api/v1/custom-domains/default. Data is null
// when the user has no usable default.
func (h *Handler) GetDefault(c *gin.Context) {
	d, err := h.svc.GetDefault(c.Request.Context(), c.GetInt("uid"))
	if err != nil {
		failErr(c, err)
		return
	}
	if d == nil {
		httpx.OK(c, nil)
		return
	}
	httpx.OK(c, toDTO(d))
}

// SetEnabled handles POST /api/v1/custom-domains/:id/enable
func (h *Handler) SetEnabled(c *gin.Context) {
	var req EnableRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}

	d, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.svc.SetEnabled(c.Request.Context(), d, *req.Enabled); err != nil {
		failErr(c, err)
		return
	}
	httpx.OK(c, toDTO(d))
}

// Delete handles DELETE /api/v1/custom-domains/:id
func (h *Handler) Delete(c *gin.Context) {
	d, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), d); err != nil {
		failErr(c, err)
		return
	}
	httpx.OK(c, gin.H{"deleted": true})
}

// Resolve handles GET /api/v1/custom-domains/resolve. Public, no
// authentication: the edge router asks whether a hostname may serve
// short links. The answer never reveals whether the domain exists.
func (h *Handler) Resolve(c *gin.Context) {
	domain := c.Query("domain")
	if domain == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("parameter 'domain' is required"))
		return
	}

	httpx.OK(c, h.svc.Resolve(c.Request.Context(), domain))
}
