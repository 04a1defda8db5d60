package customdomains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkhub/internal/customdomain"
	"linkhub/internal/dnslookup"
	"linkhub/internal/hostnames"
	"linkhub/internal/model"
)

type stubResolver struct {
	txt   map[string][]string
	cname map[string][]string
}

func (s *stubResolver) LookupTXT(_ context.Context, host string) ([]string, error) {
	if recs, ok := s.txt[host]; ok {
		return recs, nil
	}
	return nil, dnslookup.ErrNoRecord
}

func (s *stubResolver) LookupCNAME(_ context.Context, host string) ([]string, error) {
	if targets, ok := s.cname[host]; ok {
		return targets, nil
	}
	return nil, dnslookup.ErrNoRecord
}

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	resolver *stubResolver
	uid      int
}

// newTestEnv wires the handler onto a router with an identity
// middleware standing in for JWT auth.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.CustomDomain{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	resolver := &stubResolver{
		txt:   map[string][]string{},
		cname: map[string][]string{},
	}
	fake := hostnames.NewFakeClient()
	registry := customdomain.NewRegistry(db)
	verifier := customdomain.NewVerifier(&customdomain.VerifierConfig{
		Registry:    registry,
		Resolver:    resolver,
		Hostnames:   fake,
		CNAMETarget: "edge.linkhub.app",
	})
	svc := customdomain.NewService(&customdomain.ServiceConfig{
		DB:          db,
		Registry:    registry,
		Hostnames:   fake,
		CNAMETarget: "edge.linkhub.app",
	})

	env := &testEnv{db: db, resolver: resolver}

	h := NewHandler(svc, verifier)
	r := gin.New()
	r.GET("/custom-domains/resolve", h.Resolve)

	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		c.Set("uid", env.uid)
		c.Next()
	})
	authed.GET("/custom-domains", h.List)
	authed.POST("/custom-domains", h.Create)
	authed.GET("/custom-domains/default", h.GetDefault)
	authed.POST("/custom-domains/clear-default", h.ClearDefault)
	authed.GET("/custom-domains/:id", h.Get)
	authed.DELETE("/custom-domains/:id", h.Delete)
	authed.GET("/custom-domains/:id/setup-instructions", h.SetupInstructions)
	authed.POST("/custom-domains/:id/verify", h.Verify)
	authed.POST("/custom-domains/:id/verify-cname", h.VerifyCname)
	authed.POST("/custom-domains/:id/set-default", h.SetDefault)
	authed.POST("/custom-domains/:id/enable", h.SetEnabled)

	env.router = r
	return env
}

func (e *testEnv) seedUser(t *testing.T, name string, plan model.UserPlan) *model.User {
	t.Helper()
	user := &model.User{
		Username:     name,
		PasswordHash: "x",
		Role:         "user",
		Plan:         plan,
		Status:       model.UserStatusActive,
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, &env
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestHandler_CreateAndGet(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	w, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "Links.Example.COM"})
	if w.Code != http.StatusCreated || env.Code != 0 {
		t.Fatalf("Expected 201/0, got %d/%d: %s", w.Code, env.Code, env.Message)
	}

	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}
	if created.Domain != "links.example.com" {
		t.Errorf("Expected normalized domain, got %q", created.Domain)
	}
	if created.VerificationPhase != "dns_verification" {
		t.Errorf("Expected phase dns_verification, got %q", created.VerificationPhase)
	}

	w, env = e.do(t, http.MethodGet, fmt.Sprintf("/custom-domains/%d", created.ID), nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("Expected 200/0, got %d/%d: %s", w.Code, env.Code, env.Message)
	}
}

func TestHandler_Create_PlanLimit(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "bob", model.UserPlanFree)
	e.uid = user.ID

	w, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
	if env.Code != 3004 {
		t.Errorf("Expected business code 3004, got %d", env.Code)
	}
}

func TestHandler_Get_ForeignDomain(t *testing.T) {
	e := newTestEnv(t)
	owner := e.seedUser(t, "alice", model.UserPlanPro)
	other := e.seedUser(t, "bob", model.UserPlanPro)

	e.uid = owner.ID
	_, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}

	e.uid = other.ID
	w, env := e.do(t, http.MethodGet, fmt.Sprintf("/custom-domains/%d", created.ID), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign domain, got %d", w.Code)
	}
	if env.Code != 1004 {
		t.Errorf("Expected business code 1004, got %d", env.Code)
	}
}

func TestHandler_Verify_DNSFailure(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	_, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}

	w, env := e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/verify", created.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if env.Code != 3005 {
		t.Errorf("Expected business code 3005, got %d", env.Code)
	}

	var data struct {
		Step string `json:"step"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode error data: %v", err)
	}
	if data.Step != "ownership" || data.Kind != "record_not_found" {
		t.Errorf("Unexpected failure detail: %+v", data)
	}
}

func TestHandler_VerifyFlowAndSetDefault(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	_, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}

	e.resolver.txt[created.OwnershipValidationTxtName] = []string{created.OwnershipValidationTxtValue}
	e.resolver.cname["links.example.com"] = []string{"edge.linkhub.app"}

	w, env := e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/verify", created.ID), nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("verify failed: %d/%d %s", w.Code, env.Code, env.Message)
	}

	w, env = e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/verify-cname", created.ID), nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("verify-cname failed: %d/%d %s", w.Code, env.Code, env.Message)
	}

	var verified CustomDomainDTO
	if err := json.Unmarshal(env.Data, &verified); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}
	if verified.VerificationPhase != "cloudflare_ssl" {
		t.Errorf("Expected phase cloudflare_ssl, got %q", verified.VerificationPhase)
	}

	// Certificate not active yet: set-default refuses with 3006
	w, env = e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/set-default", created.ID), nil)
	if w.Code != http.StatusBadRequest || env.Code != 3006 {
		t.Errorf("Expected 400/3006 before the certificate is active, got %d/%d", w.Code, env.Code)
	}
}

func TestHandler_Delete(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	_, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}

	w, env := e.do(t, http.MethodDelete, fmt.Sprintf("/custom-domains/%d", created.ID), nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("delete failed: %d/%d %s", w.Code, env.Code, env.Message)
	}

	var result struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.Deleted {
		t.Error("Expected {deleted: true}")
	}

	w, _ = e.do(t, http.MethodGet, fmt.Sprintf("/custom-domains/%d", created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestHandler_ClearDefault(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	// Always succeeds, even with no default set
	w, env := e.do(t, http.MethodPost, "/custom-domains/clear-default", nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("clear-default failed: %d/%d %s", w.Code, env.Code, env.Message)
	}

	var result struct {
		Cleared bool `json:"cleared"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.Cleared {
		t.Error("Expected {cleared: true}")
	}
}

func TestHandler_SetEnabled(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", model.UserPlanPro)
	e.uid = user.ID

	_, env := e.do(t, http.MethodPost, "/custom-domains", gin.H{"domain": "links.example.com"})
	var created CustomDomainDTO
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}

	w, env := e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/enable", created.ID), gin.H{"enabled": false})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("enable failed: %d/%d %s", w.Code, env.Code, env.Message)
	}

	var toggled CustomDomainDTO
	if err := json.Unmarshal(env.Data, &toggled); err != nil {
		t.Fatalf("failed to decode dto: %v", err)
	}
	if toggled.IsEnabled {
		t.Error("Expected the domain to be disabled")
	}

	// Missing body is a parameter error
	w, env = e.do(t, http.MethodPost, fmt.Sprintf("/custom-domains/%d/enable", created.ID), nil)
	if w.Code != http.StatusBadRequest || env.Code != 2002 {
		t.Errorf("Expected 400/2002 for a missing body, got %d/%d", w.Code, env.Code)
	}
}

func TestHandler_Resolve_Public(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodGet, "/custom-domains/resolve?domain=nobody.example.com", nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("Expected 200/0, got %d/%d", w.Code, env.Code)
	}

	var result struct {
		Domain  string `json:"domain"`
		IsValid bool   `json:"isValid"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.IsValid {
		t.Error("Unknown domain must not resolve as valid")
	}

	w, env = e.do(t, http.MethodGet, "/custom-domains/resolve", nil)
	if w.Code != http.StatusBadRequest || env.Code != 2001 {
		t.Errorf("Expected 400/2001 for a missing parameter, got %d/%d", w.Code, env.Code)
	}
}
