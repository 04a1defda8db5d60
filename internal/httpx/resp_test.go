package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return resp
}

func TestOK(t *testing.T) {
	c, w := setupTestContext()

	OK(c, gin.H{"domain": "links.example.com"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decodeBody(t, w)
	if resp.Code != CodeSuccess {
		t.Errorf("Expected code %d, got %d", CodeSuccess, resp.Code)
	}
	if resp.Message != "success" {
		t.Errorf("Expected message 'success', got '%s'", resp.Message)
	}
}

func TestCreated(t *testing.T) {
	c, w := setupTestContext()

	Created(c, gin.H{"id": 1})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}
	resp := decodeBody(t, w)
	if resp.Code != CodeSuccess {
		t.Errorf("Expected code %d, got %d", CodeSuccess, resp.Code)
	}
	if resp.Message != "created" {
		t.Errorf("Expected message 'created', got '%s'", resp.Message)
	}
}

func TestFailErr(t *testing.T) {
	c, w := setupTestContext()

	FailErr(c, ErrDomainNotReady("SSL certificate not active for links.example.com"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	resp := decodeBody(t, w)
	if resp.Code != CodeDomainNotReady {
		t.Errorf("Expected code %d, got %d", CodeDomainNotReady, resp.Code)
	}
	if resp.Data != nil {
		t.Errorf("Expected nil data, got %v", resp.Data)
	}
}

func TestOKItems(t *testing.T) {
	c, w := setupTestContext()

	OKItems(c, []string{"a.example.com", "b.example.com"}, 2, 1, 20)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decodeBody(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %T", resp.Data)
	}
	if data["total"].(float64) != 2 {
		t.Errorf("Expected total 2, got %v", data["total"])
	}
	if data["page"].(float64) != 1 {
		t.Errorf("Expected page 1, got %v", data["page"])
	}
}
