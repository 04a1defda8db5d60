package hostnames

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
)

// FakeClient is a deterministic in-memory Client. Identifiers and TXT
// values are derived from the hostname, so repeated runs against the
// same input produce the same records. Safe for concurrent use.
type FakeClient struct {
	mu        sync.Mutex
	hostnames map[string]*Hostname

	createCalls int
}

// NewFakeClient creates an empty fake provisioning client
func NewFakeClient() *FakeClient {
	return &FakeClient{
		hostnames: make(map[string]*Hostname),
	}
}

// CreateHostname registers a hostname with synthetic records. New
// hostnames start in pending_validation.
func (f *FakeClient) CreateHostname(_ context.Context, hostname string) (*Hostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++

	id := "fake-ch-" + digest(hostname)[:12]
	h := &Hostname{
		ID:        id,
		SSLStatus: "pending_validation",
		OwnershipRecord: TXTRecord{
			Name:  "_cf-custom-hostname." + hostname,
			Value: digest("ownership:" + hostname)[:32],
		},
		SSLValidationRecords: []TXTRecord{
			{
				Name:  "_acme-challenge." + hostname,
				Value: digest("dcv:" + hostname)[:32],
			},
		},
	}
	f.hostnames[id] = h
	return copyHostname(h), nil
}

// GetHostname returns the current state of a registered hostname
func (f *FakeClient) GetHostname(_ context.Context, id string) (*Hostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.hostnames[id]
	if !ok {
		return nil, &APIError{
			Message:    fmt.Sprintf("custom hostname %s not found", id),
			StatusCode: http.StatusNotFound,
		}
	}
	return copyHostname(h), nil
}

// RefreshHostname behaves like GetHostname; tests drive state changes
// through SetSSLStatus.
func (f *FakeClient) RefreshHostname(ctx context.Context, id string) (*Hostname, error) {
	return f.GetHostname(ctx, id)
}

// DeleteHostname removes a hostname. Deleting an unknown id succeeds,
// matching the live client's treatment of provider 404s.
func (f *FakeClient) DeleteHostname(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.hostnames, id)
	return nil
}

// SetSSLStatus overrides the certificate state of a registered
// hostname, simulating provider-side progress or regression.
func (f *FakeClient) SetSSLStatus(id, status string, validationErrors ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.hostnames[id]
	if !ok {
		return fmt.Errorf("custom hostname %s not found", id)
	}
	h.SSLStatus = status
	h.ValidationErrors = validationErrors
	return nil
}

// CreateCalls reports how many times CreateHostname has been invoked
func (f *FakeClient) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func copyHostname(h *Hostname) *Hostname {
	dup := *h
	dup.SSLValidationRecords = append([]TXTRecord(nil), h.SSLValidationRecords...)
	dup.ValidationErrors = append([]string(nil), h.ValidationErrors...)
	return &dup
}
