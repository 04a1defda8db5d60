// Package hostnames talks to the external custom-hostname provisioning
// API that routes customer domains to the edge and manages their TLS
// certificates. The live client targets the Cloudflare custom hostnames
// API; a deterministic fake is provided for offline wiring and tests.
package hostnames

import (
	"context"
	"fmt"
	"strings"
)

// TXTRecord is a DNS TXT record the customer must publish
type TXTRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hostname is the provider's view of a managed custom hostname
type Hostname struct {
	// ID is the provider-assigned identifier
	ID string
	// OwnershipRecord is the provider's own hostname pre-validation record
	OwnershipRecord TXTRecord
	// SSLValidationRecords are the TXT records for certificate validation
	SSLValidationRecords []TXTRecord
	// SSLStatus is the provider's certificate lifecycle state, e.g.
	// "pending_validation" or "active"
	SSLStatus string
	// ValidationErrors holds human-readable provider error strings
	ValidationErrors []string
}

// Client provisions and inspects managed custom hostnames
type Client interface {
	// CreateHostname registers a new managed hostname. Called exactly
	// once per domain, when the DNS verification phase completes.
	CreateHostname(ctx context.Context, hostname string) (*Hostname, error)

	// GetHostname polls the current provider state
	GetHostname(ctx context.Context, id string) (*Hostname, error)

	// RefreshHostname asks the provider to re-attempt validation, used
	// after the user has just published DNS records
	RefreshHostname(ctx context.Context, id string) (*Hostname, error)

	// DeleteHostname deprovisions the hostname. Best effort: callers
	// must not fail their overall delete if this errors.
	DeleteHostname(ctx context.Context, id string) error
}

// APIError is a failure reported by the provisioning API. Transport
// level connectivity failures use StatusCode 0.
type APIError struct {
	Message        string
	StatusCode     int
	ProviderErrors []string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if len(e.ProviderErrors) > 0 {
		return fmt.Sprintf("provisioning API error (status=%d): %s: %s",
			e.StatusCode, e.Message, strings.Join(e.ProviderErrors, "; "))
	}
	return fmt.Sprintf("provisioning API error (status=%d): %s", e.StatusCode, e.Message)
}
