// Package dnslookup wraps the system resolver for domain verification.
// It distinguishes "record absent" from transient resolution failures
// so callers can tell the user which remediation step to take.
package dnslookup

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrNoRecord indicates the queried name has no record of the requested
// type (no-data or NXDOMAIN), as opposed to a transient lookup failure.
var ErrNoRecord = errors.New("no DNS record found")

// Resolver performs read-only DNS queries. No retries are built in;
// verification is driven by repeated user-triggered checks.
type Resolver interface {
	// LookupTXT returns the TXT records for host, one concatenated
	// string per record.
	LookupTXT(ctx context.Context, host string) ([]string, error)

	// LookupCNAME returns the CNAME targets for host, without the
	// trailing dot.
	LookupCNAME(ctx context.Context, host string) ([]string, error)
}

// NetResolver implements Resolver over net.Resolver
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver creates a resolver backed by the system resolver
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

// LookupTXT implements Resolver
func (r *NetResolver) LookupTXT(ctx context.Context, host string) ([]string, error) {
	records, err := r.resolver.LookupTXT(ctx, host)
	if err != nil {
		return nil, classify(err)
	}
	if len(records) == 0 {
		return nil, ErrNoRecord
	}
	return records, nil
}

// LookupCNAME implements Resolver
func (r *NetResolver) LookupCNAME(ctx context.Context, host string) ([]string, error) {
	cname, err := r.resolver.LookupCNAME(ctx, host)
	if err != nil {
		return nil, classify(err)
	}
	cname = strings.TrimSuffix(cname, ".")
	if cname == "" || strings.EqualFold(cname, strings.TrimSuffix(host, ".")) {
		// LookupCNAME returns the input name when no CNAME chain exists
		return nil, ErrNoRecord
	}
	return []string{cname}, nil
}

// classify maps no-data / host-not-found errors to ErrNoRecord and
// passes transient failures through unchanged.
func classify(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return ErrNoRecord
	}
	return err
}
