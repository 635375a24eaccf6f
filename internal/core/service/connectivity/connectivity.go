// Package connectivity implements the Connectivity Probe (C5): a single
// freshly-issued check of remote reachability, never cached (spec.md §4.5).
package connectivity

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout is used when a caller passes zero.
const DefaultTimeout = 5 * time.Second

// Prober issues a lightweight GET against a known remote endpoint and
// classifies the result as online/offline. HTTP 200 or 401 count as
// reachable; any other outcome (DNS, connect, timeout, transport, or any
// other status) counts as offline.
type Prober struct {
	baseURL string
	client  *http.Client
}

// New builds a Prober against baseURL (HOST_REMOTE_URL).
func New(baseURL string) *Prober {
	return &Prober{baseURL: baseURL, client: &http.Client{}}
}

// IsOnline issues the freshness check. Implements port.Probe.
func (p *Prober) IsOnline(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/students/next-ids", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized
}
