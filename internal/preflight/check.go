// Package preflight implements the execution precondition checks that run
// before any mutating stage: process identity and network reachability.
package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jfellner/k3seed/internal/errdefs"
)

// DefaultProbeTimeout bounds the connectivity probe. The probe must fail
// fast rather than hang on an unreachable network.
const DefaultProbeTimeout = 10 * time.Second

// CheckNotRoot fails if the process runs under an elevated identity.
// Privileged operations go through sudo so that only the steps that need
// elevation get it.
func CheckNotRoot() error {
	if uid := os.Geteuid(); uid == 0 {
		return &errdefs.PrivilegeError{UID: uid}
	}
	return nil
}

// CheckConnectivity probes a known external endpoint within a bounded
// timeout. A failure means the machine cannot reach the networks the later
// stages depend on, so the run aborts before any write.
func CheckConnectivity(ctx context.Context, client *http.Client, endpoint string) error {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return &errdefs.ConnectivityError{Endpoint: endpoint, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &errdefs.ConnectivityError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &errdefs.ConnectivityError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
