package acl

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
)

// Check implements ports.HealthChecker for adapters that embed Remote.
// It reports an open circuit breaker without calling the downstream.
func (r *Remote) Check(_ context.Context) error {
	snap := r.client.Breaker()
	if snap.State == clients.StateOpen {
		return fmt.Errorf("%s: circuit open since %s", r.service, snap.LastFailure.Format("15:04:05"))
	}

	return nil
}
