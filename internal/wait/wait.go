// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package wait

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tenantlog/internal/auditlog"
	"tenantlog/internal/tenant"
)

// WaitForLoggingState polls the store until the tenant reports the wanted
// enabled state or the timeout expires. Only reads are repeated; read
// errors are logged and polling continues. It respects context
// cancellation.
func WaitForLoggingState(ctx context.Context, store auditlog.Store, ref tenant.Ref, enabled bool, timeout, interval time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled waiting for tenant %s: %w", ref, err)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for tenant %s logging enabled=%t", ref, enabled)
		}

		settings, err := store.GetLog(ctx, ref)
		switch {
		case err != nil:
			logger.Debug("reading logging state, retrying", zap.Stringer("tenant", ref), zap.Error(err))
		case settings.IsEnabled() == enabled:
			return nil
		default:
			logger.Debug("logging state not reached yet",
				zap.Stringer("tenant", ref), zap.Bool("enabled", settings.IsEnabled()))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled waiting for tenant %s: %w", ref, ctx.Err())
		case <-time.After(interval):
		}
	}
}
