// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"tenantlog/internal/auditlog"
	"tenantlog/internal/tenant"
)

// RecordingStore wraps a store and journals every call. Journal failures
// are logged and never fail the wrapped operation.
type RecordingStore struct {
	next    auditlog.Store
	journal Journal
	backend string
	logger  *zap.Logger
}

// NewRecordingStore returns a store that records calls to next in journal.
func NewRecordingStore(next auditlog.Store, journal Journal, backend string, logger *zap.Logger) *RecordingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingStore{next: next, journal: journal, backend: backend, logger: logger}
}

func (r *RecordingStore) GetLog(ctx context.Context, ref tenant.Ref) (*tenant.LogSettings, error) {
	var out *tenant.LogSettings
	err := r.record(ctx, OpLoad, ref, nil, func() error {
		var err error
		out, err = r.next.GetLog(ctx, ref)
		return err
	})
	return out, err
}

func (r *RecordingStore) UpdateLog(ctx context.Context, ref tenant.Ref, settings *tenant.LogSettings) error {
	return r.record(ctx, OpUpdate, ref, settings, func() error {
		return r.next.UpdateLog(ctx, ref, settings)
	})
}

func (r *RecordingStore) EnableLogging(ctx context.Context, ref tenant.Ref) error {
	return r.record(ctx, OpEnable, ref, nil, func() error {
		return r.next.EnableLogging(ctx, ref)
	})
}

func (r *RecordingStore) DisableLogging(ctx context.Context, ref tenant.Ref) error {
	return r.record(ctx, OpDisable, ref, nil, func() error {
		return r.next.DisableLogging(ctx, ref)
	})
}

func (r *RecordingStore) record(ctx context.Context, op string, ref tenant.Ref, body any, fn func() error) error {
	rec := OperationRecord{
		Operation: op,
		Backend:   r.backend,
		Namespace: ref.Namespace,
		Tenant:    ref.Name,
	}
	if body != nil {
		if data, err := json.Marshal(body); err == nil {
			rec.RequestBody = string(data)
		}
	}

	id, opID, jerr := r.journal.Start(ctx, rec)
	if jerr != nil {
		r.logger.Warn("recording operation start", zap.String("operation", op), zap.Error(jerr))
	}

	err := fn()

	if jerr != nil {
		return err
	}
	status, summary := StatusSucceeded, ""
	if err != nil {
		status, summary = StatusFailed, err.Error()
	}
	// The row is finalised even when the operation was interrupted.
	if cerr := r.journal.Complete(context.WithoutCancel(ctx), id, status, summary); cerr != nil {
		r.logger.Warn("recording operation completion",
			zap.String("operation", op), zap.String("operation_id", opID), zap.Error(cerr))
	}
	return err
}
