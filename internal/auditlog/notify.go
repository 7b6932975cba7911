// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"errors"
	"fmt"
	"io"

	"tenantlog/internal/tenant"
)

// Notifier receives the transient messages the screen would show in its
// snackbar.
type Notifier interface {
	Notify(message string)
	NotifyError(err *tenant.ErrorResponse)
}

// WriterNotifier prints notices to Out and errors to Err.
type WriterNotifier struct {
	Out io.Writer
	Err io.Writer
}

func (n WriterNotifier) Notify(message string) {
	fmt.Fprintln(n.Out, message)
}

func (n WriterNotifier) NotifyError(err *tenant.ErrorResponse) {
	if err.DetailedError != "" {
		fmt.Fprintf(n.Err, "Error: %s (%s)\n", err.ErrorMessage, err.DetailedError)
		return
	}
	fmt.Fprintf(n.Err, "Error: %s\n", err.ErrorMessage)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string)                     {}
func (nopNotifier) NotifyError(*tenant.ErrorResponse) {}

// AsErrorResponse returns the console error carried by err, or wraps err's
// text in a new one.
func AsErrorResponse(err error) *tenant.ErrorResponse {
	var apiErr *tenant.ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &tenant.ErrorResponse{ErrorMessage: err.Error()}
}
