// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// ErrInvalidForm is returned by Submit when any error map is non-empty.
var ErrInvalidForm = errors.New("audit log form has validation errors")

// ErrLoggingDisabled is returned by Submit when the last fetch reported
// audit logging as disabled.
var ErrLoggingDisabled = errors.New("audit logging is not enabled")

// ErrNoPendingToggle is returned by ConfirmToggle when no confirmation is open.
var ErrNoPendingToggle = errors.New("no logging toggle awaiting confirmation")

// Store is the remote holder of per-tenant audit-log settings.
type Store interface {
	GetLog(ctx context.Context, ref tenant.Ref) (*tenant.LogSettings, error)
	UpdateLog(ctx context.Context, ref tenant.Ref, settings *tenant.LogSettings) error
	EnableLogging(ctx context.Context, ref tenant.Ref) error
	DisableLogging(ctx context.Context, ref tenant.Ref) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where notices and errors are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithOnChange registers a callback that receives a copy of the state after
// every change.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithValidator replaces the default field rules.
func WithValidator(v *Validator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithKeepErrorsOnLoad keeps recorded validation errors across a successful
// load instead of resetting them.
func WithKeepErrorsOnLoad() Option {
	return func(c *Controller) { c.keepErrorsOnLoad = true }
}

// Controller drives the audit-log configuration of one tenant: load, edit,
// submit and enable/disable. It is not safe for concurrent use; callers
// drive it from a single goroutine.
type Controller struct {
	store            Store
	ref              tenant.Ref
	notifier         Notifier
	validator        *Validator
	logger           *zap.Logger
	onChange         func(State)
	keepErrorsOnLoad bool

	state State
}

// NewController returns a Controller with empty state. Call Load to fetch
// the current settings.
func NewController(store Store, ref tenant.Ref, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		ref:       ref,
		notifier:  nopNotifier{},
		validator: NewValidator(),
		logger:    zap.NewNop(),
		state:     newState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("tenant", ref.String()))
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state.Clone()
}

// Valid reports aggregate validity.
func (c *Controller) Valid() bool {
	return c.state.Valid()
}

// Load fetches the tenant's settings and replaces the form with them. On
// failure the previous state is kept and an error notification is sent.
func (c *Controller) Load(ctx context.Context) error {
	c.logger.Debug("loading audit log settings")
	res, err := c.store.GetLog(ctx, c.ref)
	if err != nil {
		c.logger.Debug("loading audit log settings failed", zap.Error(err))
		c.notifier.NotifyError(AsErrorResponse(err))
		return fmt.Errorf("loading audit log settings for %s: %w", c.ref, err)
	}

	applySettings(&c.state, res)
	if !c.keepErrorsOnLoad {
		c.clearErrors()
	}
	c.changed()
	return nil
}

// SetField validates value and stores it. A rejected value leaves the field
// unchanged and records an error under the field name; an accepted value
// clears that error.
func (c *Controller) SetField(field Field, value string) error {
	if err := c.validator.Check(field, value); err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			c.state.ValidationErrors[field] = fe.Message
		} else {
			c.state.ValidationErrors[field] = err.Error()
		}
		c.changed()
		return err
	}
	c.state.Form.set(field, value)
	delete(c.state.ValidationErrors, field)
	c.changed()
	return nil
}

// SetList replaces a key-value list and revalidates all of its entries.
// The list is stored even when entries are invalid, as the editor shows
// them alongside their errors.
func (c *Controller) SetList(kind ListKind, entries []tenant.KeyValue) error {
	if _, ok := c.state.Lists[kind]; !ok {
		return fmt.Errorf("unknown key-value list %q", kind)
	}
	c.state.Lists[kind] = append([]tenant.KeyValue(nil), entries...)
	c.state.ListErrors[kind] = CheckList(kind, entries)
	c.changed()
	return nil
}

// AddListEntry appends an empty pair to a list.
func (c *Controller) AddListEntry(kind ListKind) error {
	entries := append(c.state.Lists[kind], tenant.KeyValue{})
	return c.SetList(kind, entries)
}

// SetListEntry replaces the entry at index i.
func (c *Controller) SetListEntry(kind ListKind, i int, kv tenant.KeyValue) error {
	entries := append([]tenant.KeyValue(nil), c.state.Lists[kind]...)
	if i < 0 || i >= len(entries) {
		return fmt.Errorf("%s entry %d out of range", kind, i)
	}
	entries[i] = kv
	return c.SetList(kind, entries)
}

// RemoveListEntry deletes the entry at index i. Removing the last entry
// leaves a single empty pair.
func (c *Controller) RemoveListEntry(kind ListKind, i int) error {
	entries := c.state.Lists[kind]
	if i < 0 || i >= len(entries) {
		return fmt.Errorf("%s entry %d out of range", kind, i)
	}
	out := make([]tenant.KeyValue, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	out = append(out, entries[i+1:]...)
	if len(out) == 0 {
		out = []tenant.KeyValue{{}}
	}
	return c.SetList(kind, out)
}

// Submit writes the whole form. It refuses to send anything while logging
// is disabled or while any field or list has a recorded error. A successful write is announced and then
// followed by a reload.
func (c *Controller) Submit(ctx context.Context) error {
	if !c.state.Enabled {
		c.notifier.NotifyError(&tenant.ErrorResponse{ErrorMessage: constants.MsgLoggingDisabled})
		return ErrLoggingDisabled
	}
	if !c.state.Valid() {
		c.notifier.NotifyError(&tenant.ErrorResponse{ErrorMessage: constants.MsgInvalidEntry})
		return ErrInvalidForm
	}

	body := BuildUpdate(&c.state)
	c.logger.Debug("updating audit log settings")
	if err := c.store.UpdateLog(ctx, c.ref, body); err != nil {
		c.logger.Debug("updating audit log settings failed", zap.Error(err))
		c.notifier.NotifyError(AsErrorResponse(err))
		return fmt.Errorf("updating audit log settings for %s: %w", c.ref, err)
	}

	c.notifier.Notify(constants.MsgConfigUpdated)
	return c.Load(ctx)
}

// RequestToggle opens the confirmation for switching logging to the
// opposite of the last fetched state.
func (c *Controller) RequestToggle() Confirmation {
	c.state.ToggleConfirmOpen = true
	c.changed()
	return c.confirmation()
}

// CancelToggle closes the confirmation without calling the store.
func (c *Controller) CancelToggle() {
	c.state.ToggleConfirmOpen = false
	c.changed()
}

// ConfirmToggle enables or disables logging depending on the last fetched
// state. The confirmation closes whatever the outcome. On failure the
// displayed state stays at the last successful fetch.
func (c *Controller) ConfirmToggle(ctx context.Context) error {
	if !c.state.ToggleConfirmOpen {
		return ErrNoPendingToggle
	}

	enabling := !c.state.Enabled
	var err error
	if enabling {
		c.logger.Debug("enabling audit logging")
		err = c.store.EnableLogging(ctx, c.ref)
	} else {
		c.logger.Debug("disabling audit logging")
		err = c.store.DisableLogging(ctx, c.ref)
	}

	c.state.ToggleConfirmOpen = false
	c.changed()

	if err != nil {
		msg := constants.MsgErrorDisabling
		if enabling {
			msg = constants.MsgErrorEnabling
		}
		c.notifier.NotifyError(&tenant.ErrorResponse{
			ErrorMessage:  msg,
			DetailedError: detailOf(err),
		})
		return fmt.Errorf("%s for %s: %w", msg, c.ref, err)
	}
	return c.Load(ctx)
}

func (c *Controller) confirmation() Confirmation {
	if !c.state.Enabled {
		return Confirmation{
			Title:       constants.TitleEnableLogging,
			ConfirmText: constants.ConfirmEnable,
			CancelText:  constants.ConfirmCancel,
			Content:     constants.ContentEnableLogging,
		}
	}
	return Confirmation{
		Title:       constants.TitleDisableLogging,
		ConfirmText: constants.ConfirmDisable,
		CancelText:  constants.ConfirmCancel,
		Content:     constants.ContentDisableLogging,
	}
}

func (c *Controller) clearErrors() {
	c.state.ValidationErrors = make(map[Field]string)
	for _, kind := range AllLists {
		c.state.ListErrors[kind] = make(map[int]string)
	}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange(c.state.Clone())
	}
}

func detailOf(err error) string {
	apiErr := AsErrorResponse(err)
	if apiErr.DetailedError != "" {
		return apiErr.DetailedError
	}
	return apiErr.ErrorMessage
}
