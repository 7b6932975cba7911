// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

// Package console is a client for the operator console REST API endpoints
// that manage tenant audit logging.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// Config holds console connection settings.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client talks to the console REST API. Requests are never retried.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a Client for the given configuration. A nil logger is
// replaced with a no-op logger.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("console endpoint not configured")
	}
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing console endpoint %q: %w", config.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("console endpoint %q must use http or https", config.Endpoint)
	}
	if config.Timeout <= 0 {
		config.Timeout = constants.DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     config,
		baseURL:    strings.TrimRight(config.Endpoint, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// GetLog fetches the audit-log settings of a tenant.
func (c *Client) GetLog(ctx context.Context, ref tenant.Ref) (*tenant.LogSettings, error) {
	var settings tenant.LogSettings
	if err := c.do(ctx, http.MethodGet, tenantPath(constants.TenantLogPathFmt, ref), nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateLog replaces the audit-log settings of a tenant.
func (c *Client) UpdateLog(ctx context.Context, ref tenant.Ref, settings *tenant.LogSettings) error {
	return c.do(ctx, http.MethodPut, tenantPath(constants.TenantLogPathFmt, ref), settings, nil)
}

// EnableLogging turns on the audit-logging sidecar of a tenant.
func (c *Client) EnableLogging(ctx context.Context, ref tenant.Ref) error {
	return c.do(ctx, http.MethodPost, tenantPath(constants.EnableLoggingPathFmt, ref), nil, nil)
}

// DisableLogging turns off the audit-logging sidecar of a tenant.
func (c *Client) DisableLogging(ctx context.Context, ref tenant.Ref) error {
	return c.do(ctx, http.MethodPost, tenantPath(constants.DisableLoggingPathFmt, ref), nil, nil)
}

func tenantPath(format string, ref tenant.Ref) string {
	return fmt.Sprintf(format, url.PathEscape(ref.Namespace), url.PathEscape(ref.Name))
}

// do sends one request. A non-2xx status is decoded into a
// *tenant.ErrorResponse.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: c.config.Token})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response of %s %s: %w", method, path, err)
	}
	c.logger.Debug("console request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	apiErr := &tenant.ErrorResponse{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.ErrorMessage == "" {
		apiErr.ErrorMessage = http.StatusText(status)
		if text := strings.TrimSpace(string(data)); text != "" && err != nil {
			apiErr.DetailedError = text
		}
	}
	apiErr.StatusCode = status
	return apiErr
}
