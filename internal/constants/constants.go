// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package constants

import "time"

// Console REST API paths. Each takes namespace and tenant name.
const (
	TenantLogPathFmt      = "/api/v1/namespaces/%s/tenants/%s/log"
	EnableLoggingPathFmt  = "/api/v1/namespaces/%s/tenants/%s/enable-logging"
	DisableLoggingPathFmt = "/api/v1/namespaces/%s/tenants/%s/disable-logging"
	SessionCookieName     = "token"
)

// Tenant custom resource coordinates.
const (
	TenantAPIGroup   = "minio.min.io"
	TenantAPIVersion = "v2"
	TenantKind       = "Tenant"
)

// Backend names.
const (
	BackendAPI        = "api"
	BackendKubernetes = "kubernetes"
)

// Field validation patterns.
const (
	ImagePattern          = `^[a-zA-Z0-9\-./:]{1,253}$`
	ServiceAccountPattern = `^[a-zA-Z0-9\-.]{1,253}$`
	NumericPattern        = `^[0-9]*$`
)

// Upper bounds for numeric fields, in gigabytes.
const (
	MaxDiskCapacityGB = 1 << 20
	MaxMemoryGB       = 1 << 20
)

// Memory values arrive in bytes and are edited in whole gigabytes.
const (
	BytesPerGB       = 1000000000
	BytesPerGi       = 1 << 30
	MemoryUnitSuffix = "Gi"
	DefaultMemoryGB  = "0"
)

// Defaults written by the Kubernetes backend when logging is enabled.
const (
	DefaultLogImage          = "minio/operator:v4.4.22"
	DefaultLogDBImage        = "library/postgres:13"
	DefaultLogDBInitImage    = "library/busybox:1.33.1"
	DefaultLogDiskCapacityGB = 5
)

// Client defaults.
const (
	DefaultEndpoint       = "http://localhost:9090"
	DefaultNamespace      = "default"
	DefaultBackend        = BackendAPI
	DefaultRequestTimeout = 30 * time.Second
	DefaultHistoryDBPath  = "~/.tenantlog/history.db"
	DefaultOutputFormat   = "yaml"
)

// Polling defaults for logging state changes.
const (
	DefaultWaitTimeout  = 300 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// User-facing notification text.
const (
	MsgConfigUpdated      = "Audit Log configuration updated."
	MsgInvalidEntry       = "Invalid entry"
	MsgLoggingDisabled    = "Audit logging is not enabled"
	MsgErrorEnabling      = "Error enabling logging"
	MsgErrorDisabling     = "Error disabling logging"
	TitleEnableLogging    = "Enable Audit Logging for this tenant?"
	TitleDisableLogging   = "Disable Audit Logging for this tenant?"
	ConfirmEnable         = "Enable"
	ConfirmDisable        = "Disable"
	ConfirmCancel         = "Cancel"
	ContentEnableLogging  = "A small Postgres server will be started per the configuration provided, which will collect the audit logs for your tenant."
	ContentDisableLogging = "Current configuration will be lost, and defaults reset if reenabled."
)
