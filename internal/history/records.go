// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package history

// Operation names.
const (
	OpLoad    = "load"
	OpUpdate  = "update"
	OpEnable  = "enable"
	OpDisable = "disable"
)

// Operation statuses.
const (
	StatusInProgress = "in_progress"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// OperationRecord holds data for inserting an operations row.
type OperationRecord struct {
	Operation   string
	Backend     string
	Namespace   string
	Tenant      string
	RequestBody string
}

// Entry is one row of the operations table.
type Entry struct {
	ID           int64  `json:"id"`
	OperationID  string `json:"operationID"`
	Operation    string `json:"operation"`
	Backend      string `json:"backend"`
	Namespace    string `json:"namespace"`
	Tenant       string `json:"tenant"`
	Status       string `json:"status"`
	RequestBody  string `json:"requestBody,omitempty"`
	ErrorSummary string `json:"errorSummary,omitempty"`
	StartedAt    string `json:"startedAt"`
	CompletedAt  string `json:"completedAt,omitempty"`
}
