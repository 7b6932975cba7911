// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

// Package tenant holds the tenant types shared by the console client, the
// Kubernetes backend and the audit-log form.
package tenant

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Ref identifies a tenant by namespace and name.
type Ref struct {
	Namespace string
	Name      string
}

func (r Ref) String() string {
	return r.Namespace + "/" + r.Name
}

// KeyValue is one entry of a label, annotation or node-selector list.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// NumericString is a decimal value that the console sends either as a JSON
// number or as a string. It always marshals as a string.
type NumericString string

// UnmarshalJSON accepts a number, a string or null.
func (n *NumericString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decoding numeric value %s: %w", string(data), err)
	}
	*n = NumericString(num.String())
	return nil
}

// Int returns the value as an integer. Empty and malformed values yield 0.
func (n NumericString) Int() int64 {
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// LogSettings is the audit-logging configuration of a tenant as exchanged
// with the console API. Enabled and Disabled are only present in responses.
type LogSettings struct {
	Enabled  bool  `json:"auditLoggingEnabled,omitempty" yaml:"auditLoggingEnabled,omitempty"`
	Disabled *bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`

	Image                string        `json:"image" yaml:"image"`
	DBImage              string        `json:"dbImage" yaml:"dbImage"`
	DBInitImage          string        `json:"dbInitImage" yaml:"dbInitImage"`
	DiskCapacityGB       NumericString `json:"diskCapacityGB" yaml:"diskCapacityGB"`
	ServiceAccountName   string        `json:"serviceAccountName" yaml:"serviceAccountName"`
	DBServiceAccountName string        `json:"dbServiceAccountName" yaml:"dbServiceAccountName"`
	CPURequest           string        `json:"logCPURequest" yaml:"logCPURequest"`
	MemRequest           string        `json:"logMemRequest" yaml:"logMemRequest"`
	DBCPURequest         string        `json:"logDBCPURequest" yaml:"logDBCPURequest"`
	DBMemRequest         string        `json:"logDBMemRequest" yaml:"logDBMemRequest"`

	Labels         []KeyValue `json:"labels" yaml:"labels"`
	Annotations    []KeyValue `json:"annotations" yaml:"annotations"`
	NodeSelector   []KeyValue `json:"nodeSelector" yaml:"nodeSelector"`
	DBLabels       []KeyValue `json:"dbLabels" yaml:"dbLabels"`
	DBAnnotations  []KeyValue `json:"dbAnnotations" yaml:"dbAnnotations"`
	DBNodeSelector []KeyValue `json:"dbNodeSelector" yaml:"dbNodeSelector"`
}

// IsEnabled reports whether logging is on. The disabled field wins when the
// server sends it.
func (s *LogSettings) IsEnabled() bool {
	if s.Disabled != nil {
		return !*s.Disabled
	}
	return s.Enabled
}

// ErrorResponse is the error body shared by all console endpoints.
type ErrorResponse struct {
	Code          int32  `json:"code,omitempty"`
	ErrorMessage  string `json:"message"`
	DetailedError string `json:"detailedMessage,omitempty"`
	StatusCode    int    `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.DetailedError != "" && e.DetailedError != e.ErrorMessage {
		return e.ErrorMessage + ": " + e.DetailedError
	}
	return e.ErrorMessage
}
