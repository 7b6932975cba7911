// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// applySettings copies a fetched settings object into s. Error maps are
// left alone; the caller decides whether to reset them.
func applySettings(s *State, res *tenant.LogSettings) {
	s.Enabled = res.IsEnabled()
	s.Loaded = true
	s.Form = Form{
		Image:                res.Image,
		DBImage:              res.DBImage,
		DBInitImage:          res.DBInitImage,
		DiskCapacityGB:       res.DiskCapacityGB.Int(),
		CPURequest:           res.CPURequest,
		DBCPURequest:         res.DBCPURequest,
		MemRequest:           BytesToGB(res.MemRequest),
		DBMemRequest:         BytesToGB(res.DBMemRequest),
		ServiceAccountName:   res.ServiceAccountName,
		DBServiceAccountName: res.DBServiceAccountName,
	}
	s.Lists[ListLabels] = orDefaultPair(res.Labels)
	s.Lists[ListAnnotations] = orDefaultPair(res.Annotations)
	s.Lists[ListNodeSelector] = orDefaultPair(res.NodeSelector)
	s.Lists[ListDBLabels] = orDefaultPair(res.DBLabels)
	s.Lists[ListDBAnnotations] = orDefaultPair(res.DBAnnotations)
	s.Lists[ListDBNodeSelector] = orDefaultPair(res.DBNodeSelector)
}

// BuildUpdate produces the body of a settings write: every list without
// empty-key entries and memory requests carrying the unit suffix.
func BuildUpdate(s *State) *tenant.LogSettings {
	return &tenant.LogSettings{
		Image:                s.Form.Image,
		DBImage:              s.Form.DBImage,
		DBInitImage:          s.Form.DBInitImage,
		DiskCapacityGB:       tenant.NumericString(formatInt(s.Form.DiskCapacityGB)),
		ServiceAccountName:   s.Form.ServiceAccountName,
		DBServiceAccountName: s.Form.DBServiceAccountName,
		CPURequest:           s.Form.CPURequest,
		MemRequest:           withMemoryUnit(s.Form.MemRequest),
		DBCPURequest:         s.Form.DBCPURequest,
		DBMemRequest:         withMemoryUnit(s.Form.DBMemRequest),
		Labels:               TrimEmptyKeys(s.Lists[ListLabels]),
		Annotations:          TrimEmptyKeys(s.Lists[ListAnnotations]),
		NodeSelector:         TrimEmptyKeys(s.Lists[ListNodeSelector]),
		DBLabels:             TrimEmptyKeys(s.Lists[ListDBLabels]),
		DBAnnotations:        TrimEmptyKeys(s.Lists[ListDBAnnotations]),
		DBNodeSelector:       TrimEmptyKeys(s.Lists[ListDBNodeSelector]),
	}
}

// BytesToGB converts a byte quantity to whole gigabytes, rounding down.
// Empty or unparsable input yields "0".
func BytesToGB(v string) string {
	if v == "" {
		return constants.DefaultMemoryGB
	}
	q, err := resource.ParseQuantity(v)
	if err != nil {
		return constants.DefaultMemoryGB
	}
	return formatInt(q.Value() / constants.BytesPerGB)
}

// TrimEmptyKeys drops entries whose key is empty. The result is never nil
// so that it encodes as an empty JSON array.
func TrimEmptyKeys(in []tenant.KeyValue) []tenant.KeyValue {
	out := make([]tenant.KeyValue, 0, len(in))
	for _, kv := range in {
		if kv.Key != "" {
			out = append(out, kv)
		}
	}
	return out
}

func withMemoryUnit(gb string) string {
	if gb == "" {
		gb = constants.DefaultMemoryGB
	}
	return strings.TrimSuffix(gb, constants.MemoryUnitSuffix) + constants.MemoryUnitSuffix
}

func orDefaultPair(in []tenant.KeyValue) []tenant.KeyValue {
	if len(in) == 0 {
		return []tenant.KeyValue{{}}
	}
	return append([]tenant.KeyValue(nil), in...)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseIntOrZero(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
