// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// Rule constrains the text of one field. Max is ignored when zero.
type Rule struct {
	Pattern *regexp.Regexp
	Max     int64
	Message string
}

// FieldError is returned when an edit is rejected.
type FieldError struct {
	Field   Field
	Value   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// Validator holds the per-field rules.
type Validator struct {
	rules map[Field]Rule
}

// NewValidator returns a Validator with the standard audit-log rules.
func NewValidator() *Validator {
	image := regexp.MustCompile(constants.ImagePattern)
	serviceAccount := regexp.MustCompile(constants.ServiceAccountPattern)
	numeric := regexp.MustCompile(constants.NumericPattern)

	imageRule := Rule{Pattern: image, Message: "must be a valid image reference"}
	saRule := Rule{Pattern: serviceAccount, Message: "must be a valid service account name"}
	cpuRule := Rule{Pattern: numeric, Message: "must be a whole number"}

	return &Validator{rules: map[Field]Rule{
		FieldImage:                imageRule,
		FieldDBImage:              imageRule,
		FieldDBInitImage:          imageRule,
		FieldServiceAccountName:   saRule,
		FieldDBServiceAccountName: saRule,
		FieldCPURequest:           cpuRule,
		FieldDBCPURequest:         cpuRule,
		FieldDiskCapacityGB: {
			Pattern: numeric,
			Max:     constants.MaxDiskCapacityGB,
			Message: "must be a whole number of gigabytes",
		},
		FieldMemRequest: {
			Pattern: numeric,
			Max:     constants.MaxMemoryGB,
			Message: "must be a whole number of gigabytes",
		},
		FieldDBMemRequest: {
			Pattern: numeric,
			Max:     constants.MaxMemoryGB,
			Message: "must be a whole number of gigabytes",
		},
	}}
}

// Check validates value for field. Unknown fields are rejected.
func (v *Validator) Check(field Field, value string) error {
	rule, ok := v.rules[field]
	if !ok {
		return &FieldError{Field: field, Value: value, Message: "unknown field"}
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return &FieldError{Field: field, Value: value, Message: rule.Message}
	}
	if rule.Max > 0 && value != "" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n > rule.Max {
			return &FieldError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("must not exceed %d", rule.Max),
			}
		}
	}
	return nil
}

// CheckList validates every entry of a key-value list and returns the
// errors keyed by entry index. Entries with an empty key are skipped since
// they are dropped on submit.
func CheckList(kind ListKind, entries []tenant.KeyValue) map[int]string {
	errs := make(map[int]string)
	for i, kv := range entries {
		if kv.Key == "" {
			continue
		}
		if msgs := checkEntry(kind, kv); len(msgs) > 0 {
			errs[i] = strings.Join(msgs, "; ")
		}
	}
	return errs
}

func checkEntry(kind ListKind, kv tenant.KeyValue) []string {
	var msgs []string
	for _, m := range validation.IsQualifiedName(kv.Key) {
		msgs = append(msgs, "key: "+m)
	}
	switch kind {
	case ListAnnotations, ListDBAnnotations:
		// annotation values are free-form
	default:
		for _, m := range validation.IsValidLabelValue(kv.Value) {
			msgs = append(msgs, "value: "+m)
		}
	}
	return msgs
}
