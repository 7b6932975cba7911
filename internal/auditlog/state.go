// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"tenantlog/internal/tenant"
)

// Field names a scalar form field. The value doubles as the key of the
// field's validation error.
type Field string

const (
	FieldImage                Field = "image"
	FieldDBImage              Field = "dbImage"
	FieldDBInitImage          Field = "dbInitImage"
	FieldDiskCapacityGB       Field = "diskCapacityGB"
	FieldCPURequest           Field = "cpuRequest"
	FieldDBCPURequest         Field = "dbCPURequest"
	FieldMemRequest           Field = "memRequest"
	FieldDBMemRequest         Field = "dbMemRequest"
	FieldServiceAccountName   Field = "serviceAccountName"
	FieldDBServiceAccountName Field = "dbServiceAccountName"
)

// AllFields lists every scalar field in display order.
var AllFields = []Field{
	FieldImage, FieldDBImage, FieldDBInitImage, FieldDiskCapacityGB,
	FieldCPURequest, FieldDBCPURequest, FieldMemRequest, FieldDBMemRequest,
	FieldServiceAccountName, FieldDBServiceAccountName,
}

// ListKind names one of the six key-value lists.
type ListKind string

const (
	ListLabels         ListKind = "labels"
	ListAnnotations    ListKind = "annotations"
	ListNodeSelector   ListKind = "nodeSelector"
	ListDBLabels       ListKind = "dbLabels"
	ListDBAnnotations  ListKind = "dbAnnotations"
	ListDBNodeSelector ListKind = "dbNodeSelector"
)

// AllLists lists every key-value list in display order.
var AllLists = []ListKind{
	ListLabels, ListAnnotations, ListNodeSelector,
	ListDBLabels, ListDBAnnotations, ListDBNodeSelector,
}

// Form holds the editable scalar values. Memory requests are whole
// gigabytes without a unit.
type Form struct {
	Image                string
	DBImage              string
	DBInitImage          string
	DiskCapacityGB       int64
	CPURequest           string
	DBCPURequest         string
	MemRequest           string
	DBMemRequest         string
	ServiceAccountName   string
	DBServiceAccountName string
}

// Get returns the display value of a field.
func (f *Form) Get(field Field) string {
	switch field {
	case FieldImage:
		return f.Image
	case FieldDBImage:
		return f.DBImage
	case FieldDBInitImage:
		return f.DBInitImage
	case FieldDiskCapacityGB:
		return formatInt(f.DiskCapacityGB)
	case FieldCPURequest:
		return f.CPURequest
	case FieldDBCPURequest:
		return f.DBCPURequest
	case FieldMemRequest:
		return f.MemRequest
	case FieldDBMemRequest:
		return f.DBMemRequest
	case FieldServiceAccountName:
		return f.ServiceAccountName
	case FieldDBServiceAccountName:
		return f.DBServiceAccountName
	}
	return ""
}

// set stores an already validated value.
func (f *Form) set(field Field, value string) {
	switch field {
	case FieldImage:
		f.Image = value
	case FieldDBImage:
		f.DBImage = value
	case FieldDBInitImage:
		f.DBInitImage = value
	case FieldDiskCapacityGB:
		f.DiskCapacityGB = parseIntOrZero(value)
	case FieldCPURequest:
		f.CPURequest = value
	case FieldDBCPURequest:
		f.DBCPURequest = value
	case FieldMemRequest:
		f.MemRequest = value
	case FieldDBMemRequest:
		f.DBMemRequest = value
	case FieldServiceAccountName:
		f.ServiceAccountName = value
	case FieldDBServiceAccountName:
		f.DBServiceAccountName = value
	}
}

// State is everything the audit-log screen displays. Values handed out by
// the Controller are copies; mutating them has no effect on the controller.
type State struct {
	Enabled bool
	Loaded  bool
	Form    Form
	Lists   map[ListKind][]tenant.KeyValue

	// ValidationErrors is keyed by field name.
	ValidationErrors map[Field]string
	// ListErrors holds one map per list, keyed by entry index.
	ListErrors map[ListKind]map[int]string

	ToggleConfirmOpen bool
}

func newState() State {
	s := State{
		Lists:            make(map[ListKind][]tenant.KeyValue, len(AllLists)),
		ValidationErrors: make(map[Field]string),
		ListErrors:       make(map[ListKind]map[int]string, len(AllLists)),
	}
	for _, kind := range AllLists {
		s.Lists[kind] = []tenant.KeyValue{{}}
		s.ListErrors[kind] = make(map[int]string)
	}
	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Lists = make(map[ListKind][]tenant.KeyValue, len(s.Lists))
	for k, v := range s.Lists {
		out.Lists[k] = append([]tenant.KeyValue(nil), v...)
	}
	out.ValidationErrors = make(map[Field]string, len(s.ValidationErrors))
	for k, v := range s.ValidationErrors {
		out.ValidationErrors[k] = v
	}
	out.ListErrors = make(map[ListKind]map[int]string, len(s.ListErrors))
	for k, m := range s.ListErrors {
		cp := make(map[int]string, len(m))
		for i, v := range m {
			cp[i] = v
		}
		out.ListErrors[k] = cp
	}
	return out
}

// Valid reports whether no error map holds an entry. The global map and
// the six list maps are all consulted.
func (s *State) Valid() bool {
	if len(s.ValidationErrors) != 0 {
		return false
	}
	for _, kind := range AllLists {
		if len(s.ListErrors[kind]) != 0 {
			return false
		}
	}
	return true
}

// Confirmation describes the dialog shown before logging is toggled.
type Confirmation struct {
	Title       string
	ConfirmText string
	CancelText  string
	Content     string
}
