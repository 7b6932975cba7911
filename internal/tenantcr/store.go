// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

// Package tenantcr reads and writes tenant audit-log settings directly on
// the operator's Tenant custom resource. It is the Kubernetes counterpart
// of the console REST API.
package tenantcr

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"tenantlog/internal/cluster"
	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// logConfig mirrors spec.log of a Tenant.
type logConfig struct {
	Image              string                      `json:"image,omitempty"`
	Resources          corev1.ResourceRequirements `json:"resources,omitempty"`
	NodeSelector       map[string]string           `json:"nodeSelector,omitempty"`
	Annotations        map[string]string           `json:"annotations,omitempty"`
	Labels             map[string]string           `json:"labels,omitempty"`
	ServiceAccountName string                      `json:"serviceAccountName,omitempty"`
	DB                 *logDBConfig                `json:"db,omitempty"`
	Audit              *auditConfig                `json:"audit,omitempty"`
}

// logDBConfig mirrors spec.log.db of a Tenant.
type logDBConfig struct {
	Image              string                      `json:"image,omitempty"`
	InitImage          string                      `json:"initimage,omitempty"`
	Resources          corev1.ResourceRequirements `json:"resources,omitempty"`
	NodeSelector       map[string]string           `json:"nodeSelector,omitempty"`
	Annotations        map[string]string           `json:"annotations,omitempty"`
	Labels             map[string]string           `json:"labels,omitempty"`
	ServiceAccountName string                      `json:"serviceAccountName,omitempty"`
}

// auditConfig mirrors spec.log.audit of a Tenant.
type auditConfig struct {
	DiskCapacityGB *int64 `json:"diskCapacityGB,omitempty"`
}

// Store implements the audit-log store on top of a controller-runtime client.
type Store struct {
	c client.Client
}

// NewStore returns a Store using c.
func NewStore(c client.Client) *Store {
	return &Store{c: c}
}

// GetLog returns the tenant's settings. A tenant without a log block is
// reported as disabled with empty fields.
func (s *Store) GetLog(ctx context.Context, ref tenant.Ref) (*tenant.LogSettings, error) {
	obj, err := s.getTenant(ctx, ref)
	if err != nil {
		return nil, err
	}
	cfg, found, err := readLogConfig(obj)
	if err != nil {
		return nil, err
	}
	disabled := !found
	if !found {
		return &tenant.LogSettings{Disabled: &disabled}, nil
	}
	return toSettings(cfg, &disabled), nil
}

// UpdateLog writes settings into spec.log. Logging must already be enabled.
func (s *Store) UpdateLog(ctx context.Context, ref tenant.Ref, settings *tenant.LogSettings) error {
	obj, err := s.getTenant(ctx, ref)
	if err != nil {
		return err
	}
	cfg, found, err := readLogConfig(obj)
	if err != nil {
		return err
	}
	if !found {
		return &tenant.ErrorResponse{
			ErrorMessage:  "Audit logging is not enabled",
			DetailedError: fmt.Sprintf("tenant %s has no log configuration", ref),
			StatusCode:    http.StatusConflict,
		}
	}
	if err := applySettings(cfg, settings); err != nil {
		return &tenant.ErrorResponse{
			ErrorMessage:  "Invalid audit log configuration",
			DetailedError: err.Error(),
			StatusCode:    http.StatusBadRequest,
		}
	}
	return s.writeLogConfig(ctx, obj, cfg)
}

// EnableLogging adds a default log block. A tenant that already has one is
// left untouched.
func (s *Store) EnableLogging(ctx context.Context, ref tenant.Ref) error {
	obj, err := s.getTenant(ctx, ref)
	if err != nil {
		return err
	}
	if _, found, err := readLogConfig(obj); err != nil || found {
		return err
	}
	return s.writeLogConfig(ctx, obj, defaultLogConfig())
}

// DisableLogging removes the log block.
func (s *Store) DisableLogging(ctx context.Context, ref tenant.Ref) error {
	obj, err := s.getTenant(ctx, ref)
	if err != nil {
		return err
	}
	unstructured.RemoveNestedField(obj.Object, "spec", "log")
	if err := s.c.Update(ctx, obj); err != nil {
		return fmt.Errorf("updating tenant %s: %w", ref, err)
	}
	return nil
}

func (s *Store) getTenant(ctx context.Context, ref tenant.Ref) (*unstructured.Unstructured, error) {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(cluster.TenantGVK)
	key := client.ObjectKey{Name: ref.Name, Namespace: ref.Namespace}
	if err := s.c.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, &tenant.ErrorResponse{
				ErrorMessage:  "Tenant not found",
				DetailedError: err.Error(),
				StatusCode:    http.StatusNotFound,
			}
		}
		return nil, fmt.Errorf("getting tenant %s: %w", ref, err)
	}
	return obj, nil
}

func (s *Store) writeLogConfig(ctx context.Context, obj *unstructured.Unstructured, cfg *logConfig) error {
	m, err := runtime.DefaultUnstructuredConverter.ToUnstructured(cfg)
	if err != nil {
		return fmt.Errorf("converting log configuration: %w", err)
	}
	if err := unstructured.SetNestedMap(obj.Object, m, "spec", "log"); err != nil {
		return fmt.Errorf("setting spec.log: %w", err)
	}
	if err := s.c.Update(ctx, obj); err != nil {
		return fmt.Errorf("updating tenant %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}
	return nil
}

func readLogConfig(obj *unstructured.Unstructured) (*logConfig, bool, error) {
	m, found, err := unstructured.NestedMap(obj.Object, "spec", "log")
	if err != nil {
		return nil, false, fmt.Errorf("reading spec.log: %w", err)
	}
	if !found || m == nil {
		return nil, false, nil
	}
	cfg := &logConfig{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(m, cfg); err != nil {
		return nil, false, fmt.Errorf("decoding spec.log: %w", err)
	}
	return cfg, true, nil
}

func defaultLogConfig() *logConfig {
	disk := int64(constants.DefaultLogDiskCapacityGB)
	return &logConfig{
		Image: constants.DefaultLogImage,
		DB: &logDBConfig{
			Image:     constants.DefaultLogDBImage,
			InitImage: constants.DefaultLogDBInitImage,
		},
		Audit: &auditConfig{DiskCapacityGB: &disk},
	}
}

func toSettings(cfg *logConfig, disabled *bool) *tenant.LogSettings {
	out := &tenant.LogSettings{
		Enabled:            !*disabled,
		Disabled:           disabled,
		Image:              cfg.Image,
		ServiceAccountName: cfg.ServiceAccountName,
		CPURequest:         quantityString(cfg.Resources.Requests, corev1.ResourceCPU),
		MemRequest:         quantityBytes(cfg.Resources.Requests, corev1.ResourceMemory),
		Labels:             toKeyValues(cfg.Labels),
		Annotations:        toKeyValues(cfg.Annotations),
		NodeSelector:       toKeyValues(cfg.NodeSelector),
		DBLabels:           []tenant.KeyValue{},
		DBAnnotations:      []tenant.KeyValue{},
		DBNodeSelector:     []tenant.KeyValue{},
	}
	if cfg.Audit != nil && cfg.Audit.DiskCapacityGB != nil {
		out.DiskCapacityGB = tenant.NumericString(strconv.FormatInt(*cfg.Audit.DiskCapacityGB, 10))
	}
	if db := cfg.DB; db != nil {
		out.DBImage = db.Image
		out.DBInitImage = db.InitImage
		out.DBServiceAccountName = db.ServiceAccountName
		out.DBCPURequest = quantityString(db.Resources.Requests, corev1.ResourceCPU)
		out.DBMemRequest = quantityBytes(db.Resources.Requests, corev1.ResourceMemory)
		out.DBLabels = toKeyValues(db.Labels)
		out.DBAnnotations = toKeyValues(db.Annotations)
		out.DBNodeSelector = toKeyValues(db.NodeSelector)
	}
	return out
}

func applySettings(cfg *logConfig, in *tenant.LogSettings) error {
	cfg.Image = in.Image
	cfg.ServiceAccountName = in.ServiceAccountName
	cfg.Labels = toMap(in.Labels)
	cfg.Annotations = toMap(in.Annotations)
	cfg.NodeSelector = toMap(in.NodeSelector)
	if err := setRequests(&cfg.Resources, in.CPURequest, in.MemRequest); err != nil {
		return err
	}

	if in.DiskCapacityGB != "" {
		disk, err := strconv.ParseInt(string(in.DiskCapacityGB), 10, 64)
		if err != nil {
			return fmt.Errorf("diskCapacityGB %q: %w", in.DiskCapacityGB, err)
		}
		if cfg.Audit == nil {
			cfg.Audit = &auditConfig{}
		}
		cfg.Audit.DiskCapacityGB = &disk
	}

	if cfg.DB == nil {
		cfg.DB = &logDBConfig{}
	}
	cfg.DB.Image = in.DBImage
	cfg.DB.InitImage = in.DBInitImage
	cfg.DB.ServiceAccountName = in.DBServiceAccountName
	cfg.DB.Labels = toMap(in.DBLabels)
	cfg.DB.Annotations = toMap(in.DBAnnotations)
	cfg.DB.NodeSelector = toMap(in.DBNodeSelector)
	return setRequests(&cfg.DB.Resources, in.DBCPURequest, in.DBMemRequest)
}

func setRequests(res *corev1.ResourceRequirements, cpu, mem string) error {
	if res.Requests == nil {
		res.Requests = corev1.ResourceList{}
	}
	for name, v := range map[corev1.ResourceName]string{
		corev1.ResourceCPU:    cpu,
		corev1.ResourceMemory: mem,
	} {
		if v == "" {
			delete(res.Requests, name)
			continue
		}
		q, err := resource.ParseQuantity(v)
		if err != nil {
			return fmt.Errorf("%s request %q: %w", name, v, err)
		}
		if q.IsZero() {
			delete(res.Requests, name)
			continue
		}
		res.Requests[name] = q
	}
	return nil
}

func quantityString(list corev1.ResourceList, name corev1.ResourceName) string {
	q, ok := list[name]
	if !ok {
		return ""
	}
	return q.String()
}

// quantityBytes reports a memory request the way the console does, in
// bytes of whole gigabytes, so that the form's gigabyte count written back
// with the Gi suffix yields the same quantity. Values that are not a whole
// number of Gi are rounded up.
func quantityBytes(list corev1.ResourceList, name corev1.ResourceName) string {
	q, ok := list[name]
	if !ok {
		return ""
	}
	gi := (q.Value() + constants.BytesPerGi - 1) / constants.BytesPerGi
	return strconv.FormatInt(gi*constants.BytesPerGB, 10)
}

// toKeyValues returns the map's entries sorted by key.
func toKeyValues(m map[string]string) []tenant.KeyValue {
	out := make([]tenant.KeyValue, 0, len(m))
	for k, v := range m {
		out = append(out, tenant.KeyValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func toMap(kvs []tenant.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		if k := strings.TrimSpace(kv.Key); k != "" {
			m[k] = kv.Value
		}
	}
	return m
}
