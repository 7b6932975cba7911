// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared helpers for unit, integration and E2E
// tests. This package has no build tags; it is a pure library imported only
// by test files.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"tenantlog/internal/cluster"
)

// UniqueName returns a name like "tenantlog-test-<prefix>-<random>" to avoid
// collisions between parallel test runs.
func UniqueName(prefix string) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("tenantlog-test-%s-%s", prefix, hex.EncodeToString(b))
}

// MustConnect connects to the cluster using the given kubeconfig path.
// If kubeconfigPath is empty, it checks the KUBECONFIG environment variable
// before falling back to default kubeconfig resolution.
// Panics on failure, which suits test setup where a connection failure
// should abort the suite.
func MustConnect(kubeconfigPath string) client.Client {
	if kubeconfigPath == "" {
		kubeconfigPath = os.Getenv("KUBECONFIG")
	}
	c, err := cluster.Connect(kubeconfigPath)
	if err != nil {
		panic(fmt.Sprintf("testutil.MustConnect: %v", err))
	}
	return c
}

// NewTenant returns an unstructured Tenant. A non-nil log is set as
// spec.log.
func NewTenant(namespace, name string, log map[string]interface{}) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"spec": map[string]interface{}{
			"pools": []interface{}{
				map[string]interface{}{"name": "pool-0", "servers": int64(4), "volumesPerServer": int64(4)},
			},
		},
	}}
	obj.SetGroupVersionKind(cluster.TenantGVK)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	if log != nil {
		_ = unstructured.SetNestedMap(obj.Object, log, "spec", "log")
	}
	return obj
}

// EnsureTestNamespace creates a namespace for use in integration tests.
func EnsureTestNamespace(ctx context.Context, c client.Client, namespace string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: namespace,
		},
	}
	err := c.Create(ctx, ns)
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

// DeleteTestNamespace removes a namespace created by EnsureTestNamespace.
// Errors are ignored; suitable for use with Ginkgo's DeferCleanup.
func DeleteTestNamespace(ctx context.Context, c client.Client, namespace string) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}}
	_ = c.Delete(ctx, ns)
}
