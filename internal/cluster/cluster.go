// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"tenantlog/internal/constants"
)

// TenantGVK is the group/version/kind of the operator's Tenant resource.
var TenantGVK = schema.GroupVersionKind{
	Group:   constants.TenantAPIGroup,
	Version: constants.TenantAPIVersion,
	Kind:    constants.TenantKind,
}

// NewScheme builds a runtime.Scheme with core K8s types registered and the
// Tenant kind mapped to unstructured objects.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	scheme.AddKnownTypeWithName(TenantGVK, &unstructured.Unstructured{})
	scheme.AddKnownTypeWithName(TenantGVK.GroupVersion().WithKind(constants.TenantKind+"List"), &unstructured.UnstructuredList{})
	return scheme
}

// Connect creates a controller-runtime client.Client. It first attempts
// in-cluster configuration; on failure it falls back to the kubeconfig at
// the given path. Both failures produce a wrapped error.
func Connect(kubeconfigPath string) (client.Client, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubeconfig from %q: %w", kubeconfigPath, err)
		}
	}

	c, err := client.New(restConfig, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: %w", err)
	}

	return c, nil
}
