// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package wait_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"tenantlog/internal/cluster"
	"tenantlog/internal/tenant"
	"tenantlog/internal/tenantcr"
	"tenantlog/internal/testutil"
	"tenantlog/internal/wait"
)

func auditLog() map[string]interface{} {
	return map[string]interface{}{
		"image": "minio/operator:v4.4.22",
		"audit": map[string]interface{}{"diskCapacityGB": int64(5)},
	}
}

var _ = Describe("WaitForLoggingState", func() {
	var (
		ctx    context.Context
		scheme = cluster.NewScheme()
		ref    = tenant.Ref{Namespace: "default", Name: "storage"}
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should return nil when the state is already reached", func() {
		c := fake.NewClientBuilder().WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, auditLog())).Build()

		err := wait.WaitForLoggingState(ctx, tenantcr.NewStore(c), ref, true, 5*time.Second, 10*time.Millisecond, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should return nil after N polls", func() {
		var callCount int32
		c := fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).
			WithInterceptorFuncs(interceptor.Funcs{
				Get: func(ctx context.Context, cl client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
					if err := cl.Get(ctx, key, obj, opts...); err != nil {
						return err
					}
					count := atomic.AddInt32(&callCount, 1)
					if u, ok := obj.(*unstructured.Unstructured); ok && count >= 3 {
						_ = unstructured.SetNestedMap(u.Object, auditLog(), "spec", "log")
					}
					return nil
				},
			}).
			Build()

		err := wait.WaitForLoggingState(ctx, tenantcr.NewStore(c), ref, true, 5*time.Second, 10*time.Millisecond, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&callCount)).To(BeNumerically(">=", int32(3)))
	})

	It("should wait for logging to be disabled", func() {
		c := fake.NewClientBuilder().WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()

		err := wait.WaitForLoggingState(ctx, tenantcr.NewStore(c), ref, false, 5*time.Second, 10*time.Millisecond, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should return error on timeout", func() {
		c := fake.NewClientBuilder().WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()

		err := wait.WaitForLoggingState(ctx, tenantcr.NewStore(c), ref, true, 50*time.Millisecond, 10*time.Millisecond, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("timed out"))
		Expect(err.Error()).To(ContainSubstring("default/storage"))
	})

	It("should keep polling through read errors", func() {
		var callCount int32
		c := fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, auditLog())).
			WithInterceptorFuncs(interceptor.Funcs{
				Get: func(ctx context.Context, cl client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
					if atomic.AddInt32(&callCount, 1) < 3 {
						return errors.New("etcdserver: request timed out")
					}
					return cl.Get(ctx, key, obj, opts...)
				},
			}).
			Build()

		core, logs := observer.New(zapcore.DebugLevel)
		err := wait.WaitForLoggingState(ctx, tenantcr.NewStore(c), ref, true, 5*time.Second, 10*time.Millisecond, zap.New(core))
		Expect(err).NotTo(HaveOccurred())
		Expect(logs.FilterMessage("reading logging state, retrying").Len()).To(Equal(2))
	})

	It("should respect context cancellation", func() {
		c := fake.NewClientBuilder().WithScheme(scheme).
			WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		err := wait.WaitForLoggingState(cancelCtx, tenantcr.NewStore(c), ref, true, 10*time.Second, 10*time.Millisecond, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("context cancelled"))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
