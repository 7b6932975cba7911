// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package tenantcr_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"tenantlog/internal/auditlog"
	"tenantlog/internal/cluster"
	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
	"tenantlog/internal/tenantcr"
	"tenantlog/internal/testutil"
)

func enabledLog() map[string]interface{} {
	return map[string]interface{}{
		"image":              "minio/operator:v4.4.22",
		"serviceAccountName": "audit-sa",
		"labels": map[string]interface{}{
			"team": "storage",
			"app":  "audit",
		},
		"resources": map[string]interface{}{
			"requests": map[string]interface{}{
				"cpu":    "500m",
				"memory": "2Gi",
			},
		},
		"db": map[string]interface{}{
			"image":     "library/postgres:13",
			"initimage": "library/busybox:1.33.1",
			"resources": map[string]interface{}{
				"requests": map[string]interface{}{
					"memory": "1Gi",
				},
			},
		},
		"audit": map[string]interface{}{
			"diskCapacityGB": int64(10),
		},
	}
}

func fetchTenant(ctx context.Context, c client.Client, ref tenant.Ref) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(cluster.TenantGVK)
	Expect(c.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, obj)).To(Succeed())
	return obj
}

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		scheme = cluster.NewScheme()
		ref    = tenant.Ref{Namespace: "tenant-ns", Name: "storage"}
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("GetLog", func() {
		It("should report a tenant without a log block as disabled", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()

			s, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.IsEnabled()).To(BeFalse())
			Expect(s.Disabled).NotTo(BeNil())
			Expect(*s.Disabled).To(BeTrue())
			Expect(s.Image).To(BeEmpty())
		})

		It("should map the log block", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()

			s, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.IsEnabled()).To(BeTrue())
			Expect(s.Image).To(Equal("minio/operator:v4.4.22"))
			Expect(s.ServiceAccountName).To(Equal("audit-sa"))
			Expect(s.CPURequest).To(Equal("500m"))
			Expect(s.MemRequest).To(Equal("2000000000"))
			Expect(s.DiskCapacityGB).To(Equal(tenant.NumericString("10")))
			Expect(s.DBImage).To(Equal("library/postgres:13"))
			Expect(s.DBInitImage).To(Equal("library/busybox:1.33.1"))
			Expect(s.DBMemRequest).To(Equal("1000000000"))
			Expect(s.DBCPURequest).To(BeEmpty())
		})

		It("should return map entries sorted by key", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()

			s, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Labels).To(Equal([]tenant.KeyValue{
				{Key: "app", Value: "audit"},
				{Key: "team", Value: "storage"},
			}))
			Expect(s.Annotations).To(BeEmpty())
			Expect(s.NodeSelector).NotTo(BeNil())
			Expect(s.DBLabels).NotTo(BeNil())
		})

		It("should return a 404 error response for a missing tenant", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).Build()

			_, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).To(HaveOccurred())
			var apiErr *tenant.ErrorResponse
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(apiErr.ErrorMessage).To(Equal("Tenant not found"))
			Expect(apiErr.DetailedError).To(ContainSubstring("storage"))
		})

		It("should wrap other read errors", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithInterceptorFuncs(interceptor.Funcs{
					Get: func(ctx context.Context, cl client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
						return errors.New("connection refused")
					},
				}).Build()

			_, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("getting tenant tenant-ns/storage"))
			Expect(err.Error()).To(ContainSubstring("connection refused"))
		})
	})

	Describe("UpdateLog", func() {
		It("should refuse a tenant without logging", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()

			err := tenantcr.NewStore(c).UpdateLog(ctx, ref, &tenant.LogSettings{Image: "minio/operator:v5"})
			var apiErr *tenant.ErrorResponse
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusConflict))
			Expect(apiErr.ErrorMessage).To(Equal("Audit logging is not enabled"))
		})

		It("should write the settings into spec.log", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()
			store := tenantcr.NewStore(c)

			err := store.UpdateLog(ctx, ref, &tenant.LogSettings{
				Image:          "minio/operator:v5.0.0",
				DBImage:        "library/postgres:14",
				DBInitImage:    "library/busybox:1.36",
				DiskCapacityGB: "20",
				CPURequest:     "1",
				MemRequest:     "4Gi",
				DBMemRequest:   "0Gi",
				Labels:         []tenant.KeyValue{{Key: "tier", Value: "gold"}, {Key: " ", Value: "dropped"}},
				DBNodeSelector: []tenant.KeyValue{{Key: "disk", Value: "ssd"}},
			})
			Expect(err).NotTo(HaveOccurred())

			s, err := store.GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Image).To(Equal("minio/operator:v5.0.0"))
			Expect(s.DBImage).To(Equal("library/postgres:14"))
			Expect(s.DBInitImage).To(Equal("library/busybox:1.36"))
			Expect(s.DiskCapacityGB).To(Equal(tenant.NumericString("20")))
			Expect(s.CPURequest).To(Equal("1"))
			Expect(s.MemRequest).To(Equal("4000000000"))
			Expect(s.DBMemRequest).To(BeEmpty())
			Expect(s.ServiceAccountName).To(BeEmpty())
			Expect(s.Labels).To(Equal([]tenant.KeyValue{{Key: "tier", Value: "gold"}}))
			Expect(s.DBNodeSelector).To(Equal([]tenant.KeyValue{{Key: "disk", Value: "ssd"}}))
		})

		It("should keep the rest of the tenant spec", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()

			Expect(tenantcr.NewStore(c).UpdateLog(ctx, ref, &tenant.LogSettings{Image: "minio/operator:v5.0.0"})).To(Succeed())

			pools, found, err := unstructured.NestedSlice(fetchTenant(ctx, c, ref).Object, "spec", "pools")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(pools).To(HaveLen(1))
		})

		It("should reject an unparseable quantity with a 400 error response", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()

			err := tenantcr.NewStore(c).UpdateLog(ctx, ref, &tenant.LogSettings{CPURequest: "lots"})
			var apiErr *tenant.ErrorResponse
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(apiErr.DetailedError).To(ContainSubstring("lots"))
		})

		It("should reject a non-numeric disk capacity", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()

			err := tenantcr.NewStore(c).UpdateLog(ctx, ref, &tenant.LogSettings{DiskCapacityGB: "ten"})
			var apiErr *tenant.ErrorResponse
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(apiErr.DetailedError).To(ContainSubstring("diskCapacityGB"))
		})

		It("should wrap update errors", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).
				WithInterceptorFuncs(interceptor.Funcs{
					Update: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
						return errors.New("admission webhook denied the request")
					},
				}).Build()

			err := tenantcr.NewStore(c).UpdateLog(ctx, ref, &tenant.LogSettings{Image: "minio/operator:v5.0.0"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("updating tenant tenant-ns/storage"))
			Expect(err.Error()).To(ContainSubstring("admission webhook denied"))
		})
	})

	Describe("EnableLogging", func() {
		It("should write the default log block", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, nil)).Build()
			store := tenantcr.NewStore(c)

			Expect(store.EnableLogging(ctx, ref)).To(Succeed())

			s, err := store.GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.IsEnabled()).To(BeTrue())
			Expect(s.Image).To(Equal(constants.DefaultLogImage))
			Expect(s.DBImage).To(Equal(constants.DefaultLogDBImage))
			Expect(s.DBInitImage).To(Equal(constants.DefaultLogDBInitImage))
			Expect(s.DiskCapacityGB.Int()).To(Equal(int64(constants.DefaultLogDiskCapacityGB)))
		})

		It("should leave an existing log block untouched", func() {
			var updates int
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).
				WithInterceptorFuncs(interceptor.Funcs{
					Update: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
						updates++
						return cl.Update(ctx, obj, opts...)
					},
				}).Build()
			store := tenantcr.NewStore(c)

			Expect(store.EnableLogging(ctx, ref)).To(Succeed())
			Expect(updates).To(Equal(0))

			s, err := store.GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.DiskCapacityGB).To(Equal(tenant.NumericString("10")))
		})

		It("should return a 404 error response for a missing tenant", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).Build()

			err := tenantcr.NewStore(c).EnableLogging(ctx, ref)
			var apiErr *tenant.ErrorResponse
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DisableLogging", func() {
		It("should remove spec.log", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()
			store := tenantcr.NewStore(c)

			Expect(store.DisableLogging(ctx, ref)).To(Succeed())

			_, found, err := unstructured.NestedMap(fetchTenant(ctx, c, ref).Object, "spec", "log")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			s, err := store.GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.IsEnabled()).To(BeFalse())
		})

		It("should reset settings when logging is enabled again", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).Build()
			store := tenantcr.NewStore(c)

			Expect(store.DisableLogging(ctx, ref)).To(Succeed())
			Expect(store.EnableLogging(ctx, ref)).To(Succeed())

			s, err := store.GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Labels).To(BeEmpty())
			Expect(s.ServiceAccountName).To(BeEmpty())
			Expect(s.DiskCapacityGB.Int()).To(Equal(int64(constants.DefaultLogDiskCapacityGB)))
		})

		It("should wrap update errors", func() {
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, enabledLog())).
				WithInterceptorFuncs(interceptor.Funcs{
					Update: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
						return errors.New("forbidden")
					},
				}).Build()

			err := tenantcr.NewStore(c).DisableLogging(ctx, ref)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("updating tenant tenant-ns/storage: forbidden"))
		})
	})

	Describe("memory requests", func() {
		memoryOf := func(c client.Client, path ...string) string {
			v, _, err := unstructured.NestedString(fetchTenant(ctx, c, ref).Object,
				append([]string{"spec", "log"}, path...)...)
			Expect(err).NotTo(HaveOccurred())
			return v
		}

		It("should keep whole-Gi values across unchanged saves", func() {
			log := enabledLog()
			log["resources"] = map[string]interface{}{
				"requests": map[string]interface{}{"memory": "15Gi"},
			}
			log["db"].(map[string]interface{})["resources"] = map[string]interface{}{
				"requests": map[string]interface{}{"memory": "32Gi"},
			}
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, log)).Build()
			ctrl := auditlog.NewController(tenantcr.NewStore(c), ref)
			Expect(ctrl.Load(ctx)).To(Succeed())

			var saved, savedDB []string
			for i := 0; i < 3; i++ {
				Expect(ctrl.Submit(ctx)).To(Succeed())
				saved = append(saved, memoryOf(c, "resources", "requests", "memory"))
				savedDB = append(savedDB, memoryOf(c, "db", "resources", "requests", "memory"))
			}
			Expect(saved).To(Equal([]string{"15Gi", "15Gi", "15Gi"}))
			Expect(savedDB).To(Equal([]string{"32Gi", "32Gi", "32Gi"}))
			Expect(ctrl.State().Form.MemRequest).To(Equal("15"))
		})

		It("should round partial gigabytes up", func() {
			log := enabledLog()
			log["resources"] = map[string]interface{}{
				"requests": map[string]interface{}{"memory": "1536Mi"},
			}
			c := fake.NewClientBuilder().WithScheme(scheme).
				WithObjects(testutil.NewTenant(ref.Namespace, ref.Name, log)).Build()

			s, err := tenantcr.NewStore(c).GetLog(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.MemRequest).To(Equal("2000000000"))
		})
	})
})
