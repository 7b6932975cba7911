//go:build e2e

// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package e2e_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"tenantlog/internal/testutil"
)

var _ = Describe("tenantlog history", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
	})

	It("should list operations from earlier runs", func() {
		_, _, exitCode, err := testutil.RunTenantlog(e.args("get")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(0))
		_, _, exitCode, err = testutil.RunTenantlog(e.args("disable", "--yes")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(0))

		stdout, _, exitCode, err := testutil.RunTenantlog(e.args("history")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(0))
		Expect(stdout).To(ContainSubstring("STARTED"))
		Expect(stdout).To(ContainSubstring("disable"))
		Expect(stdout).To(ContainSubstring("load"))
		Expect(stdout).To(ContainSubstring(e.ref.String()))
		Expect(stdout).To(ContainSubstring("succeeded"))
	})

	It("should not record anything with --no-history", func() {
		_, _, exitCode, err := testutil.RunTenantlog(e.args("get", "--no-history")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(0))

		stdout, _, exitCode, err := testutil.RunTenantlog(e.args("history")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(0))
		Expect(stdout).To(ContainSubstring("No operations recorded"))
	})
})
