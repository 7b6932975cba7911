// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package logging_test

import (
	"bytes"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.uber.org/zap"

	"tenantlog/internal/logging"
)

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("should write info messages with their fields", func() {
		logger := logging.New(buf, false)
		logger.Info("loaded audit log settings", zap.String("tenant", "ns/storage"))
		Expect(logger.Sync()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("info"))
		Expect(buf.String()).To(ContainSubstring("loaded audit log settings"))
		Expect(buf.String()).To(ContainSubstring(`"tenant": "ns/storage"`))
	})

	It("should drop debug messages unless verbose", func() {
		logger := logging.New(buf, false)
		logger.Debug("polling")
		Expect(buf.Len()).To(BeZero())

		logger = logging.New(buf, true)
		logger.Debug("polling")
		Expect(buf.String()).To(ContainSubstring("polling"))
	})

	It("should format timestamps as RFC3339 in UTC", func() {
		logger := logging.New(buf, false)
		logger.Info("hello")

		ts, _, found := strings.Cut(buf.String(), "\t")
		Expect(found).To(BeTrue())
		parsed, err := time.Parse(time.RFC3339, ts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(HaveSuffix("Z"))
		Expect(parsed).To(BeTemporally("~", time.Now(), time.Minute))
	})

	It("should print durations as strings", func() {
		logger := logging.New(buf, false)
		logger.Info("waited", zap.Duration("elapsed", 1500*time.Millisecond))
		Expect(buf.String()).To(ContainSubstring(`"elapsed": "1.5s"`))
	})
})
