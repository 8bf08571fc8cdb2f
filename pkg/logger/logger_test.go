package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/pkg/logger"
)

var _ = Describe("Logger", func() {
	It("writes json records at or above the configured level", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, "warn", "json")

		l.Info("skipped")
		l.Warn("kept", "subject_id", "agent-1")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("kept"))
		Expect(record["subject_id"]).To(Equal("agent-1"))
	})

	It("falls back to info for unknown levels", func() {
		Expect(logger.ParseLevel("verbose")).To(Equal(slog.LevelInfo))
		Expect(logger.ParseLevel("DEBUG")).To(Equal(slog.LevelDebug))
	})

	It("carries fields through the context", func() {
		ctx := logger.With(context.Background(), "request_id", "r-1")
		Expect(logger.From(ctx)).NotTo(BeNil())
		Expect(logger.From(context.Background())).To(Equal(logger.LoggerWrapper()))
	})

	It("tags records with the caller's evaluation context", func() {
		var buf bytes.Buffer
		ctx := logger.NewContext(context.Background(), logger.New(&buf, "info", "json"))
		ctx = logger.WithCaller(ctx, "agent-1", "Support", "")

		logger.From(ctx).Info("decision")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["subject_id"]).To(Equal("agent-1"))
		Expect(record["department"]).To(Equal("Support"))
		Expect(record).NotTo(HaveKey("team"))
	})
})
