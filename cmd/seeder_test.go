package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/subject"
)

var _ = Describe("demo seed", func() {
	var (
		ctx context.Context
		svc *subject.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = subject.NewService(catalog.Default(), subject.MemoryStores(), nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(seedDemo(ctx, svc)).To(Succeed())
	})

	can := func(subjectID string, p access.Permission, evalCtx access.EvaluationContext) bool {
		ok, err := svc.Can(ctx, subjectID, p, evalCtx, time.Now())
		Expect(err).NotTo(HaveOccurred())
		return ok
	}

	It("is idempotent", func() {
		Expect(seedDemo(ctx, svc)).To(Succeed())

		grants, err := svc.Grants(ctx, "agent-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))
	})

	It("gives agent-2 supervisor rights in Support only", func() {
		Expect(can("agent-2", catalog.TicketsAssign, access.EvaluationContext{CurrentDepartment: "Support"})).To(BeTrue())
		Expect(can("agent-2", catalog.TicketsAssign, access.EvaluationContext{CurrentDepartment: "Billing"})).To(BeFalse())
	})

	It("lets the viewer export but not read the user directory", func() {
		Expect(can("viewer-1", catalog.ReportsExport, access.EvaluationContext{})).To(BeTrue())
		Expect(can("viewer-1", catalog.UsersRead, access.EvaluationContext{})).To(BeFalse())
	})

	It("clears every demo record", func() {
		Expect(clearDemo(ctx, svc)).To(Succeed())

		for _, s := range demoSubjects(time.Now()) {
			assignments, err := svc.Assignments(ctx, s.id)
			Expect(err).NotTo(HaveOccurred())
			Expect(assignments).To(BeEmpty())
			grants, err := svc.Grants(ctx, s.id)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(BeEmpty())
		}
	})
})
