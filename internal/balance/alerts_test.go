package balance_test

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

var _ = Describe("LimitAlertHandler", func() {
	var (
		buf     *bytes.Buffer
		handler events.Handler
		limit   int64
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		handler = balance.LimitAlertHandler(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
		limit = 100
	})

	It("warns when the total crosses the limit", func() {
		e := events.NewBalanceChangedEvent("id", "groceries", "", 95, 101.5, &limit, events.ReasonExpenseCreated)
		Expect(handler(context.Background(), e)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("exceeded its spending limit"))
		Expect(buf.String()).To(ContainSubstring("category=groceries"))
	})

	It("stays quiet at or under the limit", func() {
		e := events.NewBalanceChangedEvent("id", "groceries", "", 50, 100, &limit, events.ReasonExpenseCreated)
		Expect(handler(context.Background(), e)).To(Succeed())
		Expect(buf.Len()).To(BeZero())
	})

	It("stays quiet without a limit", func() {
		e := events.NewBalanceChangedEvent("id", "groceries", "", 50, 1e6, nil, events.ReasonExpenseCreated)
		Expect(handler(context.Background(), e)).To(Succeed())
		Expect(buf.Len()).To(BeZero())
	})

	It("does not repeat the warning while already over", func() {
		e := events.NewBalanceChangedEvent("id", "groceries", "", 120, 130, &limit, events.ReasonExpenseCreated)
		Expect(handler(context.Background(), e)).To(Succeed())
		Expect(buf.Len()).To(BeZero())
	})

	It("rejects other event types", func() {
		Expect(handler(context.Background(), events.BaseEvent{Type: "other"})).NotTo(Succeed())
	})
})
