package balance_test

import (
	"context"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

func int64Ptr(v int64) *int64 { return &v }

var _ = Describe("Maintainer", func() {
	var (
		ctx        context.Context
		categories *memoryCategories
		expenses   *memoryExpenses
		publisher  *recordingPublisher
		maintainer *balance.Maintainer
		logger     *slog.Logger
		single     internal.Scope
	)

	BeforeEach(func() {
		ctx = context.Background()
		categories = newMemoryCategories()
		expenses = newMemoryExpenses()
		publisher = &recordingPublisher{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		maintainer = balance.NewMaintainer(categories, expenses, logger, balance.Options{
			CategoryNameMinLen: 3,
			Publisher:          publisher,
		})
		single = internal.Scope{}
	})

	expectValidation := func(err error) {
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
	}

	Describe("the expense lifecycle against one category", func() {
		var groceriesID string

		BeforeEach(func() {
			groceriesID = "6f1c2f9e-7e4e-4d7a-9a44-6b7a3a0d2c11"
			categories.put(categoryDatamodel.Category{ID: groceriesID, Name: "groceries", Limit: int64Ptr(100)})
		})

		It("tracks the rounded sum through create, update and delete", func() {
			By("adding milk")
			cat, err := maintainer.ExpenseCreated(ctx, single, 3.5, "groceries", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.ID).To(Equal(groceriesID))
			Expect(cat.Total).To(Equal(3.50))

			By("adding bread")
			cat, err = maintainer.ExpenseCreated(ctx, single, 2.25, "groceries", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Total).To(Equal(5.75))

			By("correcting milk from 3.50 to 10.00")
			cat, err = maintainer.ExpenseAmountUpdated(ctx, single, 3.5, 10, groceriesID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Total).To(Equal(12.25))

			By("removing bread")
			Expect(maintainer.ExpenseDeleted(ctx, single, 2.25, groceriesID)).To(Succeed())
			stored, _ := categories.get(groceriesID)
			Expect(stored.Total).To(Equal(10.00))
			Expect(*stored.Limit).To(Equal(int64(100)))
		})

		It("rejects a zero amount without touching the total", func() {
			_, err := maintainer.ExpenseCreated(ctx, single, 0, "groceries", false)
			expectValidation(err)

			stored, _ := categories.get(groceriesID)
			Expect(stored.Total).To(BeZero())
			Expect(categories.updates).To(BeZero())
			Expect(publisher.reasons()).To(BeEmpty())
		})

		It("rejects amounts that round to zero and negative amounts", func() {
			_, err := maintainer.ExpenseCreated(ctx, single, 0.004, "groceries", false)
			expectValidation(err)
			_, err = maintainer.ExpenseCreated(ctx, single, -5, "groceries", false)
			expectValidation(err)
			Expect(categories.updates).To(BeZero())
		})

		It("normalizes the category name before looking it up", func() {
			cat, err := maintainer.ExpenseCreated(ctx, single, 1, "  GROCERIES ", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.ID).To(Equal(groceriesID))
		})

		It("rejects names that are too short after normalization", func() {
			_, err := maintainer.ExpenseCreated(ctx, single, 1, "  a ", true)
			expectValidation(err)
			Expect(categories.count()).To(Equal(1))
		})

		It("applies an amount update as one delta", func() {
			categories.put(categoryDatamodel.Category{ID: groceriesID, Name: "groceries", Total: 20})
			cat, err := maintainer.ExpenseAmountUpdated(ctx, single, 5, 7.5, groceriesID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Total).To(Equal(22.5))
			Expect(categories.updates).To(Equal(1))
		})

		It("rejects a non-positive updated amount", func() {
			_, err := maintainer.ExpenseAmountUpdated(ctx, single, 5, 0, groceriesID)
			expectValidation(err)
			Expect(categories.updates).To(BeZero())
		})

		It("publishes one balance event per total change", func() {
			_, err := maintainer.ExpenseCreated(ctx, single, 120, "groceries", false)
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.events).To(HaveLen(1))
			event := publisher.events[0]
			Expect(event.EventType()).To(Equal(events.EventTypeBalanceChanged))
			Expect(event.Reason).To(Equal(events.ReasonExpenseCreated))
			Expect(event.PreviousTotal).To(BeZero())
			Expect(event.Total).To(Equal(120.0))
			Expect(event.OverLimit()).To(BeTrue())
		})
	})

	Describe("ExpenseCreated with a missing category", func() {
		It("creates the category with the amount as its total when auto-create is on", func() {
			cat, err := maintainer.ExpenseCreated(ctx, single, 4.456, "Eating Out", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Name).To(Equal("eating-out"))
			Expect(cat.Total).To(Equal(4.46))
			Expect(cat.ID).NotTo(BeEmpty())

			stored, ok := categories.get(cat.ID)
			Expect(ok).To(BeTrue())
			Expect(stored.Total).To(Equal(4.46))
			Expect(publisher.reasons()).To(ConsistOf(events.ReasonCategoryCreated))
		})

		It("fails with not-found when auto-create is off", func() {
			_, err := maintainer.ExpenseCreated(ctx, internal.Scope{OwnerID: "user-a"}, 5, "travel", false)
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))
			Expect(categories.count()).To(BeZero())
		})

		It("reports a store failure on create as an internal error", func() {
			categories.failCreate = errStoreDown
			_, err := maintainer.ExpenseCreated(ctx, single, 5, "travel", true)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
			Expect(appErr.Cause).To(MatchError(errStoreDown))
		})
	})

	Describe("tenant isolation", func() {
		var alice, bob internal.Scope

		BeforeEach(func() {
			alice = internal.Scope{OwnerID: "alice"}
			bob = internal.Scope{OwnerID: "bob"}
			categories.put(categoryDatamodel.Category{ID: "cat-a", OwnerID: "alice", Name: "groceries", Total: 12.25})
		})

		It("answers not-found for another owner's category and leaves it unchanged", func() {
			_, err := maintainer.ExpenseAmountUpdated(ctx, bob, 1, 2, "cat-a")
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))

			_, err = maintainer.CategoryTotalOverwritten(ctx, bob, "cat-a", 0)
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))

			Expect(maintainer.CategoryDeleted(ctx, bob, "cat-a")).To(MatchError(internal.ErrCategoryNotFound))

			_, err = maintainer.ExpenseCreated(ctx, bob, 1, "groceries", false)
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))

			stored, ok := categories.get("cat-a")
			Expect(ok).To(BeTrue())
			Expect(stored.Total).To(Equal(12.25))
		})

		It("lets the owner update the category", func() {
			cat, err := maintainer.ExpenseCreated(ctx, alice, 0.75, "groceries", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Total).To(Equal(13.0))
		})
	})

	Describe("ExpenseDeleted", func() {
		It("succeeds without writing when the category is gone", func() {
			Expect(maintainer.ExpenseDeleted(ctx, single, 3, "missing")).To(Succeed())
			Expect(categories.updates).To(BeZero())
		})

		It("can drive the total negative when amounts were removed twice", func() {
			categories.put(categoryDatamodel.Category{ID: "c1", Name: "misc", Total: 1})
			Expect(maintainer.ExpenseDeleted(ctx, single, 1, "c1")).To(Succeed())
			Expect(maintainer.ExpenseDeleted(ctx, single, 1, "c1")).To(Succeed())
			stored, _ := categories.get("c1")
			Expect(stored.Total).To(Equal(-1.0))
		})

		It("surfaces store failures", func() {
			categories.put(categoryDatamodel.Category{ID: "c1", Name: "misc", Total: 1})
			categories.failUpdate = errStoreDown
			err := maintainer.ExpenseDeleted(ctx, single, 1, "c1")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(internal.ErrCategoryNotFound))
		})
	})

	Describe("CategoryDeleted", func() {
		BeforeEach(func() {
			categories.put(categoryDatamodel.Category{ID: "c1", Name: "travel", Total: 40})
		})

		It("removes the category and cascades to its expenses", func() {
			Expect(maintainer.CategoryDeleted(ctx, single, "c1")).To(Succeed())
			_, ok := categories.get("c1")
			Expect(ok).To(BeFalse())
			Expect(expenses.cascaded).To(ConsistOf("c1"))
		})

		It("keeps the category deleted when the cascade fails", func() {
			expenses.failWith = errStoreDown
			err := maintainer.CategoryDeleted(ctx, single, "c1")
			Expect(err).To(HaveOccurred())
			_, ok := categories.get("c1")
			Expect(ok).To(BeFalse())
		})

		It("does not cascade when the category delete fails", func() {
			categories.failDelete = errStoreDown
			Expect(maintainer.CategoryDeleted(ctx, single, "c1")).NotTo(Succeed())
			Expect(expenses.cascaded).To(BeEmpty())
		})

		It("reports a missing category", func() {
			Expect(maintainer.CategoryDeleted(ctx, single, "nope")).To(MatchError(internal.ErrCategoryNotFound))
		})
	})

	Describe("CategoryTotalOverwritten", func() {
		It("stores the rounded value as given", func() {
			categories.put(categoryDatamodel.Category{ID: "c1", Name: "travel", Total: 40})
			cat, err := maintainer.CategoryTotalOverwritten(ctx, single, "c1", 99.999)
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Total).To(Equal(100.0))
			Expect(publisher.reasons()).To(ConsistOf(events.ReasonTotalOverwritten))
		})
	})

	Describe("concurrent updates with the keyed locker", func() {
		It("loses no increment", func() {
			categories.yield = true
			categories.put(categoryDatamodel.Category{ID: "c1", Name: "coffee"})
			maintainer = balance.NewMaintainer(categories, expenses, logger, balance.Options{
				CategoryNameMinLen: 3,
				Locker:             balance.NewKeyedLocker(),
			})

			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := maintainer.ExpenseCreated(ctx, single, 0.01, "coffee", false)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			stored, _ := categories.get("c1")
			Expect(stored.Total).To(Equal(2.0))
		})

		It("auto-creates a missing category only once", func() {
			maintainer = balance.NewMaintainer(categories, expenses, logger, balance.Options{
				CategoryNameMinLen: 3,
				Locker:             balance.NewKeyedLocker(),
			})

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := maintainer.ExpenseCreated(ctx, single, 1.5, "snacks", true)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(categories.count()).To(Equal(1))
			cat, _ := categories.GetByName(ctx, single, "snacks")
			Expect(cat.Total).To(Equal(30.0))
		})
	})
})
