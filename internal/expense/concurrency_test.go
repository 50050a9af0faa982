package expense_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
)

// gatedRepository holds the first `parties` GetByID callers until all of them
// have read, so racing requests see the same stored record. Later reads pass
// straight through.
type gatedRepository struct {
	expense.RepositoryAPI
	parties int32
	reads   atomic.Int32
	arrived sync.WaitGroup
}

func newGatedRepository(repo expense.RepositoryAPI, parties int) *gatedRepository {
	g := &gatedRepository{RepositoryAPI: repo, parties: int32(parties)}
	g.arrived.Add(parties)
	return g
}

func (g *gatedRepository) GetByID(ctx context.Context, scope internal.Scope, id string) (*expenseDatamodel.Expense, error) {
	row, err := g.RepositoryAPI.GetByID(ctx, scope, id)
	if g.reads.Add(1) <= g.parties {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return row, err
}

var _ = Describe("Expense Service with racing requests", func() {
	var (
		ctx        context.Context
		db         *gorm.DB
		categories category.RepositoryAPI
		expenses   expense.RepositoryAPI
		maintainer *balance.Maintainer
		logger     *slog.Logger
		scope      internal.Scope
		groceries  *categoryDatamodel.Category
		bread      *expense.Expense
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = storage.OpenSQLiteMemory()
		Expect(err).NotTo(HaveOccurred())
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		scope = internal.Scope{}

		categories = categoryPostgres.NewCategoryRepository(db)
		expenses = expensePostgres.NewExpenseRepository(db)
		maintainer = balance.NewMaintainer(categories, expenses, logger, balance.Options{
			Locker:             balance.NewKeyedLocker(),
			CategoryNameMinLen: 3,
		})

		groceries = &categoryDatamodel.Category{ID: "2b7e1d3c-0f4a-4c1e-9d8b-5a6f7e8d9c0b", Name: "groceries"}
		Expect(categories.Create(ctx, groceries)).To(Succeed())

		seeder := expense.NewService(expenses, maintainer, categories, logger, expense.Options{DescriptionMinLen: 3})
		_, err = seeder.Create(ctx, scope, expense.CreateExpenseDTO{Description: "milk", Amount: float64Ptr(3.5), Date: "2024-03-01", Category: "groceries"})
		Expect(err).NotTo(HaveOccurred())
		bread, err = seeder.Create(ctx, scope, expense.CreateExpenseDTO{Description: "bread", Amount: float64Ptr(2.25), Date: "2024-03-02", Category: "groceries"})
		Expect(err).NotTo(HaveOccurred())
		Expect(categoryTotal(ctx, categories, groceries.ID)).To(Equal(5.75))
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	racing := func() *expense.Service {
		return expense.NewService(newGatedRepository(expenses, 2), maintainer, categories, logger, expense.Options{DescriptionMinLen: 3})
	}

	It("removes the amount once when two deletes race", func() {
		service := racing()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				errs[i] = service.Delete(ctx, scope, bread.ID)
			}(i)
		}
		wg.Wait()

		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(errs[1]).NotTo(HaveOccurred())
		Expect(categoryTotal(ctx, categories, groceries.ID)).To(Equal(3.5))
	})

	It("applies one delta when two amount updates race", func() {
		service := racing()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		amounts := []float64{4, 7}
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = service.Update(ctx, scope, bread.ID, expense.UpdateExpenseDTO{Amount: float64Ptr(amounts[i])})
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			Expect(err).To(MatchError(internal.ErrExpenseChanged))
			lost++
		}
		Expect(won).To(Equal(1))
		Expect(lost).To(Equal(1))

		stored, err := expenses.GetByID(ctx, scope, bread.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(categoryTotal(ctx, categories, groceries.ID)).To(Equal(balance.Add2(3.5, stored.Amount)))
	})
})

func categoryTotal(ctx context.Context, categories category.RepositoryAPI, id string) float64 {
	cat, err := categories.GetByID(ctx, internal.Scope{}, id)
	Expect(err).NotTo(HaveOccurred())
	Expect(cat).NotTo(BeNil())
	return cat.Total
}
