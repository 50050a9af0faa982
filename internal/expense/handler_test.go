package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/balance"
	"github.com/frahmantamala/expense-tracker/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-tracker/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/frahmantamala/expense-tracker/internal/transport"
)

var _ = Describe("Expense Handler Integration", func() {
	var (
		db         *gorm.DB
		router     *chi.Mux
		caller     string
		categories category.RepositoryAPI
	)

	setup := func(multiTenant bool) {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		categories = categoryPostgres.NewCategoryRepository(db)
		expenses := expensePostgres.NewExpenseRepository(db)
		maintainer := balance.NewMaintainer(categories, expenses, slogger, balance.Options{CategoryNameMinLen: 3})
		service := expense.NewService(expenses, maintainer, categories, slogger, expense.Options{
			AutoCreateCategories: !multiTenant,
			DescriptionMinLen:    3,
		})
		handler := expense.NewHandler(transport.NewBaseHandler(slogger, multiTenant), service)

		router = chi.NewRouter()
		router.Route("/expenses", func(r chi.Router) {
			r.Get("/", handler.ListExpenses)
			r.Post("/", handler.CreateExpense)
			r.Get("/export", handler.ExportExpenses)
			r.Get("/{id}", handler.GetExpense)
			r.Put("/{id}", handler.UpdateExpense)
			r.Delete("/{id}", handler.DeleteExpense)
		})
	}

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if caller != "" {
			req = req.WithContext(internal.ContextWithUserID(req.Context(), caller))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	createExpense := func(body map[string]interface{}) *expense.Expense {
		w := do(http.MethodPost, "/expenses", body)
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		var e expense.Expense
		Expect(json.NewDecoder(w.Body).Decode(&e)).To(Succeed())
		return &e
	}

	total := func(scope internal.Scope, id string) float64 {
		cat, err := categories.GetByID(context.Background(), scope, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(cat).NotTo(BeNil())
		return cat.Total
	}

	BeforeEach(func() {
		var err error
		db, err = storage.OpenSQLiteMemory()
		Expect(err).NotTo(HaveOccurred())
		caller = ""
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	Context("single-tenant", func() {
		var groceries *categoryDatamodel.Category

		BeforeEach(func() {
			setup(false)
			limit := int64(100)
			groceries = &categoryDatamodel.Category{ID: "3f1c2b9e-6a0d-4e8f-9b7a-1c2d3e4f5a6b", Name: "groceries", Limit: &limit}
			Expect(categories.Create(context.Background(), groceries)).To(Succeed())
		})

		It("keeps the category total equal to the sum of its expenses", func() {
			scope := internal.Scope{}

			milk := createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "Groceries",
			})
			Expect(milk.CategoryID).To(Equal(groceries.ID))
			Expect(total(scope, groceries.ID)).To(Equal(3.5))

			bread := createExpense(map[string]interface{}{
				"description": "bread", "amount": 2.25, "date": "2024-03-02", "category": "groceries",
			})
			Expect(total(scope, groceries.ID)).To(Equal(5.75))

			w := do(http.MethodPut, "/expenses/"+milk.ID, map[string]interface{}{"amount": 10.00})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(total(scope, groceries.ID)).To(Equal(12.25))

			w = do(http.MethodDelete, "/expenses/"+bread.ID, nil)
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(total(scope, groceries.ID)).To(Equal(10.0))

			w = do(http.MethodPost, "/expenses", map[string]interface{}{
				"description": "free sample", "amount": 0, "date": "2024-03-03", "category": "groceries",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(total(scope, groceries.ID)).To(Equal(10.0))
		})

		It("creates a missing category on first use", func() {
			e := createExpense(map[string]interface{}{
				"description": "train ticket", "amount": 12.4, "date": "2024-03-01", "category": "Day  Trips",
			})

			cat, err := categories.GetByName(context.Background(), internal.Scope{}, "day-trips")
			Expect(err).NotTo(HaveOccurred())
			Expect(cat).NotTo(BeNil())
			Expect(cat.ID).To(Equal(e.CategoryID))
			Expect(cat.Total).To(Equal(12.4))
		})

		It("rejects a category change with 400 and leaves the expense alone", func() {
			e := createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "groceries",
			})

			w := do(http.MethodPut, "/expenses/"+e.ID, map[string]interface{}{"category": "travel", "amount": 9})
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var raw map[string]map[string]interface{}
			Expect(json.Unmarshal(w.Body.Bytes(), &raw)).To(Succeed())
			Expect(raw["error"]["code"]).To(Equal(string(internal.ErrCodeCategoryImmutable)))
			Expect(total(internal.Scope{}, groceries.ID)).To(Equal(3.5))
		})

		It("deletes idempotently", func() {
			e := createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "groceries",
			})
			Expect(do(http.MethodDelete, "/expenses/"+e.ID, nil).Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodDelete, "/expenses/"+e.ID, nil).Code).To(Equal(http.StatusNoContent))
			Expect(total(internal.Scope{}, groceries.ID)).To(BeZero())
		})

		It("filters the list by category and validates the filter", func() {
			createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "groceries",
			})
			createExpense(map[string]interface{}{
				"description": "hotel", "amount": 80, "date": "2024-03-04", "category": "travel",
			})

			w := do(http.MethodGet, "/expenses", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var all expense.ExpensesResponse
			Expect(json.NewDecoder(w.Body).Decode(&all)).To(Succeed())
			Expect(all.Expenses).To(HaveLen(2))
			Expect(all.Expenses[0].Description).To(Equal("hotel"))

			w = do(http.MethodGet, "/expenses?category_id="+groceries.ID, nil)
			var filtered expense.ExpensesResponse
			Expect(json.NewDecoder(w.Body).Decode(&filtered)).To(Succeed())
			Expect(filtered.Expenses).To(HaveLen(1))

			Expect(do(http.MethodGet, "/expenses?category_id=nope", nil).Code).To(Equal(http.StatusBadRequest))
		})

		It("exports the expenses as a workbook", func() {
			createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "groceries",
			})

			w := do(http.MethodGet, "/expenses/export", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))

			f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows("Expenses")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0][0]).To(Equal("Date"))
			Expect(rows[1][0]).To(Equal("2024-03-01"))
			Expect(rows[1][1]).To(Equal("groceries"))
			Expect(rows[1][2]).To(Equal("milk"))
		})
	})

	Context("multi-tenant", func() {
		var ownerCategory *categoryDatamodel.Category

		BeforeEach(func() {
			setup(true)
			caller = "8a0f5c7e-2d43-4f5b-9b3e-0c1d2e3f4a5b"
			ownerCategory = &categoryDatamodel.Category{ID: "5b6c7d8e-9f0a-4b1c-8d2e-3f4a5b6c7d8e", OwnerID: caller, Name: "groceries"}
			Expect(categories.Create(context.Background(), ownerCategory)).To(Succeed())
		})

		It("does not create categories on the fly", func() {
			w := do(http.MethodPost, "/expenses", map[string]interface{}{
				"description": "hotel", "amount": 80, "date": "2024-03-04", "category": "travel",
			})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("hides one owner's expenses from another", func() {
			e := createExpense(map[string]interface{}{
				"description": "milk", "amount": 3.5, "date": "2024-03-01", "category": "groceries",
			})

			caller = "c5a1d6c8-9f0e-4b7a-8c2d-3e4f5a6b7c8d"
			w := do(http.MethodPost, "/expenses", map[string]interface{}{
				"description": "cheese", "amount": 7, "date": "2024-03-02", "category": "groceries",
			})
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/expenses/"+e.ID, nil).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodPut, "/expenses/"+e.ID, map[string]interface{}{"amount": 1}).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodDelete, "/expenses/"+e.ID, nil).Code).To(Equal(http.StatusNoContent))

			Expect(total(internal.Scope{OwnerID: "8a0f5c7e-2d43-4f5b-9b3e-0c1d2e3f4a5b"}, ownerCategory.ID)).To(Equal(3.5))
		})
	})
})
