package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/storage"
)

func newTestApp(multiTenant bool) *App {
	db, err := storage.OpenSQLiteMemory()
	Expect(err).NotTo(HaveOccurred())
	st, err := sqlStores(db, internal.DriverSQLite)
	Expect(err).NotTo(HaveOccurred())

	cfg := &internal.Config{
		Database: internal.DatabaseConfig{Driver: internal.DriverSQLite, Source: "memory"},
		Security: internal.SecurityConfig{JWTSecret: "test-secret-0123456789", BCryptCost: bcrypt.MinCost},
		Tenancy:  internal.TenancyConfig{MultiTenant: multiTenant},
	}
	cfg.ApplyDefaults()
	Expect(cfg.Validate()).To(Succeed())

	app, err := buildApp(cfg, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func do(app *App, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func login(app *App, username, password string) string {
	creds := `{"username":"` + username + `","password":"` + password + `"}`
	Expect(do(app, http.MethodPost, "/users", "", creds).Code).To(Equal(http.StatusCreated))

	rec := do(app, http.MethodPost, "/auth/login", "", creds)
	Expect(rec.Code).To(Equal(http.StatusOK))
	var tokens struct {
		Token string `json:"token"`
	}
	Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(Succeed())
	Expect(tokens.Token).NotTo(BeEmpty())
	return tokens.Token
}

type categoryBody struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

func listCategories(app *App, token string) map[string]categoryBody {
	rec := do(app, http.MethodGet, "/categories", token, "")
	Expect(rec.Code).To(Equal(http.StatusOK))
	var resp struct {
		Categories []categoryBody `json:"categories"`
	}
	Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
	byName := make(map[string]categoryBody, len(resp.Categories))
	for _, c := range resp.Categories {
		byName[c.Name] = c
	}
	return byName
}

var _ = Describe("wired application", func() {
	ctx := context.Background()

	Context("single-tenant", func() {
		var (
			app   *App
			token string
		)

		BeforeEach(func() {
			app = newTestApp(false)
			token = login(app, "alice", "secret1")
		})

		It("keeps the category total in step with its expenses", func() {
			rec := do(app, http.MethodPost, "/expenses", token,
				`{"description":"Lunch","amount":12.5,"date":"2024-03-01","category":"Food Court"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var created struct {
				ID string `json:"id"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())

			Expect(do(app, http.MethodPost, "/expenses", token,
				`{"description":"Coffee","amount":0.25,"date":"2024-03-02","category":"food court"}`).Code).
				To(Equal(http.StatusCreated))
			Expect(listCategories(app, token)["food-court"].Total).To(Equal(12.75))

			Expect(do(app, http.MethodPut, "/expenses/"+created.ID, token, `{"amount":10}`).Code).
				To(Equal(http.StatusOK))
			Expect(listCategories(app, token)["food-court"].Total).To(Equal(10.25))

			Expect(do(app, http.MethodDelete, "/expenses/"+created.ID, token, "").Code).
				To(Equal(http.StatusNoContent))
			Expect(listCategories(app, token)["food-court"].Total).To(Equal(0.25))
		})

		It("repairs drifted totals", func() {
			Expect(do(app, http.MethodPost, "/expenses", token,
				`{"description":"Train","amount":7.5,"date":"2024-03-01","category":"travel"}`).Code).
				To(Equal(http.StatusCreated))
			travel := listCategories(app, token)["travel"]

			_, err := app.Maintainer.CategoryTotalOverwritten(ctx, internal.Scope{}, travel.ID, 99)
			Expect(err).NotTo(HaveOccurred())

			out := &bytes.Buffer{}
			Expect(runReconcile(ctx, app, internal.Scope{}, true, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("1 drifted categories"))
			Expect(listCategories(app, token)["travel"].Total).To(Equal(99.0))

			out.Reset()
			Expect(runReconcile(ctx, app, internal.Scope{}, false, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("repaired 1"))
			Expect(listCategories(app, token)["travel"].Total).To(Equal(7.5))
		})

		It("seeds sample data and clears it again", func() {
			Expect(seed(ctx, app)).To(Succeed())
			cats := listCategories(app, token)
			Expect(cats["groceries"].Total).To(Equal(60.95))
			Expect(cats["transport"].Total).To(Equal(48.4))
			Expect(cats["entertainment"].Total).To(Equal(24.0))

			clearData = true
			DeferCleanup(func() { clearData = false })
			Expect(seed(ctx, app)).To(Succeed())
			Expect(listCategories(app, token)["groceries"].Total).To(Equal(60.95))
		})
	})

	Context("multi-tenant", func() {
		It("seeds categories for the demo user only", func() {
			app := newTestApp(true)
			Expect(seed(ctx, app)).To(Succeed())

			demo, err := app.Users.GetByUsername(ctx, "demo")
			Expect(err).NotTo(HaveOccurred())
			cats, err := app.Categories.List(ctx, internal.Scope{OwnerID: demo.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(cats).To(HaveLen(3))

			token := login(app, "bob", "secret2")
			Expect(listCategories(app, token)).To(BeEmpty())
		})
	})
})

var _ = Describe("loadConfig", func() {
	It("reads config.yml, applies defaults and env overrides", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
http_server:
  port: 8081
database:
  driver: sqlite
  source: file:test.db
security:
  jwt_secret: a-very-long-test-secret
`), 0o600)).To(Succeed())

		Expect(os.Setenv("ENV_HTTP_SERVER_PORT", "9090")).To(Succeed())
		DeferCleanup(os.Unsetenv, "ENV_HTTP_SERVER_PORT")

		cfg, err := loadConfig(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Database.Driver).To(Equal(internal.DriverSQLite))
		Expect(cfg.Validation.CategoryNameMinLen).To(Equal(3))
		Expect(cfg.Balance.Currency).To(Equal("USD"))
	})

	It("rejects a config without a usable secret", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
database:
  driver: sqlite
  source: file:test.db
security:
  jwt_secret: short
`), 0o600)).To(Succeed())

		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("jwt_secret")))
	})
})

var _ = Describe("readPassword", func() {
	It("reads one line from a pipe", func() {
		pw, err := readPassword(strings.NewReader("hunter22\nignored\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(pw).To(Equal("hunter22"))
	})
})
