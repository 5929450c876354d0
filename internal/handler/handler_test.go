package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/calendar"
	"finance-tracker/internal/config"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/importer"
	"finance-tracker/internal/middleware"
	"finance-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testUser = uuid.MustParse("8a7c1f6e-3d2b-4c1a-9e8f-112233445566")

// fakeService records what the handlers pass in and returns canned results.
type fakeService struct {
	created    service.TransactionInput
	updated    service.UpdateInput
	importRaw  string
	importCard *domain.ID
	err        error
	statement  service.CardStatement
}

func (f *fakeService) CreateAccount(_ context.Context, _ domain.ID, a domain.Account) (domain.Account, error) {
	a.ID = uuid.New()
	return a, f.err
}

func (f *fakeService) ListAccounts(context.Context, domain.ID) ([]domain.Account, error) {
	return []domain.Account{}, f.err
}

func (f *fakeService) CreateCard(_ context.Context, _ domain.ID, c domain.Card) (domain.Card, error) {
	return c, f.err
}

func (f *fakeService) ListCards(context.Context, domain.ID) ([]domain.Card, error) {
	return []domain.Card{}, f.err
}

func (f *fakeService) CreateCategory(_ context.Context, _ domain.ID, name string, kind domain.Kind) (domain.Category, error) {
	return domain.Category{ID: uuid.New(), Name: name, Kind: kind}, f.err
}

func (f *fakeService) ListCategories(context.Context, domain.ID) ([]domain.Category, error) {
	return []domain.Category{}, f.err
}

func (f *fakeService) CreateTransaction(_ context.Context, userID domain.ID, in service.TransactionInput) (service.CreateResult, error) {
	f.created = in
	if f.err != nil {
		return service.CreateResult{}, f.err
	}
	tx := domain.Transaction{ID: uuid.New(), UserID: userID, Kind: in.Kind, Amount: in.Amount, OccurredOn: in.OccurredOn}
	return service.CreateResult{Transactions: []domain.Transaction{tx}}, nil
}

func (f *fakeService) UpdateTransaction(_ context.Context, _ domain.ID, id domain.ID, in service.UpdateInput) (service.UpdateResult, error) {
	f.updated = in
	return service.UpdateResult{Transaction: domain.Transaction{ID: id, Amount: in.Amount, OccurredOn: in.OccurredOn}}, f.err
}

func (f *fakeService) DeleteTransaction(context.Context, domain.ID, domain.ID) error {
	return f.err
}

func (f *fakeService) ListTransactions(context.Context, domain.ID, time.Time) ([]domain.Transaction, error) {
	return []domain.Transaction{}, f.err
}

func (f *fakeService) CardStatement(context.Context, domain.ID, domain.ID, time.Time) (service.CardStatement, error) {
	return f.statement, f.err
}

func (f *fakeService) SaveBudget(context.Context, domain.ID, time.Time, service.BudgetInput) (service.BudgetView, error) {
	return service.BudgetView{}, f.err
}

func (f *fakeService) BudgetReport(context.Context, domain.ID, time.Time) (service.BudgetReport, error) {
	return service.BudgetReport{}, f.err
}

func (f *fakeService) ImportStatement(_ context.Context, _ domain.ID, _ domain.ID, cardID *domain.ID, r io.Reader) (importer.Report, error) {
	raw, _ := io.ReadAll(r)
	f.importRaw = string(raw)
	f.importCard = cardID
	return importer.Report{Imported: 1, Skipped: []importer.RowError{}}, f.err
}

func (f *fakeService) RunRecurring(context.Context, domain.ID, time.Time) (service.RunReport, error) {
	return service.RunReport{}, f.err
}

func (f *fakeService) Today() time.Time {
	return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
}

func newRouter(svc FinanceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1")
	g.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUser)
		c.Next()
	})
	NewFinanceHandler(svc, "R$").Routes(g)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTransaction(t *testing.T) {
	svc := &fakeService{}
	account := uuid.New()
	body := `{"kind":"expense","amount":"R$ 1.234,56","date":"2024-03-10","account_id":"` + account.String() +
		`","description":"Geladeira","installments":3}`

	w := do(newRouter(svc), http.MethodPost, "/api/v1/transactions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if !svc.created.Amount.Equal(decimal.RequireFromString("1234.56")) || svc.created.Installments != 3 {
		t.Errorf("input = %+v", svc.created)
	}
	if calendar.Format(svc.created.OccurredOn) != "2024-03-10" || svc.created.AccountID != account {
		t.Errorf("input = %+v", svc.created)
	}

	var resp struct {
		Transactions []struct {
			OccurredOn      string `json:"occurred_on"`
			AmountFormatted string `json:"amount_formatted"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Transactions) != 1 || resp.Transactions[0].OccurredOn != "2024-03-10" ||
		resp.Transactions[0].AmountFormatted != "R$ 1.234,56" {
		t.Errorf("response = %s", w.Body)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	account := uuid.New().String()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero amount", `{"kind":"expense","amount":"0,00","date":"2024-03-10","account_id":"` + account + `"}`, "informe um valor válido"},
		{"bad date", `{"kind":"expense","amount":"10","date":"10/03/2024","account_id":"` + account + `"}`, "AAAA-MM-DD"},
		{"bad kind", `{"kind":"gift","amount":"10","date":"2024-03-10","account_id":"` + account + `"}`, "Kind"},
		{"bad recurrence", `{"kind":"expense","amount":"10","date":"2024-03-10","account_id":"` + account + `","recurrence":{"frequency":"hourly"}}`, "Frequency"},
		{"not json", `{`, "JSON inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&fakeService{}), http.MethodPost, "/api/v1/transactions", tt.body)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("status = %d, body = %s", w.Code, w.Body)
			}
		})
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrRecurringSplit, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	body := `{"kind":"expense","amount":"10","date":"2024-03-10","account_id":"` + uuid.New().String() + `"}`
	for _, tt := range tests {
		w := do(newRouter(&fakeService{err: tt.err}), http.MethodPost, "/api/v1/transactions", body)
		if w.Code != tt.code {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.code)
		}
	}
}

func TestUpdateTransactionPassesFutureFlag(t *testing.T) {
	svc := &fakeService{}
	body := `{"kind":"expense","amount":"100","date":"2024-03-28","account_id":"` + uuid.New().String() +
		`","installment_number":1,"total_installments":3,"create_future_installments":true}`

	w := do(newRouter(svc), http.MethodPut, "/api/v1/transactions/"+uuid.New().String(), body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if !svc.updated.CreateFutureInstallments || *svc.updated.InstallmentNumber != 1 || *svc.updated.TotalInstallments != 3 {
		t.Errorf("input = %+v", svc.updated)
	}

	if w := do(newRouter(svc), http.MethodPut, "/api/v1/transactions/not-a-uuid", body); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", w.Code)
	}
}

func TestCardStatementResponse(t *testing.T) {
	svc := &fakeService{}
	svc.statement.Start = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	svc.statement.End = time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	svc.statement.ClosingDate = svc.statement.End
	svc.statement.DueDate = time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	svc.statement.Total = decimal.RequireFromString("70")
	svc.statement.Available = decimal.RequireFromString("930")

	w := do(newRouter(svc), http.MethodGet, "/api/v1/cards/"+uuid.New().String()+"/statement?date=2024-03-15", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	for _, want := range []string{`"due_date":"2024-04-20"`, `"start":"2024-03-11"`, `"available_formatted":"R$ 930,00"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("body %s lacks %s", w.Body, want)
		}
	}

	if w := do(newRouter(svc), http.MethodGet, "/api/v1/cards/"+uuid.New().String()+"/statement?date=15/03", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d", w.Code)
	}
	svc.err = domain.ErrNotFound
	if w := do(newRouter(svc), http.MethodGet, "/api/v1/cards/"+uuid.New().String()+"/statement", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing card: status = %d", w.Code)
	}
}

func TestBudgetMonthParam(t *testing.T) {
	r := newRouter(&fakeService{})
	if w := do(r, http.MethodGet, "/api/v1/budgets/2024-13", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/budgets/2024-03", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
	body := `{"income_target":"5.000,00","investment_pct":"70","reserve_pct":"50%","items":[{"category_id":"x","amount_limit":"10"}]}`
	if w := do(r, http.MethodPut, "/api/v1/budgets/2024-03", body); w.Code != http.StatusBadRequest {
		t.Errorf("bad item: status = %d", w.Code)
	}
}

func TestPreviewAmount(t *testing.T) {
	w := do(newRouter(&fakeService{}), http.MethodGet, "/api/v1/tools/amount?raw=1.234,5", "")
	if !strings.Contains(w.Body.String(), `"formatted":"R$ 1.234,50"`) || !strings.Contains(w.Body.String(), `"valid":true`) {
		t.Errorf("body = %s", w.Body)
	}
}

func TestImportStatementMultipart(t *testing.T) {
	svc := &fakeService{}
	card := uuid.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("account_id", uuid.New().String())
	_ = mw.WriteField("card_id", card.String())
	fw, _ := mw.CreateFormFile("file", "extrato.csv")
	_, _ = fw.Write([]byte("Data;Descrição;Valor\n01/03/2024;PADARIA;-12,50\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if !strings.Contains(svc.importRaw, "PADARIA") || svc.importCard == nil || *svc.importCard != card {
		t.Errorf("service got raw=%q card=%v", svc.importRaw, svc.importCard)
	}
}

func TestAuthMiddlewareAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := auth.NewTokenService(config.Config{JWTSecret: "test", JWTExpiresIn: time.Hour})
	r := gin.New()
	r.POST("/api/v1/login", NewAuthHandler(ts).Login)
	g := r.Group("/api/v1")
	g.Use(middleware.NewAuthMiddleware(ts).RequireAuth())
	NewFinanceHandler(&fakeService{}, "R$").Routes(g)

	if w := do(r, http.MethodGet, "/api/v1/accounts", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}

	w := do(r, http.MethodPost, "/api/v1/login", `{"user_id":"`+testUser.String()+`"}`)
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login: status = %d, body = %s", w.Code, w.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with token: status = %d, body = %s", rec.Code, rec.Body)
	}
}
