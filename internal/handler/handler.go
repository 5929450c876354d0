// internal/handler/handler.go
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/importer"
	"finance-tracker/internal/middleware"
	"finance-tracker/internal/service"
	val "finance-tracker/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FinanceService is the part of service.Service the HTTP layer uses.
type FinanceService interface {
	CreateAccount(ctx context.Context, userID domain.ID, a domain.Account) (domain.Account, error)
	ListAccounts(ctx context.Context, userID domain.ID) ([]domain.Account, error)
	CreateCard(ctx context.Context, userID domain.ID, c domain.Card) (domain.Card, error)
	ListCards(ctx context.Context, userID domain.ID) ([]domain.Card, error)
	CreateCategory(ctx context.Context, userID domain.ID, name string, kind domain.Kind) (domain.Category, error)
	ListCategories(ctx context.Context, userID domain.ID) ([]domain.Category, error)

	CreateTransaction(ctx context.Context, userID domain.ID, in service.TransactionInput) (service.CreateResult, error)
	UpdateTransaction(ctx context.Context, userID, id domain.ID, in service.UpdateInput) (service.UpdateResult, error)
	DeleteTransaction(ctx context.Context, userID, id domain.ID) error
	ListTransactions(ctx context.Context, userID domain.ID, month time.Time) ([]domain.Transaction, error)
	CardStatement(ctx context.Context, userID, cardID domain.ID, ref time.Time) (service.CardStatement, error)

	SaveBudget(ctx context.Context, userID domain.ID, month time.Time, in service.BudgetInput) (service.BudgetView, error)
	BudgetReport(ctx context.Context, userID domain.ID, month time.Time) (service.BudgetReport, error)

	ImportStatement(ctx context.Context, userID, accountID domain.ID, cardID *domain.ID, r io.Reader) (importer.Report, error)
	RunRecurring(ctx context.Context, userID domain.ID, asOf time.Time) (service.RunReport, error)

	Today() time.Time
}

type FinanceHandler struct {
	svc            FinanceService
	currencyPrefix string
}

func NewFinanceHandler(svc FinanceService, currencyPrefix string) *FinanceHandler {
	return &FinanceHandler{svc: svc, currencyPrefix: currencyPrefix}
}

// Routes registers every authenticated endpoint on g.
func (h *FinanceHandler) Routes(g *gin.RouterGroup) {
	g.GET("/accounts", h.ListAccounts)
	g.POST("/accounts", h.CreateAccount)

	g.GET("/cards", h.ListCards)
	g.POST("/cards", h.CreateCard)
	g.GET("/cards/:id/statement", h.CardStatement)

	g.GET("/categories", h.ListCategories)
	g.POST("/categories", h.CreateCategory)

	g.GET("/transactions", h.ListTransactions)
	g.POST("/transactions", h.CreateTransaction)
	g.PUT("/transactions/:id", h.UpdateTransaction)
	g.DELETE("/transactions/:id", h.DeleteTransaction)

	g.PUT("/budgets/:month", h.SaveBudget)
	g.GET("/budgets/:month", h.GetBudget)

	g.POST("/imports", h.ImportStatement)
	g.POST("/recurring/run", h.RunRecurring)

	g.GET("/tools/amount", h.PreviewAmount)
}

func userIDFrom(c *gin.Context) (domain.ID, bool) {
	userIDVal, ok := c.Get(middleware.UserIDKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user_id missing"})
		return uuid.Nil, false
	}
	userID, ok := userIDVal.(domain.ID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return uuid.Nil, false
	}
	return userID, true
}

func pathID(c *gin.Context) (domain.ID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identificador inválido"})
		return uuid.Nil, false
	}
	return id, true
}

// optionalID expects s to be validated already.
func optionalID(s string) *domain.ID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

var userMessages = map[error]string{
	domain.ErrInvalidAmount:      "informe um valor válido",
	domain.ErrInvalidKind:        "tipo de lançamento inválido",
	domain.ErrMissingAccount:     "informe a conta",
	domain.ErrSameAccount:        "a transferência precisa de uma conta de destino diferente",
	domain.ErrInvalidInstallment: "a parcela deve estar entre 1 e o total de parcelas",
	domain.ErrInvalidFrequency:   "frequência de recorrência inválida",
	domain.ErrInvalidBillingDay:  "dias de fechamento e vencimento devem estar entre 1 e 31",
	domain.ErrRecurringSplit:     "um lançamento recorrente não pode ser parcelado",
	importer.ErrNoHeader:         "o arquivo precisa das colunas data, descrição e valor",
}

// writeError maps service errors to a status and a message for the user.
func writeError(c *gin.Context, op string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "registro não encontrado"})
		return
	}
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
	}

	slog.Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
}

func validateStruct(v any) error {
	if err := val.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		var errs []string
		for _, e := range verrs {
			errs = append(errs, fieldErrorToString(e))
		}
		return fmt.Errorf("dados inválidos: %s", strings.Join(errs, "; "))
	}
	return nil
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s é obrigatório", e.Field())
	case "yearmonth":
		return fmt.Sprintf("%s deve estar no formato AAAA-MM", e.Field())
	case "isodate":
		return fmt.Sprintf("%s deve estar no formato AAAA-MM-DD", e.Field())
	case "notblank":
		return fmt.Sprintf("%s não pode ficar em branco", e.Field())
	case "amount":
		return "informe um valor válido"
	case "uuid":
		return fmt.Sprintf("%s deve ser um identificador válido", e.Field())
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", e.Field(), e.Param())
	case "min", "max":
		return fmt.Sprintf("%s fora do intervalo permitido", e.Field())
	default:
		return fmt.Sprintf("%s é inválido", e.Field())
	}
}

// bind decodes the JSON body into req and validates it.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido"})
		return false
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
