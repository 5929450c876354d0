// internal/handler/finance.go
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/money"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// === Accounts ===

func (h *FinanceHandler) ListAccounts(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	accounts, err := h.svc.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "ListAccounts", err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *FinanceHandler) CreateAccount(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req AccountRequest
	if !bind(c, &req) {
		return
	}

	account, err := h.svc.CreateAccount(c.Request.Context(), userID, domain.Account{
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: money.ParseAmount(req.OpeningBalance),
	})
	if err != nil {
		writeError(c, "CreateAccount", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// === Cards ===

func (h *FinanceHandler) ListCards(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	cards, err := h.svc.ListCards(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "ListCards", err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *FinanceHandler) CreateCard(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req CardRequest
	if !bind(c, &req) {
		return
	}

	card, err := h.svc.CreateCard(c.Request.Context(), userID, domain.Card{
		AccountID:   uuid.MustParse(req.AccountID),
		Name:        req.Name,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
		LimitAmount: money.ParseAmount(req.LimitAmount),
	})
	if err != nil {
		writeError(c, "CreateCard", err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// CardStatement godoc
// @Summary Billing cycle of a card
// @Param id path string true "Card ID"
// @Param date query string false "Any day of the cycle, YYYY-MM-DD (default today)"
// @Router /api/v1/cards/{id}/statement [get]
func (h *FinanceHandler) CardStatement(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c)
	if !ok {
		return
	}
	ref, ok := h.dayQuery(c, "date")
	if !ok {
		return
	}

	st, err := h.svc.CardStatement(c.Request.Context(), userID, cardID, ref)
	if err != nil {
		writeError(c, "CardStatement", err)
		return
	}
	c.JSON(http.StatusOK, h.statement(st))
}

// === Categories ===

func (h *FinanceHandler) ListCategories(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	categories, err := h.svc.ListCategories(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "ListCategories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *FinanceHandler) CreateCategory(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if !bind(c, &req) {
		return
	}

	category, err := h.svc.CreateCategory(c.Request.Context(), userID, req.Name, domain.Kind(req.Kind))
	if err != nil {
		writeError(c, "CreateCategory", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// === Transactions ===

// ListTransactions godoc
// @Param month query string false "YYYY-MM (default current month)"
// @Router /api/v1/transactions [get]
func (h *FinanceHandler) ListTransactions(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	month, ok := h.monthValue(c, c.Query("month"))
	if !ok {
		return
	}

	txs, err := h.svc.ListTransactions(c.Request.Context(), userID, month)
	if err != nil {
		writeError(c, "ListTransactions", err)
		return
	}
	c.JSON(http.StatusOK, h.transactions(txs))
}

// CreateTransaction godoc
// @Summary Create a transaction, its installments or a recurring rule
// @Param request body TransactionRequest true "Transaction"
// @Router /api/v1/transactions [post]
func (h *FinanceHandler) CreateTransaction(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	var req TransactionRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.CreateTransaction(c.Request.Context(), userID, req.toInput())
	if err != nil {
		writeError(c, "CreateTransaction", err)
		return
	}

	slog.Info("CreateTransaction ok", "user_id", userID, "rows", len(res.Transactions))
	c.JSON(http.StatusCreated, gin.H{
		"transactions":   h.transactions(res.Transactions),
		"recurring_rule": res.Rule,
	})
}

// UpdateTransaction godoc
// @Summary Update a transaction; optionally create the remaining installments
// @Param id path string true "Transaction ID"
// @Param request body UpdateTransactionRequest true "Transaction"
// @Router /api/v1/transactions/{id} [put]
func (h *FinanceHandler) UpdateTransaction(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.UpdateTransaction(c.Request.Context(), userID, id, req.toInput())
	if err != nil {
		writeError(c, "UpdateTransaction", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction":         h.transactions([]domain.Transaction{res.Transaction})[0],
		"future_installments": h.transactions(res.Future),
	})
}

func (h *FinanceHandler) DeleteTransaction(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteTransaction(c.Request.Context(), userID, id); err != nil {
		writeError(c, "DeleteTransaction", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// === Budgets ===

// SaveBudget godoc
// @Summary Save the monthly budget; percentages over 100 in total are rescaled
// @Param month path string true "YYYY-MM"
// @Param request body BudgetRequest true "Budget"
// @Router /api/v1/budgets/{month} [put]
func (h *FinanceHandler) SaveBudget(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	month, ok := h.monthValue(c, c.Param("month"))
	if !ok {
		return
	}
	var req BudgetRequest
	if !bind(c, &req) {
		return
	}

	view, err := h.svc.SaveBudget(c.Request.Context(), userID, month, req.toInput())
	if err != nil {
		writeError(c, "SaveBudget", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"budget":     budgetOut(view.Budget),
		"allocation": view.Allocation,
		"items":      view.Items,
	})
}

func (h *FinanceHandler) GetBudget(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	month, ok := h.monthValue(c, c.Param("month"))
	if !ok {
		return
	}

	report, err := h.svc.BudgetReport(c.Request.Context(), userID, month)
	if err != nil {
		writeError(c, "BudgetReport", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"budget":     budgetOut(report.Budget),
		"allocation": report.Allocation,
		"expenses":   report.Expenses,
		"items":      report.Items,
		"income":     report.Income,
		"invested":   report.Invested,
	})
}

// === Imports / recurring ===

// ImportStatement godoc
// @Summary Import a bank statement CSV
// @Accept multipart/form-data
// @Param file formData file true "CSV file"
// @Param account_id formData string true "Account ID"
// @Param card_id formData string false "Card ID for card statements"
// @Router /api/v1/imports [post]
func (h *FinanceHandler) ImportStatement(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(c.PostForm("account_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "informe a conta"})
		return
	}
	var cardID *domain.ID
	if raw := c.PostForm("card_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cartão inválido"})
			return
		}
		cardID = &id
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "envie o arquivo no campo file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, "ImportStatement", err)
		return
	}
	defer f.Close()

	report, err := h.svc.ImportStatement(c.Request.Context(), userID, accountID, cardID, f)
	if err != nil {
		writeError(c, "ImportStatement", err)
		return
	}
	slog.Info("ImportStatement ok", "user_id", userID, "file", fh.Filename, "imported", report.Imported)
	c.JSON(http.StatusOK, report)
}

// RunRecurring godoc
// @Param as_of query string false "YYYY-MM-DD (default today)"
// @Router /api/v1/recurring/run [post]
func (h *FinanceHandler) RunRecurring(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	asOf, ok := h.dayQuery(c, "as_of")
	if !ok {
		return
	}

	report, err := h.svc.RunRecurring(c.Request.Context(), userID, asOf)
	if err != nil {
		// some rules may have run; the report goes out with the error
		slog.Error("RunRecurring failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro ao gerar recorrências", "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// PreviewAmount parses a free-form amount and echoes it back formatted.
func (h *FinanceHandler) PreviewAmount(c *gin.Context) {
	v := money.ParseAmount(c.Query("raw"))
	c.JSON(http.StatusOK, gin.H{
		"value":     v.StringFixed(2),
		"formatted": money.FormatAmount(v, h.currencyPrefix),
		"valid":     v.IsPositive(),
	})
}

func (h *FinanceHandler) dayQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return h.svc.Today(), true
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " deve estar no formato AAAA-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}

func (h *FinanceHandler) monthValue(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return calendar.MonthStart(h.svc.Today()), true
	}
	m, err := calendar.ParseMonth(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mês deve estar no formato AAAA-MM"})
		return time.Time{}, false
	}
	return m, true
}
