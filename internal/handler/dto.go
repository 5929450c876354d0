// internal/handler/dto.go
package handler

import (
	"finance-tracker/internal/budget"
	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/money"
	"finance-tracker/internal/service"

	"github.com/google/uuid"
)

// === Requests ===

type AccountRequest struct {
	Name           string `json:"name" validate:"required,notblank"`
	Type           string `json:"type" validate:"omitempty,oneof=checking savings cash investment"`
	OpeningBalance string `json:"opening_balance"`
}

type CardRequest struct {
	AccountID   string `json:"account_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,notblank"`
	ClosingDay  int    `json:"closing_day" validate:"required,min=1,max=31"`
	DueDay      int    `json:"due_day" validate:"required,min=1,max=31"`
	LimitAmount string `json:"limit_amount" validate:"omitempty,amount"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,notblank"`
	Kind string `json:"kind" validate:"omitempty,oneof=income expense transfer investment_contribution investment_withdrawal"`
}

type transactionFields struct {
	Kind          string `json:"kind" validate:"required,oneof=income expense transfer investment_contribution investment_withdrawal"`
	Amount        string `json:"amount" validate:"required,amount"`
	Date          string `json:"date" validate:"required,isodate"`
	AccountID     string `json:"account_id" validate:"required,uuid"`
	ToAccountID   string `json:"to_account_id" validate:"omitempty,uuid"`
	CategoryID    string `json:"category_id" validate:"omitempty,uuid"`
	CardID        string `json:"card_id" validate:"omitempty,uuid"`
	Description   string `json:"description" validate:"max=255"`
	IsBillPayment bool   `json:"is_bill_payment"`
}

type RecurrenceRequest struct {
	Frequency   string `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	Interval    int    `json:"interval" validate:"omitempty,min=1,max=366"`
	EndOn       string `json:"end_on" validate:"omitempty,isodate"`
	Occurrences *int   `json:"occurrences" validate:"omitempty,min=1"`
}

type TransactionRequest struct {
	transactionFields
	Installments int                `json:"installments" validate:"omitempty,min=1,max=72"`
	Recurrence   *RecurrenceRequest `json:"recurrence"`
}

type UpdateTransactionRequest struct {
	transactionFields
	InstallmentNumber        *int `json:"installment_number" validate:"omitempty,min=1"`
	TotalInstallments        *int `json:"total_installments" validate:"omitempty,min=1"`
	CreateFutureInstallments bool `json:"create_future_installments"`
}

type BudgetItemRequest struct {
	CategoryID  string `json:"category_id" validate:"required,uuid"`
	AmountLimit string `json:"amount_limit" validate:"required,amount"`
}

type BudgetRequest struct {
	IncomeTarget  string              `json:"income_target" validate:"required,amount"`
	InvestmentPct string              `json:"investment_pct"`
	ReservePct    string              `json:"reserve_pct"`
	Items         []BudgetItemRequest `json:"items" validate:"dive"`
}

func (f transactionFields) base() service.TransactionInput {
	date, _ := calendar.Parse(f.Date)
	return service.TransactionInput{
		Kind:          domain.Kind(f.Kind),
		Amount:        money.ParseAmount(f.Amount),
		OccurredOn:    date,
		AccountID:     uuid.MustParse(f.AccountID),
		ToAccountID:   optionalID(f.ToAccountID),
		CategoryID:    optionalID(f.CategoryID),
		CardID:        optionalID(f.CardID),
		Description:   f.Description,
		IsBillPayment: f.IsBillPayment,
	}
}

func (r TransactionRequest) toInput() service.TransactionInput {
	in := r.base()
	in.Installments = r.Installments
	if r.Recurrence != nil {
		rec := &service.Recurrence{
			Frequency:   domain.Frequency(r.Recurrence.Frequency),
			Interval:    r.Recurrence.Interval,
			Occurrences: r.Recurrence.Occurrences,
		}
		if r.Recurrence.EndOn != "" {
			end, _ := calendar.Parse(r.Recurrence.EndOn)
			rec.EndOn = &end
		}
		in.Recurrence = rec
	}
	return in
}

func (r UpdateTransactionRequest) toInput() service.UpdateInput {
	b := r.base()
	return service.UpdateInput{
		Kind:                     b.Kind,
		Amount:                   b.Amount,
		OccurredOn:               b.OccurredOn,
		AccountID:                b.AccountID,
		ToAccountID:              b.ToAccountID,
		CategoryID:               b.CategoryID,
		CardID:                   b.CardID,
		Description:              b.Description,
		IsBillPayment:            b.IsBillPayment,
		InstallmentNumber:        r.InstallmentNumber,
		TotalInstallments:        r.TotalInstallments,
		CreateFutureInstallments: r.CreateFutureInstallments,
	}
}

func (r BudgetRequest) toInput() service.BudgetInput {
	in := service.BudgetInput{
		IncomeTarget:  money.ParseAmount(r.IncomeTarget),
		InvestmentPct: budget.ParsePercent(r.InvestmentPct),
		ReservePct:    budget.ParsePercent(r.ReservePct),
		Items:         make([]domain.BudgetItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, domain.BudgetItem{
			CategoryID:  uuid.MustParse(item.CategoryID),
			AmountLimit: money.ParseAmount(item.AmountLimit),
		})
	}
	return in
}

// === Responses ===
// Dates go out as YYYY-MM-DD and amounts also come preformatted for display.

type transactionResponse struct {
	domain.Transaction
	OccurredOn      string `json:"occurred_on"`
	AmountFormatted string `json:"amount_formatted"`
}

func (h *FinanceHandler) transactions(txs []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			Transaction:     tx,
			OccurredOn:      calendar.Format(tx.OccurredOn),
			AmountFormatted: money.FormatAmount(tx.Amount, h.currencyPrefix),
		})
	}
	return out
}

type statementResponse struct {
	Card               domain.Card           `json:"card"`
	Start              string                `json:"start"`
	End                string                `json:"end"`
	ClosingDate        string                `json:"closing_date"`
	DueDate            string                `json:"due_date"`
	Transactions       []transactionResponse `json:"transactions"`
	Total              string                `json:"total"`
	TotalFormatted     string                `json:"total_formatted"`
	Available          string                `json:"available"`
	AvailableFormatted string                `json:"available_formatted"`
}

func (h *FinanceHandler) statement(st service.CardStatement) statementResponse {
	return statementResponse{
		Card:               st.Card,
		Start:              calendar.Format(st.Start),
		End:                calendar.Format(st.End),
		ClosingDate:        calendar.Format(st.ClosingDate),
		DueDate:            calendar.Format(st.DueDate),
		Transactions:       h.transactions(st.Transactions),
		Total:              st.Total.StringFixed(2),
		TotalFormatted:     money.FormatAmount(st.Total, h.currencyPrefix),
		Available:          st.Available.StringFixed(2),
		AvailableFormatted: money.FormatAmount(st.Available, h.currencyPrefix),
	}
}

type budgetResponse struct {
	domain.MonthlyBudget
	Month string `json:"month"`
}

func budgetOut(b domain.MonthlyBudget) budgetResponse {
	return budgetResponse{MonthlyBudget: b, Month: b.Month.Format("2006-01")}
}
