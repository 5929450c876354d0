// internal/telegram/bot.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/money"
	"finance-tracker/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Finance is what the bot needs from the service layer.
type Finance interface {
	ListAccounts(ctx context.Context, userID domain.ID) ([]domain.Account, error)
	ListCards(ctx context.Context, userID domain.ID) ([]domain.Card, error)
	FindCard(ctx context.Context, userID domain.ID, name string) (*domain.Card, error)
	CardStatement(ctx context.Context, userID, cardID domain.ID, ref time.Time) (service.CardStatement, error)
	CreateTransaction(ctx context.Context, userID domain.ID, in service.TransactionInput) (service.CreateResult, error)
	BudgetReport(ctx context.Context, userID domain.ID, month time.Time) (service.BudgetReport, error)
	Today() time.Time
}

const dateBR = "02/01/2006"

const helpText = "💰 *Controle financeiro*\n\n" +
	"Comandos:\n" +
	"`/fatura [cartão]` mostra a fatura atual\n" +
	"`/gasto 12,50 padaria [3x] [@cartão]` registra um gasto\n" +
	"`/orcamento [AAAA-MM]` mostra o orçamento do mês\n" +
	"`/help` esta mensagem"

type Bot struct {
	api    *tgbotapi.BotAPI
	svc    Finance
	users  map[int64]domain.ID
	prefix string
}

func New(api *tgbotapi.BotAPI, svc Finance, users map[int64]domain.ID, currencyPrefix string) *Bot {
	return &Bot{api: api, svc: svc, users: users, prefix: currencyPrefix}
}

// Run long-polls Telegram until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			chatID := update.Message.Chat.ID
			text := strings.TrimSpace(FixEncoding(update.Message.Text))
			slog.Info("📥 message received", "chat_id", chatID, "text", text)

			msg := tgbotapi.NewMessage(chatID, b.Handle(ctx, chatID, text))
			msg.ParseMode = tgbotapi.ModeMarkdown
			if _, err := b.api.Send(msg); err != nil {
				slog.Error("send reply failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

// Handle answers one message.
func (b *Bot) Handle(ctx context.Context, chatID int64, text string) string {
	cmd, ok := ParseCommand(text)
	if !ok {
		return "Comando desconhecido. Envie /help"
	}
	if cmd.Name == "start" || cmd.Name == "help" {
		return helpText
	}

	userID, ok := b.users[chatID]
	if !ok {
		return fmt.Sprintf("🔒 Chat não autorizado. Seu chat id: `%d`", chatID)
	}

	var (
		reply string
		err   error
	)
	switch cmd.Name {
	case "fatura":
		reply, err = b.statement(ctx, userID, cmd.Args)
	case "gasto":
		reply, err = b.expense(ctx, userID, cmd.Args)
	case "orcamento":
		reply, err = b.budget(ctx, userID, cmd.Args)
	default:
		return "Comando desconhecido. Envie /help"
	}

	if err != nil {
		slog.Error("bot command failed", "command", cmd.Name, "user_id", userID, "error", err)
		return "❌ Erro interno, tente novamente"
	}
	return reply
}

// escape keeps user text from breaking the Markdown of a reply.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func (b *Bot) pickCard(ctx context.Context, userID domain.ID, name string) (*domain.Card, string, error) {
	if name != "" {
		card, err := b.svc.FindCard(ctx, userID, name)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Sprintf("📭 Cartão *%s* não encontrado", escape(name)), nil
		}
		return card, "", err
	}

	cards, err := b.svc.ListCards(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	switch len(cards) {
	case 0:
		return nil, "📭 Nenhum cartão cadastrado", nil
	case 1:
		return &cards[0], "", nil
	}
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, escape(c.Name))
	}
	return nil, "Qual cartão? " + strings.Join(names, ", "), nil
}

func (b *Bot) statement(ctx context.Context, userID domain.ID, args []string) (string, error) {
	card, notice, err := b.pickCard(ctx, userID, strings.Join(args, " "))
	if err != nil || card == nil {
		return notice, err
	}

	st, err := b.svc.CardStatement(ctx, userID, card.ID, b.svc.Today())
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("💳 *%s*", escape(card.Name)),
		fmt.Sprintf("Período: %s a %s", st.Start.Format(dateBR), st.End.Format(dateBR)),
		fmt.Sprintf("Fechamento: %s", st.ClosingDate.Format(dateBR)),
		fmt.Sprintf("Vencimento: %s", st.DueDate.Format(dateBR)),
		fmt.Sprintf("Lançamentos: %d", len(st.Transactions)),
		fmt.Sprintf("Total: %s", money.FormatAmount(st.Total, b.prefix)),
	}
	if card.LimitAmount.IsPositive() {
		lines = append(lines, fmt.Sprintf("Disponível: %s", money.FormatAmount(st.Available, b.prefix)))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) expense(ctx context.Context, userID domain.ID, args []string) (string, error) {
	e, err := ParseExpense(args)
	if err != nil {
		return "❌ " + err.Error(), nil
	}

	in := service.TransactionInput{
		Kind:         domain.KindExpense,
		Amount:       e.Amount,
		OccurredOn:   b.svc.Today(),
		Description:  e.Description,
		Installments: e.Installments,
	}
	if e.Card != "" {
		card, notice, err := b.pickCard(ctx, userID, e.Card)
		if err != nil || card == nil {
			return notice, err
		}
		in.AccountID = card.AccountID
		in.CardID = &card.ID
	} else {
		accounts, err := b.svc.ListAccounts(ctx, userID)
		if err != nil {
			return "", err
		}
		if len(accounts) == 0 {
			return "📭 Cadastre uma conta primeiro", nil
		}
		in.AccountID = accounts[0].ID
	}

	res, err := b.svc.CreateTransaction(ctx, userID, in)
	if err != nil {
		return "", err
	}

	reply := fmt.Sprintf("✅ Gasto registrado: %s, %s", escape(e.Description), money.FormatAmount(e.Amount, b.prefix))
	if n := len(res.Transactions); n > 1 {
		last := res.Transactions[n-1].OccurredOn
		reply += fmt.Sprintf("\n%d parcelas, a última em %s", n, last.Format(dateBR))
	}
	return reply, nil
}

func (b *Bot) budget(ctx context.Context, userID domain.ID, args []string) (string, error) {
	month := calendar.MonthStart(b.svc.Today())
	if len(args) > 0 {
		m, err := calendar.ParseMonth(args[0])
		if err != nil {
			return "❌ Use o mês no formato AAAA-MM", nil
		}
		month = m
	}
	label := month.Format("2006-01")

	report, err := b.svc.BudgetReport(ctx, userID, month)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("📭 Sem orçamento para %s", label), nil
	}
	if err != nil {
		return "", err
	}

	bgt := report.Budget
	lines := []string{
		fmt.Sprintf("📊 *Orçamento %s*", label),
		fmt.Sprintf("Renda prevista: %s", money.FormatAmount(bgt.IncomeTarget, b.prefix)),
		fmt.Sprintf("Investimento: %s (%.0f%%)", money.FormatAmount(bgt.InvestmentTarget, b.prefix), report.Allocation.Investment),
		fmt.Sprintf("Reserva: %s (%.0f%%)", money.FormatAmount(bgt.ReserveTarget, b.prefix), report.Allocation.Reserve),
		fmt.Sprintf("Limite de gastos: %s", money.FormatAmount(bgt.ExpenseLimit, b.prefix)),
		fmt.Sprintf("Gasto até agora: %s (%.1f%%)", money.FormatAmount(report.Expenses.Spent, b.prefix), report.Expenses.PercentUsed),
	}
	if report.Expenses.Exceeded {
		lines = append(lines, "⚠️ Limite de gastos estourado")
	}
	return strings.Join(lines, "\n"), nil
}
