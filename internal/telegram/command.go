// internal/telegram/command.go
package telegram

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"finance-tracker/internal/money"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

type Command struct {
	Name string
	Args []string
}

// ParseCommand splits "/gasto@MeuBot 12,50 padaria" into its name and
// arguments. Text that is not a command returns ok == false.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}

var (
	ErrExpenseUsage = errors.New("use: /gasto <valor> <descrição> [Nx] [@cartão]")
	installmentsRe  = regexp.MustCompile(`^(\d{1,2})[xX]$`)
)

type Expense struct {
	Amount       decimal.Decimal
	Description  string
	Installments int
	Card         string
}

// ParseExpense reads the arguments of /gasto: the amount first, then a
// description, an optional "Nx" installment count and an optional "@card".
func ParseExpense(args []string) (Expense, error) {
	if len(args) == 0 {
		return Expense{}, ErrExpenseUsage
	}
	e := Expense{Amount: money.ParseAmount(args[0]), Installments: 1}
	if !e.Amount.IsPositive() {
		return Expense{}, ErrExpenseUsage
	}

	var desc []string
	for _, a := range args[1:] {
		if m := installmentsRe.FindStringSubmatch(a); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n >= 1 {
				e.Installments = n
			}
			continue
		}
		if card, ok := strings.CutPrefix(a, "@"); ok && card != "" {
			e.Card = card
			continue
		}
		desc = append(desc, a)
	}
	e.Description = strings.Join(desc, " ")
	if e.Description == "" {
		e.Description = "Gasto"
	}
	return e, nil
}

// FixEncoding repairs text that arrives as Windows-1252 bytes.
func FixEncoding(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	fixed, err := charmap.Windows1252.NewDecoder().String(s)
	if err == nil && utf8.ValidString(fixed) {
		return fixed
	}
	return strings.ToValidUTF8(s, "")
}
