// internal/validator/validator.go
package validator

import (
	"regexp"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/money"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New()

	// месяц: "2024-12"
	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseMonth(fl.Field().String())
		return err == nil
	})

	// дата: "2024-12-31"
	_ = Validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := calendar.Parse(fl.Field().String())
		return err == nil
	})

	// строка не пустая и не только пробелы
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})

	// сумма в любом формате ("1.234,56", "R$ 10", "10.5"), строго больше нуля
	_ = Validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		return money.ParseAmount(fl.Field().String()).IsPositive()
	})
}
