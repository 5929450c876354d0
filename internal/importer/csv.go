// internal/importer/csv.go
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/money"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNoHeader = errors.New("csv: missing date, description or amount column")

// Row is one parsed statement line. Amount keeps the sign found in the file.
type Row struct {
	Line        int
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
}

// RowError explains why a line was skipped.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

var headerAliases = map[string][]string{
	"date":        {"data", "date", "data lancamento", "data da compra", "data de lancamento"},
	"description": {"descricao", "description", "historico", "lancamento", "estabelecimento", "memo"},
	"amount":      {"valor", "amount", "valor (r$)", "valor r$", "value"},
	"category":    {"categoria", "category"},
}

var dateLayouts = []string{calendar.Layout, "02/01/2006", "02/01/06", "2006/01/02"}

// Fold lowercases s and strips accents, so "Descrição" matches "descricao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// decode returns UTF-8 text; bank exports in Windows-1252 are converted.
func decode(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return raw
	}
	fixed, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return bytes.ToValidUTF8(raw, nil)
	}
	return fixed
}

func detectDelimiter(text []byte) rune {
	firstLine, _, _ := bytes.Cut(text, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) >= bytes.Count(firstLine, []byte(",")) && bytes.Contains(firstLine, []byte(";")) {
		return ';'
	}
	return ','
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse reads a bank statement CSV. Lines that cannot be used are reported
// and skipped; only an unreadable file or a missing header is an error.
func Parse(r io.Reader) ([]Row, []RowError, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	text := decode(raw)

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := mapHeader(header)
	if cols["date"] < 0 || cols["description"] < 0 || cols["amount"] < 0 {
		return nil, nil, ErrNoHeader
	}

	var (
		rows    []Row
		skipped []RowError
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(rec) {
			continue
		}

		field := func(name string) string {
			if i := cols[name]; i >= 0 && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		date, ok := parseDate(field("date"))
		if !ok {
			skipped = append(skipped, RowError{Line: line, Reason: fmt.Sprintf("data inválida %q", field("date"))})
			continue
		}
		amount := money.ParseAmount(field("amount"))
		if amount.IsZero() {
			skipped = append(skipped, RowError{Line: line, Reason: "valor zerado ou inválido"})
			continue
		}

		rows = append(rows, Row{
			Line:        line,
			Date:        calendar.Day(date),
			Description: strings.Join(strings.Fields(field("description")), " "),
			Amount:      amount,
			Category:    field("category"),
		})
	}
	return rows, skipped, nil
}

func mapHeader(header []string) map[string]int {
	cols := map[string]int{"date": -1, "description": -1, "amount": -1, "category": -1}
	for i, h := range header {
		name := Fold(h)
		for col, aliases := range headerAliases {
			if cols[col] >= 0 {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[col] = i
				}
			}
		}
	}
	return cols
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
