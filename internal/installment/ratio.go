// internal/installment/ratio.go
package installment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Ratio is the "k/N" marker carried in a description.
type Ratio struct {
	Number int `json:"installment_number"`
	Total  int `json:"total_installments"`
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Number, r.Total)
}

var ratioRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)

// findRatio returns the first valid ratio and its byte span. Parts of a date
// such as "05/03/2024" are skipped.
func findRatio(desc string) (Ratio, int, int, bool) {
	for _, m := range ratioRe.FindAllStringSubmatchIndex(desc, -1) {
		start, end := m[0], m[1]
		if start > 0 && desc[start-1] == '/' {
			continue
		}
		if end < len(desc) && desc[end] == '/' {
			continue
		}
		k, _ := strconv.Atoi(desc[m[2]:m[3]])
		n, _ := strconv.Atoi(desc[m[4]:m[5]])
		if k < 1 || k > n {
			continue
		}
		return Ratio{Number: k, Total: n}, start, end, true
	}
	return Ratio{}, 0, 0, false
}

// ExtractRatio finds the first "k/N" marker with 1 ≤ k ≤ N.
func ExtractRatio(desc string) (Ratio, bool) {
	r, _, _, ok := findRatio(desc)
	return r, ok
}

// UpsertRatio rewrites the existing marker in place or appends one.
// Invalid numbering leaves desc untouched.
func UpsertRatio(desc string, number, total int) string {
	if number <= 0 || total <= 0 || number > total {
		return desc
	}
	marker := Ratio{Number: number, Total: total}.String()

	if _, start, end, ok := findRatio(desc); ok {
		return desc[:start] + marker + desc[end:]
	}

	trimmed := strings.TrimSpace(desc)
	if trimmed == "" {
		return marker
	}
	return trimmed + " " + marker
}
