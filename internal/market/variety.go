package market

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Variety is a coffee cultivar category. It is one half of the pricing key
// and is always stored in its canonical upper-case form.
type Variety string

const (
	Arabica   Variety = "ARABICA"
	Robusta   Variety = "ROBUSTA"
	Specialty Variety = "SPECIALTY"
	Organic   Variety = "ORGANIC"
	Typica    Variety = "TYPICA"
)

// Grade bounds. 1 is the lowest quality rating, 10 the highest.
const (
	MinGrade = 1
	MaxGrade = 10
)

var varieties = map[Variety]struct{}{
	Arabica:   {},
	Robusta:   {},
	Specialty: {},
	Organic:   {},
	Typica:    {},
}

// ParseVariety normalizes raw input to a canonical Variety.
// Matching is case-insensitive; surrounding whitespace is ignored.
func ParseVariety(raw string) (Variety, error) {
	v := Variety(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := varieties[v]; !ok {
		return "", &InvalidVarietyError{Input: raw}
	}
	return v, nil
}

// ValidateGrade checks that grade is an integer in [MinGrade, MaxGrade].
func ValidateGrade(grade int) error {
	if grade < MinGrade || grade > MaxGrade {
		return &InvalidGradeError{Input: strconv.Itoa(grade)}
	}
	return nil
}

// ParseGrade parses form-ish input like "7". Non-integers ("3.5", "high")
// and out-of-range values are rejected.
func ParseGrade(raw string) (int, error) {
	g, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidGradeError{Input: raw}
	}
	if err := ValidateGrade(g); err != nil {
		return 0, err
	}
	return g, nil
}

// ValidateMonth checks that month is an integer in [1, 12].
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return &InvalidMonthError{Input: strconv.Itoa(month)}
	}
	return nil
}

// ParseMonth parses form-ish input like "4".
func ParseMonth(raw string) (int, error) {
	m, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidMonthError{Input: raw}
	}
	if err := ValidateMonth(m); err != nil {
		return 0, err
	}
	return m, nil
}

// ParseAmount parses a decimal amount that must be strictly positive,
// e.g. a yield or a proposed sale price.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, &InvalidAmountError{Field: field, Input: raw}
	}
	return d, nil
}

// CacheKey builds the canonical cache key for a (variety, grade) pair.
func CacheKey(v Variety, grade int) string {
	return string(v) + ":" + strconv.Itoa(grade)
}
