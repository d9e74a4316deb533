package market

import "fmt"

// InvalidVarietyError reports a variety that is not one of the canonical
// cultivars. Input preserves the offending raw value.
type InvalidVarietyError struct {
	Input string
}

func (e *InvalidVarietyError) Error() string {
	return fmt.Sprintf("invalid variety %q", e.Input)
}

// InvalidGradeError reports a quality grade outside [1,10] or a
// non-integer grade input.
type InvalidGradeError struct {
	Input string
}

func (e *InvalidGradeError) Error() string {
	return fmt.Sprintf("invalid grade %q: must be an integer between %d and %d", e.Input, MinGrade, MaxGrade)
}

// InvalidMonthError reports a month outside [1,12].
type InvalidMonthError struct {
	Input string
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("invalid month %q: must be an integer between 1 and 12", e.Input)
}

// InvalidAmountError reports a numeric amount that is zero, negative or
// unparseable where a positive value is required.
type InvalidAmountError struct {
	Field string
	Input string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be a positive amount", e.Field, e.Input)
}

// PriceFetchError wraps a failure from the quote source. Op names the
// operation; Variety and Grade are zero-valued for operations that do not
// take a pricing key.
type PriceFetchError struct {
	Op      string
	Variety Variety
	Grade   int
	Err     error
}

func (e *PriceFetchError) Error() string {
	if e.Variety == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s for %s grade %d: %v", e.Op, e.Variety, e.Grade, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or unusable dependency at
// construction time.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}
