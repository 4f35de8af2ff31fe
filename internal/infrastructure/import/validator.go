package csvimport

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a cell
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	MinValue   *decimal.Decimal
	DateFormat string
	CustomFunc func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for a column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column:     column,
			Type:       TypeString,
			DateFormat: "2006-01-02",
		},
	}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = TypeDate
	return b
}

func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets an inclusive lower bound for decimal columns
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Custom adds a check that runs after type validation succeeds
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies a rule set to rows and collects the failures
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, errors *ErrorCollection) *FieldValidator {
	return &FieldValidator{rules: rules, errors: errors}
}

// Columns lists the columns the rules cover
func (v *FieldValidator) Columns() []string {
	cols := make([]string, len(v.rules))
	for i, r := range v.rules {
		cols[i] = r.Column
	}
	return cols
}

// RequiredColumns lists the columns a file must carry
func (v *FieldValidator) RequiredColumns() []string {
	var cols []string
	for _, r := range v.rules {
		if r.Required {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// ValidateRow checks every rule against the row and reports whether it passed.
// Rules run in declaration order so errors come out in column order.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	fail := func(rule FieldRule, code, msg, value string) {
		v.errors.Add(RowError{Row: row.LineNumber, Column: rule.Column, Code: code, Message: msg, Value: value})
		ok = false
	}

	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				fail(rule, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", rule.Column), "")
			}
			continue
		}
		if rule.MaxLength > 0 && len(value) > rule.MaxLength {
			fail(rule, ErrCodeInvalidLength, fmt.Sprintf("length must be at most %d", rule.MaxLength), "")
			continue
		}

		switch rule.Type {
		case TypeDecimal:
			d, err := decimal.NewFromString(value)
			if err != nil {
				fail(rule, ErrCodeInvalidType, "expected decimal", value)
				continue
			}
			if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
				fail(rule, ErrCodeInvalidRange, fmt.Sprintf("value must be at least %s", rule.MinValue), value)
				continue
			}
		case TypeDate:
			if _, err := time.Parse(rule.DateFormat, value); err != nil {
				fail(rule, ErrCodeInvalidType, fmt.Sprintf("expected date %s", rule.DateFormat), value)
				continue
			}
		}

		if rule.CustomFunc != nil {
			if err := rule.CustomFunc(value); err != nil {
				fail(rule, ErrCodeInvalidType, err.Error(), value)
			}
		}
	}
	return ok
}
