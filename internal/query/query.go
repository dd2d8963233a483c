// Package query validates conference filters and turns them into a
// backend-neutral plan of conditions plus sort order.
package query

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/confcentral/confcentral/internal/model"
)

// Field is a filterable conference attribute.
type Field string

// Filterable fields.
const (
	FieldCity         Field = "city"
	FieldTopics       Field = "topics"
	FieldMonth        Field = "month"
	FieldMaxAttendees Field = "maxAttendees"
	FieldName         Field = "name"
)

// Operator is a comparison operator.
type Operator string

// Supported operators.
const (
	OpEQ   Operator = "="
	OpGT   Operator = ">"
	OpGTEQ Operator = ">="
	OpLT   Operator = "<"
	OpLTEQ Operator = "<="
	OpNE   Operator = "!="
)

// fieldAliases maps wire names to fields.
var fieldAliases = map[string]Field{
	"CITY":          FieldCity,
	"TOPIC":         FieldTopics,
	"MONTH":         FieldMonth,
	"MAX_ATTENDEES": FieldMaxAttendees,
}

// operatorAliases maps wire names to operators.
var operatorAliases = map[string]Operator{
	"EQ":   OpEQ,
	"GT":   OpGT,
	"GTEQ": OpGTEQ,
	"LT":   OpLT,
	"LTEQ": OpLTEQ,
	"NE":   OpNE,
}

// Errors returned while building a plan.
var (
	ErrInvalidFilter      = errors.New("filter contains invalid field or operator")
	ErrInvalidValue       = errors.New("filter value has the wrong type")
	ErrMultipleInequality = errors.New("inequality filter is allowed on only one field")
)

// Filter is a caller supplied (field, operator, value) triple using wire aliases.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Condition is a validated filter with its value coerced to the field's type.
type Condition struct {
	Field    Field
	Operator Operator
	Str      string
	Int      int
}

// IsNumeric reports whether the condition compares integers.
func (c Condition) IsNumeric() bool {
	return isNumericField(c.Field)
}

// Plan is an ordered set of conditions plus the sort order they imply.
type Plan struct {
	Conditions      []Condition
	InequalityField Field
}

// Build validates filters and produces a plan. Unknown fields or operators,
// non-numeric values for numeric fields and inequalities on more than one
// field all fail the whole request.
func Build(filters []Filter) (*Plan, error) {
	plan := &Plan{Conditions: make([]Condition, 0, len(filters))}

	for _, f := range filters {
		field, ok := fieldAliases[strings.ToUpper(strings.TrimSpace(f.Field))]
		if !ok {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
		}
		op, ok := operatorAliases[strings.ToUpper(strings.TrimSpace(f.Operator))]
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", ErrInvalidFilter, f.Operator)
		}

		cond := Condition{Field: field, Operator: op, Str: f.Value}
		if isNumericField(field) {
			n, err := strconv.Atoi(strings.TrimSpace(f.Value))
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, field, f.Value)
			}
			cond.Int = n
		}

		if op != OpEQ {
			if plan.InequalityField != "" && plan.InequalityField != field {
				return nil, fmt.Errorf("%w: %s and %s", ErrMultipleInequality, plan.InequalityField, field)
			}
			plan.InequalityField = field
		}

		plan.Conditions = append(plan.Conditions, cond)
	}

	return plan, nil
}

// MustBuild is Build for fixed presets; it panics on invalid input.
func MustBuild(filters ...Filter) *Plan {
	plan, err := Build(filters)
	if err != nil {
		panic(err)
	}
	return plan
}

// OrderBy returns the ascending sort fields: the inequality field first when
// present, then name.
func (p *Plan) OrderBy() []Field {
	if p.InequalityField != "" {
		return []Field{p.InequalityField, FieldName}
	}
	return []Field{FieldName}
}

// Match evaluates every condition against a conference.
func (p *Plan) Match(c *model.Conference) bool {
	for _, cond := range p.Conditions {
		if !cond.match(c) {
			return false
		}
	}
	return true
}

// Less orders two conferences according to OrderBy, with id as a final tiebreak.
func (p *Plan) Less(a, b *model.Conference) bool {
	for _, field := range p.OrderBy() {
		if cmp := compareField(field, a, b); cmp != 0 {
			return cmp < 0
		}
	}
	return a.ID < b.ID
}

// Apply filters and sorts conferences in memory.
func (p *Plan) Apply(confs []*model.Conference) []*model.Conference {
	out := make([]*model.Conference, 0, len(confs))
	for _, c := range confs {
		if p.Match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return p.Less(out[i], out[j]) })
	return out
}

func (c Condition) match(conf *model.Conference) bool {
	switch c.Field {
	case FieldCity:
		return compareOp(c.Operator, strings.Compare(conf.City, c.Str))
	case FieldMonth:
		return compareOp(c.Operator, compareInt(conf.Month, c.Int))
	case FieldMaxAttendees:
		return compareOp(c.Operator, compareInt(conf.MaxAttendees, c.Int))
	case FieldTopics:
		switch c.Operator {
		case OpEQ:
			return conf.HasTopic(c.Str)
		case OpNE:
			return !conf.HasTopic(c.Str)
		default:
			return slices.ContainsFunc(conf.Topics, func(t string) bool {
				return compareOp(c.Operator, strings.Compare(t, c.Str))
			})
		}
	}
	return false
}

func compareOp(op Operator, cmp int) bool {
	switch op {
	case OpEQ:
		return cmp == 0
	case OpNE:
		return cmp != 0
	case OpGT:
		return cmp > 0
	case OpGTEQ:
		return cmp >= 0
	case OpLT:
		return cmp < 0
	case OpLTEQ:
		return cmp <= 0
	}
	return false
}

func compareField(field Field, a, b *model.Conference) int {
	switch field {
	case FieldCity:
		return strings.Compare(a.City, b.City)
	case FieldMonth:
		return compareInt(a.Month, b.Month)
	case FieldMaxAttendees:
		return compareInt(a.MaxAttendees, b.MaxAttendees)
	case FieldTopics:
		// Multi-valued properties sort ascending by their smallest value.
		return strings.Compare(minTopic(a.Topics), minTopic(b.Topics))
	case FieldName:
		return strings.Compare(a.Name, b.Name)
	}
	return 0
}

func minTopic(topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	return slices.Min(topics)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumericField(f Field) bool {
	return f == FieldMonth || f == FieldMaxAttendees
}

// SmallConferences is the preset for conferences with fewer than 50 attendees.
func SmallConferences() *Plan {
	return MustBuild(Filter{Field: "MAX_ATTENDEES", Operator: "LT", Value: "50"})
}
