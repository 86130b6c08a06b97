// Query filters.
//
// A Filter maps field names to conditions and matches a document when
// every condition holds. A Condition is one of three variants:
//
//   - Literal: the field equals a value. Objects compare as key sets,
//     arrays element by element. A null literal also matches a missing
//     field; any other literal never does.
//   - Pattern: the field is a string and the regular expression matches
//     somewhere in it. Patterns use Go's RE2 syntax, are unanchored, and
//     are case-sensitive unless the expression starts with (?i).
//   - Operators: every operator in the set holds. $gt, $gte, $lt and $lte
//     order numbers numerically and strings lexically; a missing field or
//     a kind mismatch fails them. $eq and $ne follow Literal equality.
//     $in requires membership in a list (a missing field is never a
//     member) and $nin its absence.
//
// There is no OR or NOT composition.
package mingledb

import (
	"fmt"
	"regexp"
)

// Filter selects documents. A nil or empty Filter matches every document.
type Filter map[string]Condition

// Condition is a predicate on one field. present is false when the
// document has no such field, in which case v is null.
type Condition interface {
	matches(v Value, present bool) bool
}

// Match reports whether doc satisfies every condition in f.
func (f Filter) Match(doc Document) bool {
	for field, cond := range f {
		v, ok := doc.Get(field)
		if cond == nil || !cond.matches(v, ok) {
			return false
		}
	}
	return true
}

// Literal matches a field equal to Value.
type Literal struct {
	Value Value
}

// Equals returns a Literal condition for x, converted with ValueOf. It
// panics on unsupported input.
func Equals(x any) Literal {
	return Literal{Value: MustValue(x)}
}

func (l Literal) matches(v Value, present bool) bool {
	return equalField(v, present, l.Value)
}

// equalField applies literal equality to a possibly missing field.
func equalField(v Value, present bool, want Value) bool {
	if !present {
		return want.IsNull()
	}
	return v.Equal(want)
}

// Pattern matches string fields against a regular expression.
type Pattern struct {
	Regexp *regexp.Regexp
}

// Regex compiles expr into a Pattern. Prefix the expression with (?i)
// for case-insensitive matching.
func Regex(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return Pattern{Regexp: re}, nil
}

// MustRegex is like Regex but panics on an invalid expression.
func MustRegex(expr string) Pattern {
	p, err := Regex(expr)
	if err != nil {
		panic("mingledb: " + err.Error())
	}
	return p
}

func (p Pattern) matches(v Value, present bool) bool {
	s, ok := v.AsString()
	return present && ok && p.Regexp != nil && p.Regexp.MatchString(s)
}

// Op names a comparison operator.
type Op string

const (
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpIn  Op = "$in"
	OpNin Op = "$nin"
)

func (op Op) valid() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpEq, OpNe, OpIn, OpNin:
		return true
	}
	return false
}

// Operator is one operator and its operand. For $in and $nin the operand
// is an array.
type Operator struct {
	Op      Op
	Operand Value
}

// Operators is a set of operators that must all hold for one field.
type Operators []Operator

func Gt(x any) Operator  { return Operator{OpGt, MustValue(x)} }
func Gte(x any) Operator { return Operator{OpGte, MustValue(x)} }
func Lt(x any) Operator  { return Operator{OpLt, MustValue(x)} }
func Lte(x any) Operator { return Operator{OpLte, MustValue(x)} }
func Eq(x any) Operator  { return Operator{OpEq, MustValue(x)} }
func Ne(x any) Operator  { return Operator{OpNe, MustValue(x)} }

// In matches fields equal to any of xs.
func In(xs ...any) Operator { return Operator{OpIn, listOf(xs)} }

// Nin matches fields equal to none of xs.
func Nin(xs ...any) Operator { return Operator{OpNin, listOf(xs)} }

func listOf(xs []any) Value {
	arr := make([]Value, len(xs))
	for i, x := range xs {
		arr[i] = MustValue(x)
	}
	return Array(arr...)
}

func (ops Operators) matches(v Value, present bool) bool {
	for _, o := range ops {
		if !o.holds(v, present) {
			return false
		}
	}
	return true
}

func (o Operator) holds(v Value, present bool) bool {
	switch o.Op {
	case OpGt, OpGte, OpLt, OpLte:
		if !present {
			return false
		}
		c, ok := compare(v, o.Operand)
		if !ok {
			return false
		}
		switch o.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpEq:
		return equalField(v, present, o.Operand)
	case OpNe:
		return !equalField(v, present, o.Operand)
	case OpIn:
		return member(v, present, o.Operand)
	case OpNin:
		return !member(v, present, o.Operand)
	}
	return false
}

func member(v Value, present bool, list Value) bool {
	if !present {
		return false
	}
	items, _ := list.AsArray()
	for _, item := range items {
		if v.Equal(item) {
			return true
		}
	}
	return false
}
