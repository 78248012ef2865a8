package questionnaire

import "fmt"

// Operator names a branching comparison as written in question definitions.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Condition is a branching test against a prior answer. The set of
// implementations is closed: Equals, Contains, GreaterThan and LessThan.
type Condition interface {
	Operator() Operator
	Matches(answer Value) bool
	sealed()
}

// Equals matches when the answer is strictly equal to Value.
type Equals struct{ Value Value }

// Contains matches when a list answer includes Item. Non-list answers never match.
type Contains struct{ Item string }

// GreaterThan matches numeric answers above Threshold.
type GreaterThan struct{ Threshold float64 }

// LessThan matches numeric answers below Threshold.
type LessThan struct{ Threshold float64 }

func (Equals) Operator() Operator      { return OpEquals }
func (Contains) Operator() Operator    { return OpContains }
func (GreaterThan) Operator() Operator { return OpGreaterThan }
func (LessThan) Operator() Operator    { return OpLessThan }

func (c Equals) Matches(answer Value) bool {
	return answer.Kind() != KindList && answer.Equal(c.Value)
}

func (c Contains) Matches(answer Value) bool {
	return answer.Has(c.Item)
}

func (c GreaterThan) Matches(answer Value) bool {
	n, ok := answer.AsNumber()
	return ok && n > c.Threshold
}

func (c LessThan) Matches(answer Value) bool {
	n, ok := answer.AsNumber()
	return ok && n < c.Threshold
}

func (Equals) sealed()      {}
func (Contains) sealed()    {}
func (GreaterThan) sealed() {}
func (LessThan) sealed()    {}

// NewCondition builds the variant for op from a definition operand. Unknown
// operators and operands of the wrong type are errors.
func NewCondition(op Operator, operand Value) (Condition, error) {
	switch op {
	case OpEquals:
		if operand.Kind() == KindNone || operand.Kind() == KindList {
			return nil, fmt.Errorf("equals needs a scalar operand, got %s", operand.Kind())
		}
		return Equals{Value: operand}, nil
	case OpContains:
		item, ok := operand.AsText()
		if !ok || item == "" {
			return nil, fmt.Errorf("contains needs a text operand, got %s", operand.Kind())
		}
		return Contains{Item: item}, nil
	case OpGreaterThan, OpLessThan:
		if operand.Kind() != KindNumber {
			return nil, fmt.Errorf("%s needs a numeric operand, got %s", op, operand.Kind())
		}
		n, _ := operand.AsNumber()
		if op == OpGreaterThan {
			return GreaterThan{Threshold: n}, nil
		}
		return LessThan{Threshold: n}, nil
	default:
		return nil, fmt.Errorf("unknown branching operator %q", op)
	}
}

// Operand returns the comparison value of c in its Value form.
func Operand(c Condition) Value {
	switch typed := c.(type) {
	case Equals:
		return typed.Value
	case Contains:
		return Text(typed.Item)
	case GreaterThan:
		return Number(typed.Threshold)
	case LessThan:
		return Number(typed.Threshold)
	default:
		return Value{}
	}
}
