package questionnaire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies what an answer holds.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "none"
	}
}

// Value is a single answer: text, a number, a boolean or a list of option
// values. The zero Value means "no answer".
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	boolean bool
	list    []string
}

func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, boolean: b} }

func List(items ...string) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

func (v Value) Kind() ValueKind { return v.kind }

// Answered reports whether v counts as an answer. Blank text and empty lists
// do not.
func (v Value) Answered() bool {
	switch v.kind {
	case KindText:
		return strings.TrimSpace(v.text) != ""
	case KindList:
		return len(v.list) > 0
	case KindNumber, KindBool:
		return true
	default:
		return false
	}
}

func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }
func (v Value) AsBool() (bool, bool)   { return v.boolean, v.kind == KindBool }

// AsList returns a copy of the list items.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsNumber returns the numeric value. Text that parses completely as a number
// is accepted, since free-text inputs arrive as strings.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.number, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Len is the number of list items, or 0 for non-list values.
func (v Value) Len() int {
	return len(v.list)
}

// Has reports list membership.
func (v Value) Has(item string) bool {
	return v.kind == KindList && slices.Contains(v.list, item)
}

// Equal is strict equality: same kind and same content. Lists never compare
// equal to scalars.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.number == o.number
	case KindBool:
		return v.boolean == o.boolean
	case KindList:
		return slices.Equal(v.list, o.list)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.number)
	case KindBool:
		return json.Marshal(v.boolean)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("list answers must contain strings: %w", err)
		}
		*v = List(items...)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported answer value: %s", data)
		}
		*v = Number(f)
	}
	return nil
}

// ResponseSet maps question ids to answers.
type ResponseSet map[string]Value

// Answered reports whether id has a non-empty answer.
func (r ResponseSet) Answered(id string) bool {
	v, ok := r[id]
	return ok && v.Answered()
}

// Clone returns a shallow copy; Values are immutable.
func (r ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
