package questionnaire

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultDefinition []byte

type definitionFile struct {
	Questions []questionDef `yaml:"questions"`
}

type questionDef struct {
	ID          string         `yaml:"id"`
	Type        QuestionType   `yaml:"type"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Required    bool           `yaml:"required"`
	BranchOnly  bool           `yaml:"branch_only"`
	Options     []optionDef    `yaml:"options"`
	Validation  *validationDef `yaml:"validation"`
	Branching   []ruleDef      `yaml:"branching"`
}

type optionDef struct {
	Value    string            `yaml:"value"`
	Label    string            `yaml:"label"`
	Metadata map[string]string `yaml:"metadata"`
}

type validationDef struct {
	MinLength int    `yaml:"min_length"`
	Pattern   string `yaml:"pattern"`
}

type ruleDef struct {
	When     string    `yaml:"when"`
	Operator Operator  `yaml:"operator"`
	Value    yaml.Node `yaml:"value"`
	Next     string    `yaml:"next"`
}

// Parse decodes a YAML questionnaire definition into a validated Graph.
func Parse(data []byte) (*Graph, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode questionnaire: %w", err)
	}

	questions := make([]Question, 0, len(file.Questions))
	for _, def := range file.Questions {
		q, err := def.toQuestion()
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return NewGraph(questions)
}

func (d questionDef) toQuestion() (Question, error) {
	q := Question{
		ID:          d.ID,
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		Required:    d.Required,
		BranchOnly:  d.BranchOnly,
	}

	for _, o := range d.Options {
		q.Options = append(q.Options, Option{Value: o.Value, Label: o.Label, Metadata: o.Metadata})
	}

	if d.Validation != nil {
		v := &Validation{MinLength: d.Validation.MinLength}
		if d.Validation.Pattern != "" {
			re, err := regexp.Compile(d.Validation.Pattern)
			if err != nil {
				return Question{}, fmt.Errorf("question %q: bad pattern: %w", d.ID, err)
			}
			v.Pattern = re
		}
		q.Validation = v
	}

	for _, r := range d.Branching {
		operand, err := nodeValue(&r.Value)
		if err != nil {
			return Question{}, fmt.Errorf("question %q: %w", d.ID, err)
		}
		cond, err := NewCondition(r.Operator, operand)
		if err != nil {
			return Question{}, fmt.Errorf("question %q: %w", d.ID, err)
		}
		source := r.When
		if source == "" {
			source = d.ID
		}
		q.Branching = append(q.Branching, BranchRule{
			SourceQuestionID: source,
			Condition:        cond,
			NextQuestionID:   r.Next,
		})
	}

	return q, nil
}

func nodeValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case 0:
		return Value{}, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return Value{}, err
			}
			return Bool(b), nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return Value{}, err
			}
			return Number(f), nil
		case "!!null":
			return Value{}, nil
		default:
			return Text(n.Value), nil
		}
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return Value{}, err
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported rule value at line %d", n.Line)
	}
}

var loadDefault = sync.OnceValues(func() (*Graph, error) {
	return Parse(defaultDefinition)
})

// Default returns the built-in intake questionnaire. The embedded definition
// is covered by tests, so a parse failure is a build defect and panics.
func Default() *Graph {
	g, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("questionnaire: embedded definition: %v", err))
	}
	return g
}
