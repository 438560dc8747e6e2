package filter

import (
	"bytes"
	"encoding/json"
)

// Operator identifies the comparison a condition performs.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpGreaterThan    Operator = "greaterThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpLessThan       Operator = "lessThan"
	OpLessOrEqual    Operator = "lessOrEqual"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpContains       Operator = "contains"
)

// Condition is the predicate applied to a single property or relation of a Tree.
// The set of implementations is closed: Equals, Compare, Null, In, RelationAny,
// RelationAll and RelationPresent.
type Condition interface {
	condition()
}

// Equals matches the property exactly.
type Equals struct {
	Value any
}

// Compare applies a non-equality operator to the property.
type Compare struct {
	Op    Operator
	Value any
}

// Null checks the presence of an optional column.
type Null struct {
	IsNull bool
}

// In matches the property against a set of values.
type In struct {
	Values  []any
	Negated bool
}

// RelationAny matches when at least one related row satisfies Where.
type RelationAny struct {
	Where *Tree
}

// RelationAll matches when every related row satisfies Where.
type RelationAll struct {
	Where *Tree
}

// RelationPresent matches on the existence of at least one related row.
type RelationPresent struct {
	Present bool
}

func (Equals) condition()          {}
func (Compare) condition()         {}
func (Null) condition()            {}
func (In) condition()              {}
func (RelationAny) condition()     {}
func (RelationAll) condition()     {}
func (RelationPresent) condition() {}

// Clause is one entry of an AND or OR branch: either a *Tree or a Group.
type Clause interface {
	clause()
}

// Group holds the fragments produced by a single combinator call. It is
// evaluated with the connective of the branch that contains it.
type Group []*Tree

func (*Tree) clause() {}
func (Group) clause() {}

// Tree is a predicate over one entity. Property conditions are kept in
// insertion order; setting a property twice keeps its position and replaces
// the condition.
type Tree struct {
	keys   []string
	fields map[string]Condition
	and    []Clause
	or     []Clause
}

// NewTree returns an empty predicate tree.
func NewTree() *Tree {
	return &Tree{fields: map[string]Condition{}}
}

// Set assigns cond to property and returns the tree.
func (t *Tree) Set(property string, cond Condition) *Tree {
	if t.fields == nil {
		t.fields = map[string]Condition{}
	}
	if _, exists := t.fields[property]; !exists {
		t.keys = append(t.keys, property)
	}
	t.fields[property] = cond
	return t
}

// Get returns the condition stored for property.
func (t *Tree) Get(property string) (Condition, bool) {
	if t == nil {
		return nil, false
	}
	cond, ok := t.fields[property]
	return cond, ok
}

// Properties lists the constrained properties in insertion order.
func (t *Tree) Properties() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// And returns the AND branch; nil when absent.
func (t *Tree) And() []Clause {
	if t == nil {
		return nil
	}
	return t.and
}

// Or returns the OR branch; nil when absent.
func (t *Tree) Or() []Clause {
	if t == nil {
		return nil
	}
	return t.or
}

// IsEmpty reports whether the tree constrains nothing.
func (t *Tree) IsEmpty() bool {
	return t == nil || (len(t.keys) == 0 && len(t.and) == 0 && len(t.or) == 0)
}

// MarshalJSON renders the tree in the query-engine vocabulary: property keys
// map to values or operator objects, AND / OR map to clause lists.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
	}

	if t != nil {
		for _, key := range t.keys {
			writeKey(key)
			if err := writeCondition(buf, t.fields[key]); err != nil {
				return err
			}
		}
		if t.and != nil {
			writeKey("AND")
			if err := writeClauses(buf, t.and); err != nil {
				return err
			}
		}
		if t.or != nil {
			writeKey("OR")
			if err := writeClauses(buf, t.or); err != nil {
				return err
			}
		}
	}

	buf.WriteByte('}')
	return nil
}

func writeClauses(buf *bytes.Buffer, clauses []Clause) error {
	buf.WriteByte('[')
	for i, c := range clauses {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch v := c.(type) {
		case *Tree:
			if err := v.writeJSON(buf); err != nil {
				return err
			}
		case Group:
			trees := make([]Clause, len(v))
			for j, tree := range v {
				trees[j] = tree
			}
			if err := writeClauses(buf, trees); err != nil {
				return err
			}
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCondition(buf *bytes.Buffer, cond Condition) error {
	writeObject := func(key string, value any) error {
		encoded, err := json.Marshal(map[string]any{key: value})
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
	writeTree := func(key string, tree *Tree) error {
		k, _ := json.Marshal(key)
		buf.WriteByte('{')
		buf.Write(k)
		buf.WriteByte(':')
		if err := tree.writeJSON(buf); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	}

	switch c := cond.(type) {
	case Equals:
		encoded, err := json.Marshal(c.Value)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	case Compare:
		return writeObject(string(c.Op), c.Value)
	case Null:
		if c.IsNull {
			return writeObject("isNull", true)
		}
		return writeObject("isNotNull", true)
	case In:
		if c.Negated {
			return writeObject("notIn", c.Values)
		}
		return writeObject("in", c.Values)
	case RelationAny:
		return writeTree("matchAny", c.Where)
	case RelationAll:
		return writeTree("matchAll", c.Where)
	case RelationPresent:
		return writeObject("isPresent", c.Present)
	default:
		buf.WriteString("null")
		return nil
	}
}
