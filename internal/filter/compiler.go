package filter

import (
	"strconv"
	"strings"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

// Input is one query-parameter value: a scalar or an ordered list.
type Input struct {
	Values []string
	List   bool
}

// Scalar builds a single-valued input.
func Scalar(value string) Input {
	return Input{Values: []string{value}}
}

// List builds a list input.
func List(values ...string) Input {
	return Input{Values: values, List: true}
}

// Compiler turns filter inputs into predicate trees. It holds no per-request
// state and is safe for concurrent use.
type Compiler struct {
	cfg      Config
	ordering []prefix
	text     []prefix
	or       map[string]struct{}
	and      map[string]struct{}
	matchAll map[string]struct{}
	notIn    map[string]struct{}
	truthy   map[string]struct{}
}

// New builds a Compiler from cfg.
func New(cfg Config) *Compiler {
	ops := cfg.Operators
	return &Compiler{
		cfg: cfg,
		ordering: buildPrefixes(
			prefix{ops.GreaterOrEqual, OpGreaterOrEqual},
			prefix{ops.LessOrEqual, OpLessOrEqual},
			prefix{ops.GreaterThan, OpGreaterThan},
			prefix{ops.LessThan, OpLessThan},
		),
		text: buildPrefixes(
			prefix{ops.StartsWith, OpStartsWith},
			prefix{ops.EndsWith, OpEndsWith},
			prefix{ops.Contains, OpContains},
		),
		or:       tokenSet(cfg.OrMarkers),
		and:      tokenSet(cfg.AndMarkers),
		matchAll: tokenSet(cfg.MatchAllMarkers),
		notIn:    tokenSet(cfg.NotInMarkers),
		truthy:   tokenSet(cfg.Truthy),
	}
}

// Config returns the vocabulary the compiler was built with.
func (c *Compiler) Config() Config { return c.cfg }

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func (c *Compiler) has(set map[string]struct{}, value string) bool {
	_, ok := set[strings.ToLower(value)]
	return ok
}

type scalarFunc func(value string) (Condition, error)

// String compiles a text filter on property. name is used in error
// messages and defaults to property.
func (c *Compiler) String(tree *Tree, in Input, property, name string) (*Tree, error) {
	return c.compile(tree, in, property, displayName(property, name), c.stringScalar)
}

// Number compiles an integer filter on property.
func (c *Compiler) Number(tree *Tree, in Input, property, name string) (*Tree, error) {
	name = displayName(property, name)
	return c.compile(tree, in, property, name, c.numberScalar(name))
}

// Date compiles a date filter on property. The value after the operator is
// passed through unparsed.
func (c *Compiler) Date(tree *Tree, in Input, property, name string) (*Tree, error) {
	return c.compile(tree, in, property, displayName(property, name), c.dateScalar)
}

// Bool compiles a presence filter on the nullable column property.
func (c *Compiler) Bool(tree *Tree, in Input, property, name string) (*Tree, error) {
	name = displayName(property, name)
	if in.List {
		return nil, domain.Validationf(name, "'%s' cannot be array", name)
	}
	if tree == nil {
		tree = NewTree()
	}
	truthy := c.has(c.truthy, firstValue(in))
	return tree.Set(property, Null{IsNull: !truthy}), nil
}

func (c *Compiler) compile(tree *Tree, in Input, property, name string, scalar scalarFunc) (*Tree, error) {
	if tree == nil {
		tree = NewTree()
	}
	if !in.List {
		cond, err := scalar(firstValue(in))
		if err != nil {
			return nil, err
		}
		return tree.Set(property, cond), nil
	}

	values, useAnd := c.splitLogicMarker(in.Values)
	if len(values) == 0 {
		return nil, emptyList(name)
	}
	fragments := make([]*Tree, 0, len(values))
	for _, v := range values {
		cond, err := scalar(v)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, NewTree().Set(property, cond))
	}
	return Combine(tree, fragments, useAnd), nil
}

// splitLogicMarker returns a copy of values without a leading logic marker
// and whether the remaining values combine with AND.
func (c *Compiler) splitLogicMarker(values []string) ([]string, bool) {
	rest := append([]string(nil), values...)
	if len(rest) == 0 {
		return rest, true
	}
	switch {
	case c.has(c.or, rest[0]):
		return rest[1:], false
	case c.has(c.and, rest[0]):
		return rest[1:], true
	}
	return rest, true
}

func (c *Compiler) stringScalar(value string) (Condition, error) {
	op, rest := c.Recognize(value, Text)
	if op == OpEquals {
		return Equals{Value: rest}, nil
	}
	return Compare{Op: op, Value: rest}, nil
}

func (c *Compiler) numberScalar(name string) scalarFunc {
	return func(value string) (Condition, error) {
		op, rest := c.Recognize(value, Ordering)
		n, err := parseNumber(rest)
		if err != nil {
			return nil, domain.Validationf(name, "'%s' is not a number", name)
		}
		if op == OpEquals {
			return Equals{Value: n}, nil
		}
		return Compare{Op: op, Value: n}, nil
	}
}

func (c *Compiler) dateScalar(value string) (Condition, error) {
	op, rest := c.Recognize(value, Ordering)
	if op == OpEquals {
		return Equals{Value: rest}, nil
	}
	return Compare{Op: op, Value: rest}, nil
}

func parseNumber(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func emptyList(name string) error {
	return domain.Validationf(name, "'%s' is an empty list", name)
}

func displayName(property, name string) string {
	if name == "" {
		return property
	}
	return name
}

func firstValue(in Input) string {
	if len(in.Values) == 0 {
		return ""
	}
	return in.Values[0]
}
