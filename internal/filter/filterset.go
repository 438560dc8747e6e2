package filter

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

// RuleKind is the semantic type of a filter key.
type RuleKind int

const (
	NumberRule RuleKind = iota
	StringRule
	DateRule
	BoolRule
	PresenceRule
	RelationRule
)

func (k RuleKind) String() string {
	switch k {
	case NumberRule:
		return "number"
	case StringRule:
		return "string"
	case DateRule:
		return "date"
	case BoolRule:
		return "bool"
	case PresenceRule:
		return "presence"
	case RelationRule:
		return "relation"
	default:
		return "unknown"
	}
}

// Rule maps a filter key to a predicate on Property. For PresenceRule and
// RelationRule, Property is a relation name; a RelationRule compiles its
// value with Nested against the related entity.
type Rule struct {
	Kind     RuleKind
	Property string
	Nested   *Rule
}

func NumberField(property string) Rule { return Rule{Kind: NumberRule, Property: property} }
func TextField(property string) Rule   { return Rule{Kind: StringRule, Property: property} }
func DateField(property string) Rule   { return Rule{Kind: DateRule, Property: property} }
func BoolField(column string) Rule     { return Rule{Kind: BoolRule, Property: column} }
func Presence(relation string) Rule    { return Rule{Kind: PresenceRule, Property: relation} }

// Through builds a relation rule that reuses the rule registered for key in
// the related entity's vocabulary. It panics when key is unknown there.
func Through(relation string, related map[string]Rule, key string) Rule {
	nested, ok := related[strings.ToLower(key)]
	if !ok {
		panic("filter: relation " + relation + " has no rule for " + key)
	}
	return Rule{Kind: RelationRule, Property: relation, Nested: &nested}
}

// FilterSet is the vocabulary of filter keys recognized for one entity.
type FilterSet struct {
	entity string
	rules  map[string]Rule
}

// NewFilterSet builds a filter set. Keys are matched case-insensitively.
func NewFilterSet(entity string, rules ...map[string]Rule) *FilterSet {
	set := &FilterSet{entity: entity, rules: map[string]Rule{}}
	for _, group := range rules {
		for key, rule := range group {
			set.rules[strings.ToLower(key)] = rule
		}
	}
	return set
}

// Entity names the entity the set filters.
func (s *FilterSet) Entity() string { return s.entity }

// Lookup returns the rule for key.
func (s *FilterSet) Lookup(key string) (Rule, bool) {
	rule, ok := s.rules[strings.ToLower(key)]
	return rule, ok
}

// Keys lists the recognized keys in sorted order.
func (s *FilterSet) Keys() []string {
	keys := make([]string, 0, len(s.rules))
	for k := range s.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Assemble folds params over an empty tree using the rules of set. Keys are
// processed in sorted order and the first invalid value aborts the fold.
// Unknown keys are skipped unless the compiler runs in strict mode.
func (c *Compiler) Assemble(set *FilterSet, params map[string]Input) (*Tree, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tree := NewTree()
	for _, key := range keys {
		rule, ok := set.Lookup(key)
		if !ok {
			if c.cfg.Strict {
				return nil, domain.Validationf(key, "unknown filter '%s'", key)
			}
			continue
		}
		next, err := c.Apply(tree, rule, params[key], key)
		if err != nil {
			return nil, err
		}
		tree = next
	}
	return tree, nil
}

// Apply compiles one input with rule into tree.
func (c *Compiler) Apply(tree *Tree, rule Rule, in Input, name string) (*Tree, error) {
	switch rule.Kind {
	case NumberRule:
		return c.Number(tree, in, rule.Property, name)
	case StringRule:
		return c.String(tree, in, rule.Property, name)
	case DateRule:
		return c.Date(tree, in, rule.Property, name)
	case BoolRule:
		return c.Bool(tree, in, rule.Property, name)
	case PresenceRule:
		if tree == nil {
			tree = NewTree()
		}
		return tree.Set(rule.Property, RelationPresent{Present: true}), nil
	case RelationRule:
		return c.relation(tree, rule, in, name)
	default:
		return nil, errors.Newf("filter: unsupported rule kind %d for %q", rule.Kind, name)
	}
}

func (c *Compiler) relation(tree *Tree, rule Rule, in Input, name string) (*Tree, error) {
	if rule.Nested == nil {
		return nil, errors.Newf("filter: relation rule %q has no nested rule", name)
	}
	if tree == nil {
		tree = NewTree()
	}

	if !in.List {
		nested, err := c.Apply(NewTree(), *rule.Nested, in, name)
		if err != nil {
			return nil, err
		}
		return tree.Set(rule.Property, RelationAny{Where: nested}), nil
	}

	values, matchAll, negated := c.splitRelationMarkers(in.Values)

	var nested *Tree
	switch {
	case negated:
		values, _ = c.splitLogicMarker(values)
		if len(values) == 0 {
			return nil, emptyList(name)
		}
		typed, err := c.typedValues(*rule.Nested, values, name)
		if err != nil {
			return nil, err
		}
		nested = NewTree().Set(rule.Nested.Property, In{Values: typed, Negated: true})
	case c.isMembership(*rule.Nested, values):
		typed, err := c.typedValues(*rule.Nested, values, name)
		if err != nil {
			return nil, err
		}
		nested = NewTree().Set(rule.Nested.Property, In{Values: typed})
	default:
		var err error
		nested, err = c.Apply(NewTree(), *rule.Nested, Input{Values: values, List: true}, name)
		if err != nil {
			return nil, err
		}
	}

	if matchAll {
		return tree.Set(rule.Property, RelationAll{Where: nested}), nil
	}
	return tree.Set(rule.Property, RelationAny{Where: nested}), nil
}

// isMembership reports whether values is a plain list of equality values for
// rule: no logic marker and no operator prefix on any value.
func (c *Compiler) isMembership(rule Rule, values []string) bool {
	if len(values) == 0 {
		return false
	}
	family := Ordering
	switch rule.Kind {
	case NumberRule:
	case StringRule:
		family = Text
	default:
		return false
	}
	if c.has(c.or, values[0]) || c.has(c.and, values[0]) {
		return false
	}
	for _, v := range values {
		if op, _ := c.Recognize(v, family); op != OpEquals {
			return false
		}
	}
	return true
}

// splitRelationMarkers removes cardinality and not-in markers found anywhere
// in values.
func (c *Compiler) splitRelationMarkers(values []string) (rest []string, matchAll, negated bool) {
	rest = make([]string, 0, len(values))
	for _, v := range values {
		switch {
		case c.has(c.matchAll, v):
			matchAll = true
		case c.has(c.notIn, v):
			negated = true
		default:
			rest = append(rest, v)
		}
	}
	return rest, matchAll, negated
}

func (c *Compiler) typedValues(rule Rule, values []string, name string) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if rule.Kind == NumberRule {
			n, err := parseNumber(v)
			if err != nil {
				return nil, domain.Validationf(name, "'%s' is not a number", name)
			}
			out = append(out, n)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// FromQuery converts parsed query values into filter inputs. A key present
// once is a scalar, a repeated key or one suffixed with "[]" is a list. Keys
// are folded to lower case, so spellings that differ only in case merge.
// Keys listed in reserved are dropped.
func FromQuery(values url.Values, reserved ...string) map[string]Input {
	skip := make(map[string]struct{}, len(reserved))
	for _, r := range reserved {
		skip[strings.ToLower(r)] = struct{}{}
	}

	rawKeys := make([]string, 0, len(values))
	for k := range values {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	out := make(map[string]Input, len(values))
	for _, rawKey := range rawKeys {
		vals := values[rawKey]
		key := strings.ToLower(rawKey)
		forced := false
		if strings.HasSuffix(key, "[]") {
			key = strings.TrimSuffix(key, "[]")
			forced = true
		}
		if _, reservedKey := skip[key]; reservedKey || key == "" {
			continue
		}
		in := out[key]
		in.Values = append(in.Values, vals...)
		in.List = in.List || forced || len(in.Values) > 1
		out[key] = in
	}
	return out
}
