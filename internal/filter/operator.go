package filter

import (
	"sort"
	"strings"
)

// Family selects the operator vocabulary a value is recognized against.
type Family int

const (
	// Ordering covers numbers and dates: >, >=, <, <=.
	Ordering Family = iota
	// Text covers strings: starts-with, ends-with, contains.
	Text
)

type prefix struct {
	token string
	op    Operator
}

// buildPrefixes drops disabled tokens and orders the rest longest first so
// that overlapping tokens such as ">=" and ">" are told apart by a plain
// prefix test.
func buildPrefixes(candidates ...prefix) []prefix {
	out := make([]prefix, 0, len(candidates))
	for _, p := range candidates {
		if p.token != "" {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].token) > len(out[j].token)
	})
	return out
}

// Recognize strips a leading operator token from value. Without a match it
// returns OpEquals and value unchanged.
func (c *Compiler) Recognize(value string, family Family) (Operator, string) {
	table := c.ordering
	if family == Text {
		table = c.text
	}
	for _, p := range table {
		if strings.HasPrefix(value, p.token) {
			return p.op, value[len(p.token):]
		}
	}
	return OpEquals, value
}
