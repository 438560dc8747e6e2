package repository

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/bisicus/segreteriacanti-api/internal/filter"
)

// CompileWhere renders tree as the WHERE expression of a query over entity,
// whose table is aliased t0. It returns the SQL and its positional arguments.
func CompileWhere(entity string, tree *filter.Tree) (string, []any, error) {
	schema, ok := schemaFor(entity)
	if !ok {
		return "", nil, errors.Newf("unknown entity %q", entity)
	}
	b := newSQLBuilder()
	sql, err := compileWhere(b, schema, "t0", tree)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

// compileWhere renders tree as a SQL boolean expression over schema, whose
// table is referenced as alias. Placeholders continue from b.
func compileWhere(b *sqlBuilder, schema *tableSchema, alias string, tree *filter.Tree) (string, error) {
	if tree.IsEmpty() {
		return "TRUE", nil
	}

	parts := make([]string, 0, len(tree.Properties())+2)
	for _, property := range tree.Properties() {
		cond, _ := tree.Get(property)
		part, err := compileCondition(b, schema, alias, property, cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	if clauses := tree.And(); len(clauses) > 0 {
		part, err := compileClauses(b, schema, alias, clauses, "AND")
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	if clauses := tree.Or(); len(clauses) > 0 {
		part, err := compileClauses(b, schema, alias, clauses, "OR")
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// compileClauses joins branch entries with connective. Nested groups use the
// same connective as the branch holding them.
func compileClauses(b *sqlBuilder, schema *tableSchema, alias string, clauses []filter.Clause, connective string) (string, error) {
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		switch c := clause.(type) {
		case *filter.Tree:
			part, err := compileWhere(b, schema, alias, c)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		case filter.Group:
			nested := make([]filter.Clause, len(c))
			for i, t := range c {
				nested[i] = t
			}
			part, err := compileClauses(b, schema, alias, nested, connective)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		default:
			return "", errors.Newf("unsupported clause %T", clause)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " "+connective+" ") + ")", nil
}

func compileCondition(b *sqlBuilder, schema *tableSchema, alias, property string, cond filter.Condition) (string, error) {
	if col, ok := schema.column(property); ok {
		return compileColumn(b, alias, col, cond)
	}
	if rel, ok := schema.relations[property]; ok {
		return compileRelation(b, schema, alias, rel, cond)
	}
	return "", errors.Newf("%s has no property %q", schema.entity, property)
}

func compileColumn(b *sqlBuilder, alias string, col column, cond filter.Condition) (string, error) {
	ref := alias + "." + col.name

	switch c := cond.(type) {
	case filter.Equals:
		return fmt.Sprintf("%s = %s", ref, cast(b.bind(c.Value), col.kind)), nil
	case filter.Compare:
		switch c.Op {
		case filter.OpGreaterThan, filter.OpGreaterOrEqual, filter.OpLessThan, filter.OpLessOrEqual:
			return fmt.Sprintf("%s %s %s", ref, orderingSQL[c.Op], cast(b.bind(c.Value), col.kind)), nil
		case filter.OpStartsWith, filter.OpEndsWith, filter.OpContains:
			text, ok := c.Value.(string)
			if !ok {
				return "", errors.Newf("%s: %s needs a text value, got %T", col.name, c.Op, c.Value)
			}
			return fmt.Sprintf("%s::text LIKE %s ESCAPE '\\'", ref, b.bind(likePattern(c.Op, text))), nil
		default:
			return "", errors.Newf("%s: unsupported operator %q", col.name, c.Op)
		}
	case filter.Null:
		if c.IsNull {
			return ref + " IS NULL", nil
		}
		return ref + " IS NOT NULL", nil
	case filter.In:
		arr := b.bind(typedArray(c.Values))
		if c.Negated {
			return fmt.Sprintf("NOT (%s = ANY(%s))", ref, arr), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", ref, arr), nil
	default:
		return "", errors.Newf("%s: condition %T does not apply to a column", col.name, cond)
	}
}

func compileRelation(b *sqlBuilder, schema *tableSchema, alias string, rel relation, cond filter.Condition) (string, error) {
	target, ok := schemaFor(rel.target)
	if !ok {
		return "", errors.Newf("%s: unknown relation target %q", schema.entity, rel.target)
	}
	inner := b.alias()
	from := relationFrom(alias, inner, target, rel)

	switch c := cond.(type) {
	case filter.RelationPresent:
		if c.Present {
			return fmt.Sprintf("EXISTS (SELECT 1 %s)", from), nil
		}
		return fmt.Sprintf("NOT EXISTS (SELECT 1 %s)", from), nil
	case filter.RelationAny:
		sub, err := compileWhere(b, target, inner, c.Where)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 %s AND %s)", from, sub), nil
	case filter.RelationAll:
		sub, err := compileWhere(b, target, inner, c.Where)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT EXISTS (SELECT 1 %s AND NOT COALESCE(%s, FALSE))", from, sub), nil
	default:
		return "", errors.Newf("%s: condition %T does not apply to a relation", schema.entity, cond)
	}
}

// relationFrom renders the FROM / WHERE head of a sub-select over target
// correlated with the outer row.
func relationFrom(outer, inner string, target *tableSchema, rel relation) string {
	switch rel.shape {
	case toOne:
		return fmt.Sprintf("FROM %s %s WHERE %s.id = %s.%s", target.table, inner, inner, outer, rel.foreignKey)
	case toMany:
		return fmt.Sprintf("FROM %s %s WHERE %s.%s = %s.id", target.table, inner, inner, rel.foreignKey, outer)
	default:
		link := inner + "l"
		return fmt.Sprintf("FROM %s %s JOIN %s %s ON %s.%s = %s.id WHERE %s.%s = %s.id",
			target.table, inner, rel.through, link, link, rel.throughTarget, inner, link, rel.throughLocal, outer)
	}
}

var orderingSQL = map[filter.Operator]string{
	filter.OpGreaterThan:    ">",
	filter.OpGreaterOrEqual: ">=",
	filter.OpLessThan:       "<",
	filter.OpLessOrEqual:    "<=",
}

func cast(placeholder string, kind columnKind) string {
	switch kind {
	case kindTimestamp:
		return placeholder + "::timestamptz"
	case kindDate:
		return placeholder + "::date"
	default:
		return placeholder
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(op filter.Operator, value string) string {
	escaped := likeEscaper.Replace(value)
	switch op {
	case filter.OpStartsWith:
		return escaped + "%"
	case filter.OpEndsWith:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

// typedArray narrows a value list so pgx can encode it as a PostgreSQL array.
func typedArray(values []any) any {
	ints := make([]int64, 0, len(values))
	for _, v := range values {
		n, ok := v.(int64)
		if !ok {
			break
		}
		ints = append(ints, n)
	}
	if len(ints) == len(values) {
		return ints
	}
	texts := make([]string, len(values))
	for i, v := range values {
		texts[i] = fmt.Sprint(v)
	}
	return texts
}
