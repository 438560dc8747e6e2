package repository

import (
	"fmt"
	"strings"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

type sqlBuilder struct {
	args    []any
	aliases int
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

// bind adds value and returns its placeholder.
func (b *sqlBuilder) bind(value any) string {
	return b.placeholder(b.addArg(value))
}

// alias hands out table aliases for nested sub-selects.
func (b *sqlBuilder) alias() string {
	b.aliases++
	return fmt.Sprintf("t%d", b.aliases)
}

func buildOrderClause(schema *tableSchema, alias string, sorts []domain.SortField) (string, error) {
	if len(sorts) == 0 {
		return "ORDER BY " + alias + ".id ASC", nil
	}

	orderings := make([]string, 0, len(sorts)+1)
	hasID := false
	for _, sort := range sorts {
		col, ok := schema.sortColumn(sort.Property)
		if !ok {
			return "", domain.Validationf("sort", "cannot sort %s by '%s'", schema.entity, sort.Property)
		}
		direction := strings.ToUpper(string(sort.Direction))
		if direction != strings.ToUpper(string(domain.SortDirectionDesc)) {
			direction = "ASC"
		}
		if col.name == "id" {
			hasID = true
		}
		orderings = append(orderings, fmt.Sprintf("%s.%s %s NULLS LAST", alias, col.name, direction))
	}
	if !hasID {
		orderings = append(orderings, alias+".id ASC")
	}
	return "ORDER BY " + strings.Join(orderings, ", "), nil
}
