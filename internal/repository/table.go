package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
)

const tracerName = "segreteriacanti-repository"

// table implements the shared read and write paths for one archive table.
type table[T any] struct {
	db     db.DBTX
	schema *tableSchema
	tracer trace.Tracer
}

func newTable[T any](exec db.DBTX, schema *tableSchema) table[T] {
	return table[T]{db: exec, schema: schema, tracer: otel.Tracer(tracerName)}
}

func (t table[T]) start(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, t.schema.entity+"."+operation,
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.sql.table", t.schema.table),
			attribute.String("db.operation", operation),
		),
	)
}

func (t table[T]) fail(span trace.Span, err error, action string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, action)
	return translateError(err, fmt.Sprintf("%s %s", action, t.schema.entity))
}

// List returns the page of rows matching where.
func (t table[T]) List(ctx context.Context, where *filter.Tree, page domain.Page) (domain.ListResult[T], error) {
	ctx, span := t.start(ctx, "list")
	defer span.End()

	page = page.Normalize()
	builder := newSQLBuilder()

	cond, err := compileWhere(builder, t.schema, "t0", where)
	if err != nil {
		return domain.ListResult[T]{}, t.fail(span, err, "compile filters for")
	}
	order, err := buildOrderClause(t.schema, "t0", page.Sort)
	if err != nil {
		return domain.ListResult[T]{}, t.fail(span, err, "order")
	}

	from := fmt.Sprintf("FROM %s t0 WHERE %s", t.schema.table, cond)
	countArgs := append([]any{}, builder.args...)

	var total int64
	if err := t.db.QueryRow(ctx, "SELECT COUNT(*) "+from, countArgs...).Scan(&total); err != nil {
		return domain.ListResult[T]{}, t.fail(span, err, "count")
	}

	limitIdx := builder.addArg(page.Limit)
	offsetIdx := builder.addArg(page.Offset)
	query := fmt.Sprintf("SELECT %s %s %s LIMIT %s OFFSET %s",
		t.schema.selectList("t0"), from, order, builder.placeholder(limitIdx), builder.placeholder(offsetIdx))

	items, err := t.collect(ctx, query, builder.args...)
	if err != nil {
		return domain.ListResult[T]{}, t.fail(span, err, "list")
	}
	span.SetAttributes(attribute.Int64("db.rows_total", total), attribute.Int("db.rows_returned", len(items)))

	return domain.ListResult[T]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// GetByID returns the row with id or a not-found error.
func (t table[T]) GetByID(ctx context.Context, id int64) (T, error) {
	ctx, span := t.start(ctx, "get")
	defer span.End()

	var zero T
	query := fmt.Sprintf("SELECT %s FROM %s t0 WHERE t0.id = $1", t.schema.selectList("t0"), t.schema.table)
	rows, err := t.db.Query(ctx, query, id)
	if err != nil {
		return zero, t.fail(span, err, "get")
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, domain.NotFound(t.schema.entity, id)
		}
		return zero, t.fail(span, err, "get")
	}
	return item, nil
}

// GetByIDs returns the rows whose id is in ids, ordered by id.
func (t table[T]) GetByIDs(ctx context.Context, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	ctx, span := t.start(ctx, "get_many")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM %s t0 WHERE t0.id = ANY($1) ORDER BY t0.id", t.schema.selectList("t0"), t.schema.table)
	items, err := t.collect(ctx, query, ids)
	if err != nil {
		return nil, t.fail(span, err, "get")
	}
	return items, nil
}

// related lists the rows of this table reached from localID through rel, a
// relation declared on the owning table.
func (t table[T]) related(ctx context.Context, rel relation, localID int64) ([]T, error) {
	ctx, span := t.start(ctx, "related")
	defer span.End()

	var query string
	switch rel.shape {
	case toMany:
		query = fmt.Sprintf("SELECT %s FROM %s t0 WHERE t0.%s = $1 ORDER BY t0.id",
			t.schema.selectList("t0"), t.schema.table, rel.foreignKey)
	case manyToMany:
		query = fmt.Sprintf("SELECT %s FROM %s t0 JOIN %s l ON l.%s = t0.id WHERE l.%s = $1 ORDER BY t0.id",
			t.schema.selectList("t0"), t.schema.table, rel.through, rel.throughTarget, rel.throughLocal)
	default:
		return nil, errors.Newf("relation to %s is not a collection", rel.target)
	}

	items, err := t.collect(ctx, query, localID)
	if err != nil {
		return nil, t.fail(span, err, "list related")
	}
	return items, nil
}

// update sets the given properties on row id and stamps the audit columns.
func (t table[T]) update(ctx context.Context, id int64, values map[string]any, actor string) (T, error) {
	ctx, span := t.start(ctx, "update")
	defer span.End()

	var zero T
	properties := make([]string, 0, len(values))
	for p := range values {
		properties = append(properties, p)
	}
	sort.Strings(properties)

	builder := newSQLBuilder()
	sets := make([]string, 0, len(properties)+2)
	for _, p := range properties {
		col, ok := t.schema.column(p)
		if !ok {
			return zero, errors.Newf("%s has no property %q", t.schema.entity, p)
		}
		sets = append(sets, fmt.Sprintf("%s = %s", col.name, builder.bind(values[p])))
	}
	sets = append(sets, "updated_at = now()", "updated_by = "+builder.bind(nullable(actor)))

	query := fmt.Sprintf("UPDATE %s t0 SET %s WHERE t0.id = %s RETURNING %s",
		t.schema.table, strings.Join(sets, ", "), builder.bind(id), t.schema.selectList("t0"))
	rows, err := t.db.Query(ctx, query, builder.args...)
	if err != nil {
		return zero, t.fail(span, err, "update")
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, domain.NotFound(t.schema.entity, id)
		}
		return zero, t.fail(span, err, "update")
	}
	return item, nil
}

func (t table[T]) collect(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func nullable(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
