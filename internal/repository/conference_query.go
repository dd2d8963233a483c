package repository

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
)

const dialectPostgres = "postgres"

var conferenceSelect = []any{
	"id", "organizer_user_id", "name", "description", "topics", "city",
	"start_date", "end_date", "month", "max_attendees", "seats_available",
	"created_at", "updated_at",
}

var fieldColumns = map[query.Field]string{
	query.FieldCity:         "city",
	query.FieldTopics:       "topics",
	query.FieldMonth:        "month",
	query.FieldMaxAttendees: "max_attendees",
	query.FieldName:         "name",
}

// QueryConferences runs a validated plan against the conferences table.
func (r *Repository) QueryConferences(ctx context.Context, plan *query.Plan) ([]*model.Conference, error) {
	sql, args, err := buildConferenceQuery(plan)
	if err != nil {
		return nil, err
	}
	return r.queryConferences(ctx, sql, args...)
}

func buildConferenceQuery(plan *query.Plan) (string, []any, error) {
	ds := goqu.Dialect(dialectPostgres).
		From("conferences").
		Select(conferenceSelect...).
		Prepared(true)

	if len(plan.Conditions) > 0 {
		where := make([]exp.Expression, 0, len(plan.Conditions))
		for _, cond := range plan.Conditions {
			expr, err := conditionExpression(cond)
			if err != nil {
				return "", nil, err
			}
			where = append(where, expr)
		}
		ds = ds.Where(where...)
	}

	order := make([]exp.OrderedExpression, 0, 3)
	for _, field := range plan.OrderBy() {
		order = append(order, orderExpression(field))
	}
	order = append(order, goqu.C("id").Asc())
	ds = ds.Order(order...)

	sql, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build conference query: %w", err)
	}
	return sql, args, nil
}

func conditionExpression(cond query.Condition) (exp.Expression, error) {
	if cond.Field == query.FieldTopics {
		return topicExpression(cond)
	}

	column, ok := fieldColumns[cond.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", query.ErrInvalidFilter, cond.Field)
	}

	var value any = cond.Str
	if cond.IsNumeric() {
		value = cond.Int
	}

	col := goqu.C(column)
	switch cond.Operator {
	case query.OpEQ:
		return col.Eq(value), nil
	case query.OpNE:
		return col.Neq(value), nil
	case query.OpGT:
		return col.Gt(value), nil
	case query.OpGTEQ:
		return col.Gte(value), nil
	case query.OpLT:
		return col.Lt(value), nil
	case query.OpLTEQ:
		return col.Lte(value), nil
	}
	return nil, fmt.Errorf("%w: %s", query.ErrInvalidFilter, cond.Operator)
}

// topicExpression matches when any element of the topics array satisfies the
// comparison; != means the array does not contain the value.
func topicExpression(cond query.Condition) (exp.Expression, error) {
	switch cond.Operator {
	case query.OpEQ:
		return goqu.L("? = ANY(topics)", cond.Str), nil
	case query.OpNE:
		return goqu.L("NOT (? = ANY(topics))", cond.Str), nil
	case query.OpGT:
		return goqu.L("? < ANY(topics)", cond.Str), nil
	case query.OpGTEQ:
		return goqu.L("? <= ANY(topics)", cond.Str), nil
	case query.OpLT:
		return goqu.L("? > ANY(topics)", cond.Str), nil
	case query.OpLTEQ:
		return goqu.L("? >= ANY(topics)", cond.Str), nil
	}
	return nil, fmt.Errorf("%w: %s", query.ErrInvalidFilter, cond.Operator)
}

func orderExpression(field query.Field) exp.OrderedExpression {
	if field == query.FieldTopics {
		return goqu.L("(SELECT min(t) FROM unnest(topics) AS t)").Asc()
	}
	return goqu.C(fieldColumns[field]).Asc()
}
