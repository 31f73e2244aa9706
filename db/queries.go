package db

import (
	"fmt"
	"strings"

	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

// The queries below are shared by the database/sql and pgx backends; only
// the placeholder syntax differs and is produced by a placeholder func.

const contractSelectQuery = `SELECT c.id, c.name, c.code, c.client, c.active, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM dynamic_fields f WHERE f.scope = c.id AND f.is_active),
	(SELECT COUNT(*) FROM activities a WHERE a.contract_id = c.id)
	FROM contracts c`

const activitySelectQuery = `SELECT a.id, a.contract_id, a.title, a.description, a.activity_date,
	a.status, a.custom_fields, a.created_at, a.updated_at,
	c.name
	FROM activities a
	LEFT JOIN contracts c ON a.contract_id = c.id`

const (
	dashboardContractsQuery = `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM contracts`
	dashboardFieldsQuery    = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM dynamic_fields`

	dashboardActivitiesQuery = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'approved'),
		COUNT(*) FILTER (WHERE status = 'rejected')
		FROM activities`

	dashboardRecentQuery = activitySelectQuery + " ORDER BY a.created_at DESC LIMIT 5"
)

const fieldSelectQuery = `SELECT id, name, label, type, required, placeholder, description, options,
	min_value, max_value, step_value, min_length, max_length, position, is_active
	FROM dynamic_fields`

const fieldColumns = `scope, id, name, label, type, required, placeholder, description, options,
	min_value, max_value, step_value, min_length, max_length, position, is_active`

const fieldUpsertSet = `name = EXCLUDED.name, label = EXCLUDED.label, type = EXCLUDED.type,
	required = EXCLUDED.required, placeholder = EXCLUDED.placeholder, description = EXCLUDED.description,
	options = EXCLUDED.options, min_value = EXCLUDED.min_value, max_value = EXCLUDED.max_value,
	step_value = EXCLUDED.step_value, min_length = EXCLUDED.min_length, max_length = EXCLUDED.max_length,
	position = EXCLUDED.position, is_active = EXCLUDED.is_active`

type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// placeholders returns "p1, p2, ..., pn" starting at index from.
func placeholders(ph placeholder, from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = ph(from + i)
	}
	return strings.Join(parts, ", ")
}

func fieldUpsertQuery(ph placeholder) string {
	return "INSERT INTO dynamic_fields (" + fieldColumns + ") VALUES (" + placeholders(ph, 1, 16) +
		") ON CONFLICT (scope, id) DO UPDATE SET " + fieldUpsertSet
}

// fieldDeleteMissingQuery deletes the rows of a scope whose id is not in a
// list of n ids. The scope is parameter 1.
func fieldDeleteMissingQuery(ph placeholder, n int) string {
	q := "DELETE FROM dynamic_fields WHERE scope = " + ph(1)
	if n > 0 {
		q += " AND id NOT IN (" + placeholders(ph, 2, n) + ")"
	}
	return q
}

// fieldArgs flattens a field in fieldColumns order. options is passed in
// whatever encoding the backend wants.
func fieldArgs(scope string, f fields.DynamicField, options any) []any {
	var minLen, maxLen *int
	if f.Validation != nil {
		minLen, maxLen = f.Validation.MinLength, f.Validation.MaxLength
	}
	return []any{
		scope, f.ID, f.Name, f.Label, string(f.Type), f.Required,
		nullString(f.Placeholder), nullString(f.Description), options,
		nullable(f.Min), nullable(f.Max), nullable(f.Step), nullable(minLen), nullable(maxLen), f.Order, f.IsActive,
	}
}

// fieldRow holds the scanned columns of fieldSelectQuery.
type fieldRow struct {
	f           fields.DynamicField
	typ         string
	placeholder *string
	description *string
	minLen      *int
	maxLen      *int
}

func (r *fieldRow) dest(options any) []any {
	return []any{
		&r.f.ID, &r.f.Name, &r.f.Label, &r.typ, &r.f.Required, &r.placeholder, &r.description, options,
		&r.f.Min, &r.f.Max, &r.f.Step, &r.minLen, &r.maxLen, &r.f.Order, &r.f.IsActive,
	}
}

func (r *fieldRow) field() fields.DynamicField {
	f := r.f
	f.Type = fields.FieldType(r.typ)
	if r.placeholder != nil {
		f.Placeholder = *r.placeholder
	}
	if r.description != nil {
		f.Description = *r.description
	}
	if r.minLen != nil || r.maxLen != nil {
		f.Validation = &fields.Validation{MinLength: r.minLen, MaxLength: r.maxLen}
	}
	return f
}

// activityConditions builds the WHERE clause of an activity listing.
func activityConditions(ph placeholder, filter models.ActivityFilter) (string, []any) {
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, ph(len(args))))
	}
	if filter.ContractID != "" {
		add("a.contract_id = %s", filter.ContractID)
	}
	if filter.Status != "" {
		add("a.status = %s", filter.Status)
	}
	if filter.From != "" {
		add("a.activity_date >= %s", filter.From)
	}
	if filter.To != "" {
		add("a.activity_date <= %s", filter.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullable dereferences p so that drivers without pointer support bind a
// plain value or NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
