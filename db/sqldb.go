package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

type scanner interface{ Scan(...any) error }

// SQL is the repository of the embedded backends (SQLite, DuckDB), reached
// through database/sql. JSON columns are stored as text.
type SQL struct {
	db     *sql.DB
	driver string
}

// NewSQL wraps an open database of the given driver.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

func (s *SQL) Migrate(ctx context.Context) error {
	if err := Migrate(s.db); err != nil {
		return fmt.Errorf("%s: %w", s.driver, err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }

func scanContract(row scanner) (models.Contract, error) {
	var c models.Contract
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Client, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		&c.FieldCount, &c.ActivityCount)
	return c, err
}

func (s *SQL) ListContracts(ctx context.Context, search string) ([]models.Contract, error) {
	query := contractSelectQuery
	var args []any
	if search != "" {
		query += " WHERE LOWER(c.name) LIKE ?"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += " ORDER BY c.name"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := []models.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (s *SQL) GetContract(ctx context.Context, id string) (models.Contract, error) {
	c, err := scanContract(s.db.QueryRowContext(ctx, contractSelectQuery+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (s *SQL) CreateContract(ctx context.Context, in models.ContractInput) (models.Contract, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO contracts (id, name, code, client, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, id, in.Name, nullable(in.Code), nullable(in.Client), in.IsActive(), now, now)
	if err != nil {
		return models.Contract{}, err
	}
	return s.GetContract(ctx, id)
}

func (s *SQL) UpdateContract(ctx context.Context, id string, in models.ContractInput) (models.Contract, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE contracts SET name = ?, code = ?, client = ?, active = ?, updated_at = ? WHERE id = ?",
		in.Name, nullable(in.Code), nullable(in.Client), in.IsActive(), time.Now().UTC(), id)
	if err != nil {
		return models.Contract{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Contract{}, ErrNotFound
	}
	return s.GetContract(ctx, id)
}

func (s *SQL) DeleteContract(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM activities WHERE contract_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM dynamic_fields WHERE scope = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQL) Load(ctx context.Context, scope string) ([]fields.DynamicField, error) {
	rows, err := s.db.QueryContext(ctx, fieldSelectQuery+" WHERE scope = ? ORDER BY position, id", scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fields.DynamicField
	for rows.Next() {
		var r fieldRow
		var options sql.NullString
		if err := rows.Scan(r.dest(&options)...); err != nil {
			return nil, err
		}
		f := r.field()
		if options.Valid && options.String != "" {
			if err := json.Unmarshal([]byte(options.String), &f.Options); err != nil {
				return nil, fmt.Errorf("decoding options of field %s: %w", f.ID, err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Save replaces the schema of scope: every field is upserted and rows no
// longer present are deleted, in one transaction.
func (s *SQL) Save(ctx context.Context, scope string, fs []fields.DynamicField) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := fieldUpsertQuery(questionMark)
	ids := make([]any, 0, len(fs)+1)
	ids = append(ids, scope)
	for _, f := range fs {
		var options any
		if len(f.Options) > 0 {
			b, err := json.Marshal(f.Options)
			if err != nil {
				return err
			}
			options = string(b)
		}
		if _, err := tx.ExecContext(ctx, upsert, fieldArgs(scope, f, options)...); err != nil {
			return fmt.Errorf("saving field %s: %w", f.ID, err)
		}
		ids = append(ids, f.ID)
	}
	if _, err := tx.ExecContext(ctx, fieldDeleteMissingQuery(questionMark, len(fs)), ids...); err != nil {
		return err
	}
	return tx.Commit()
}

func scanSQLActivity(row scanner) (models.Activity, error) {
	var a models.Activity
	var custom string
	err := row.Scan(&a.ID, &a.ContractID, &a.Title, &a.Description, &a.ActivityDate,
		&a.Status, &custom, &a.CreatedAt, &a.UpdatedAt, &a.ContractName)
	if err != nil {
		return a, err
	}
	a.CustomFields = map[string]any{}
	if custom != "" {
		if err := json.Unmarshal([]byte(custom), &a.CustomFields); err != nil {
			return a, fmt.Errorf("decoding custom fields of activity %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func (s *SQL) queryActivities(ctx context.Context, query string, args ...any) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanSQLActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *SQL) ListActivities(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	where, args := activityConditions(questionMark, filter)
	return s.queryActivities(ctx, activitySelectQuery+where+" ORDER BY a.activity_date DESC, a.created_at DESC", args...)
}

func (s *SQL) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	a, err := scanSQLActivity(s.db.QueryRowContext(ctx, activitySelectQuery+" WHERE a.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (s *SQL) CreateActivity(ctx context.Context, contractID string, in models.ActivityInput) (models.Activity, error) {
	custom, err := json.Marshal(in.CustomFields)
	if err != nil {
		return models.Activity{}, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `INSERT INTO activities
		(id, contract_id, title, description, activity_date, status, custom_fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, contractID, in.Title, nullable(in.Description), nullable(in.ActivityDate), in.Status, string(custom), now, now)
	if err != nil {
		return models.Activity{}, err
	}
	return s.GetActivity(ctx, id)
}

func (s *SQL) UpdateActivity(ctx context.Context, id string, in models.ActivityInput) (models.Activity, error) {
	custom, err := json.Marshal(in.CustomFields)
	if err != nil {
		return models.Activity{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET title = ?, description = ?, activity_date = ?,
		status = ?, custom_fields = ?, updated_at = ? WHERE id = ?`,
		in.Title, nullable(in.Description), nullable(in.ActivityDate), in.Status, string(custom), time.Now().UTC(), id)
	if err != nil {
		return models.Activity{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Activity{}, ErrNotFound
	}
	return s.GetActivity(ctx, id)
}

func (s *SQL) DeleteActivity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) Dashboard(ctx context.Context) (models.Dashboard, error) {
	var d models.Dashboard
	err := s.db.QueryRowContext(ctx, dashboardContractsQuery).Scan(&d.TotalContracts, &d.ActiveContracts)
	if err != nil {
		return d, err
	}
	err = s.db.QueryRowContext(ctx, dashboardFieldsQuery).Scan(&d.TotalFields, &d.ActiveFields)
	if err != nil {
		return d, err
	}
	err = s.db.QueryRowContext(ctx, dashboardActivitiesQuery).
		Scan(&d.TotalActivities, &d.PendingActivities, &d.ApprovedActivities, &d.RejectedActivities)
	if err != nil {
		return d, err
	}
	d.RecentActivities, err = s.queryActivities(ctx, dashboardRecentQuery)
	return d, err
}
