package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

// Postgres is the repository backed by a pgx connection pool. JSON columns
// are JSONB and scanned directly into Go values.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Migrate(ctx context.Context) error { return migratePostgres(ctx, p.pool) }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (p *Postgres) ListContracts(ctx context.Context, search string) ([]models.Contract, error) {
	query := contractSelectQuery
	var args []any
	if search != "" {
		query += " WHERE c.name ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY c.name"
	rows, err := p.pool.Query(ctx, query, args...)
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

func (p *Postgres) GetContract(ctx context.Context, id string) (models.Contract, error) {
	c, err := scanContract(p.pool.QueryRow(ctx, contractSelectQuery+" WHERE c.id = $1", id))
	return c, notFound(err)
}

func (p *Postgres) CreateContract(ctx context.Context, in models.ContractInput) (models.Contract, error) {
	var id string
	err := p.pool.QueryRow(ctx, `INSERT INTO contracts (id, name, code, client, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		uuid.NewString(), in.Name, in.Code, in.Client, in.IsActive()).Scan(&id)
	if err != nil {
		return models.Contract{}, err
	}
	return p.GetContract(ctx, id)
}

func (p *Postgres) UpdateContract(ctx context.Context, id string, in models.ContractInput) (models.Contract, error) {
	tag, err := p.pool.Exec(ctx, "UPDATE contracts SET name = $1, code = $2, client = $3, active = $4, updated_at = now() WHERE id = $5",
		in.Name, in.Code, in.Client, in.IsActive(), id)
	if err != nil {
		return models.Contract{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Contract{}, ErrNotFound
	}
	return p.GetContract(ctx, id)
}

// DeleteContract relies on ON DELETE CASCADE for activities; field rows
// are keyed by scope and removed explicitly.
func (p *Postgres) DeleteContract(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM contracts WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, "DELETE FROM dynamic_fields WHERE scope = $1", id)
		return err
	})
}

func (p *Postgres) Load(ctx context.Context, scope string) ([]fields.DynamicField, error) {
	rows, err := p.pool.Query(ctx, fieldSelectQuery+" WHERE scope = $1 ORDER BY position, id", scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fields.DynamicField
	for rows.Next() {
		var r fieldRow
		var options []fields.FieldOption
		if err := rows.Scan(r.dest(&options)...); err != nil {
			return nil, err
		}
		f := r.field()
		f.Options = options
		out = append(out, f)
	}
	return out, rows.Err()
}

// Save replaces the schema of scope in one transaction, batching the
// upserts.
func (p *Postgres) Save(ctx context.Context, scope string, fs []fields.DynamicField) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		upsert := fieldUpsertQuery(dollar)
		batch := &pgx.Batch{}
		ids := make([]any, 0, len(fs)+1)
		ids = append(ids, scope)
		for _, f := range fs {
			var options any
			if len(f.Options) > 0 {
				options = f.Options
			}
			batch.Queue(upsert, fieldArgs(scope, f, options)...)
			ids = append(ids, f.ID)
		}
		batch.Queue(fieldDeleteMissingQuery(dollar, len(fs)), ids...)
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanPgActivity(row scanner) (models.Activity, error) {
	var a models.Activity
	err := row.Scan(&a.ID, &a.ContractID, &a.Title, &a.Description, &a.ActivityDate,
		&a.Status, &a.CustomFields, &a.CreatedAt, &a.UpdatedAt, &a.ContractName)
	if a.CustomFields == nil {
		a.CustomFields = map[string]any{}
	}
	return a, err
}

func (p *Postgres) queryActivities(ctx context.Context, query string, args ...any) ([]models.Activity, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanPgActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (p *Postgres) ListActivities(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	where, args := activityConditions(dollar, filter)
	return p.queryActivities(ctx, activitySelectQuery+where+" ORDER BY a.activity_date DESC NULLS LAST, a.created_at DESC", args...)
}

func (p *Postgres) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	a, err := scanPgActivity(p.pool.QueryRow(ctx, activitySelectQuery+" WHERE a.id = $1", id))
	return a, notFound(err)
}

func (p *Postgres) CreateActivity(ctx context.Context, contractID string, in models.ActivityInput) (models.Activity, error) {
	var id string
	err := p.pool.QueryRow(ctx, `INSERT INTO activities
		(id, contract_id, title, description, activity_date, status, custom_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		uuid.NewString(), contractID, in.Title, in.Description, in.ActivityDate, in.Status, in.CustomFields).Scan(&id)
	if err != nil {
		return models.Activity{}, err
	}
	return p.GetActivity(ctx, id)
}

func (p *Postgres) UpdateActivity(ctx context.Context, id string, in models.ActivityInput) (models.Activity, error) {
	tag, err := p.pool.Exec(ctx, `UPDATE activities SET title = $1, description = $2, activity_date = $3,
		status = $4, custom_fields = $5, updated_at = now() WHERE id = $6`,
		in.Title, in.Description, in.ActivityDate, in.Status, in.CustomFields, id)
	if err != nil {
		return models.Activity{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Activity{}, ErrNotFound
	}
	return p.GetActivity(ctx, id)
}

func (p *Postgres) DeleteActivity(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM activities WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Dashboard(ctx context.Context) (models.Dashboard, error) {
	var d models.Dashboard
	batch := &pgx.Batch{}
	batch.Queue(dashboardContractsQuery).QueryRow(func(row pgx.Row) error {
		return row.Scan(&d.TotalContracts, &d.ActiveContracts)
	})
	batch.Queue(dashboardFieldsQuery).QueryRow(func(row pgx.Row) error {
		return row.Scan(&d.TotalFields, &d.ActiveFields)
	})
	batch.Queue(dashboardActivitiesQuery).QueryRow(func(row pgx.Row) error {
		return row.Scan(&d.TotalActivities, &d.PendingActivities, &d.ApprovedActivities, &d.RejectedActivities)
	})
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return d, fmt.Errorf("dashboard counts: %w", err)
	}

	var err error
	d.RecentActivities, err = p.queryActivities(ctx, dashboardRecentQuery)
	return d, err
}
