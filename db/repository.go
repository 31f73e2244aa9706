package db

import (
	"context"
	"errors"

	"github.com/satheeshds/cdaplus/fields"
	"github.com/satheeshds/cdaplus/models"
)

// ErrNotFound is returned when a contract or activity id does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the persistence contract of the service. Field schemas are
// stored per scope through the embedded fields.Repository.
type Repository interface {
	fields.Repository

	ListContracts(ctx context.Context, search string) ([]models.Contract, error)
	GetContract(ctx context.Context, id string) (models.Contract, error)
	CreateContract(ctx context.Context, in models.ContractInput) (models.Contract, error)
	UpdateContract(ctx context.Context, id string, in models.ContractInput) (models.Contract, error)
	// DeleteContract removes the contract with its field schema and
	// activities.
	DeleteContract(ctx context.Context, id string) error

	ListActivities(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	GetActivity(ctx context.Context, id string) (models.Activity, error)
	CreateActivity(ctx context.Context, contractID string, in models.ActivityInput) (models.Activity, error)
	UpdateActivity(ctx context.Context, id string, in models.ActivityInput) (models.Activity, error)
	DeleteActivity(ctx context.Context, id string) error

	Dashboard(ctx context.Context) (models.Dashboard, error)

	// Migrate brings the schema up to date. Safe to call multiple times.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
