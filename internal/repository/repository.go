package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownReference is returned when a visit points at a missing office or client.
	ErrUnknownReference = errors.New("referenced office or client does not exist")
)

const foreignKeyViolation = "23503"

// Database is the subset of pgxpool.Pool used by the repository.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db  Database
	log *slog.Logger
}

type Interface interface {
	ListOffices(ctx context.Context) ([]models.Office, error)
	GetOffice(ctx context.Context, id string) (models.Office, error)
	CreateOffice(ctx context.Context, office *models.Office) error
	UpdateOffice(ctx context.Context, office *models.Office) error
	DeleteOffice(ctx context.Context, id string) error
	OfficeDetail(ctx context.Context, id string) (models.OfficeDetail, error)

	ListClients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, id string) (models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) error
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id string) error
	ClientDetail(ctx context.Context, id string) (models.ClientDetail, error)

	ListVisits(ctx context.Context) ([]models.PopulatedVisit, error)
	GetVisit(ctx context.Context, id string) (models.PopulatedVisit, error)
	CreateVisit(ctx context.Context, visit *models.Visit) error
	UpdateVisit(ctx context.Context, visit *models.Visit) error
	DeleteVisit(ctx context.Context, id string) error

	Stats(ctx context.Context) (models.Stats, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// NewDatabase opens a pgx connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func referenceError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", ErrUnknownReference, pgErr.ConstraintName)
	}
	return err
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
