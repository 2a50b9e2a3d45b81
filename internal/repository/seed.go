package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SeedData is the sample catalog written by Seed. Visits refer to offices and
// clients by their index in the Offices and Clients slices.
type SeedData struct {
	Offices []models.Office
	Clients []models.Client
	Visits  []SeedVisit
}

// SeedVisit is a visit between the offices and clients of a SeedData.
type SeedVisit struct {
	Office int
	Client int
	Visit  models.Visit
}

// Seed clears all tables and inserts data in a single transaction.
func (r *Repository) Seed(ctx context.Context, data SeedData) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if errRollback := tx.Rollback(ctx); errRollback != nil && !errors.Is(errRollback, pgx.ErrTxClosed) {
			r.log.ErrorContext(ctx, "Failed to roll back seed transaction", "error", errRollback)
		}
	}()

	if _, err = tx.Exec(ctx, `TRUNCATE visits, clients, offices;`); err != nil {
		return fmt.Errorf("failed to clear existing data: %w", err)
	}

	txRepo := NewRepository(txDatabase{tx: tx}, r.log)
	officeIDs := make([]string, len(data.Offices))
	for i := range data.Offices {
		if err = txRepo.CreateOffice(ctx, &data.Offices[i]); err != nil {
			return err
		}
		officeIDs[i] = data.Offices[i].ID
	}
	clientIDs := make([]string, len(data.Clients))
	for i := range data.Clients {
		if err = txRepo.CreateClient(ctx, &data.Clients[i]); err != nil {
			return err
		}
		clientIDs[i] = data.Clients[i].ID
	}
	for _, sv := range data.Visits {
		if sv.Office >= len(officeIDs) || sv.Client >= len(clientIDs) {
			return fmt.Errorf("failed to seed visit: %w", ErrUnknownReference)
		}
		visit := sv.Visit
		visit.OfficeID, visit.ClientID = officeIDs[sv.Office], clientIDs[sv.Client]
		if err = txRepo.CreateVisit(ctx, &visit); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	committed = true

	r.log.InfoContext(ctx, "Database seeded",
		"offices", len(data.Offices), "clients", len(data.Clients), "visits", len(data.Visits))
	return nil
}

// txDatabase lets the repository methods run inside a transaction.
type txDatabase struct {
	tx pgx.Tx
}

func (t txDatabase) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

func (t txDatabase) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t txDatabase) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t txDatabase) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.tx.Begin(ctx)
}

func (t txDatabase) Ping(ctx context.Context) error {
	return t.tx.Conn().Ping(ctx)
}
