// Package runlog persists the per-run audit row.
package runlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/domain"
)

// Repo provides migration-run persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new run-log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Start inserts the run row at launch, before any phase executes.
func (r *Repo) Start(ctx context.Context, run domain.MigrationRun) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO migration_runs (id, source_url, started_at) VALUES ($1, $2, $3)`,
		run.ID, run.SourceURL, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("start migration run: %w", err)
	}
	return nil
}

// Finish updates the run row with final counts. Called on both successful
// completion and fatal halt, so a partial run still leaves its trace.
func (r *Repo) Finish(ctx context.Context, run domain.MigrationRun) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx,
		`UPDATE migration_runs SET
		     finished_at = $2, expected_total = $3,
		     attempted = $4, succeeded = $5, skipped = $6, errored = $7,
		     success_ratio = $8, fatal = $9
		 WHERE id = $1`,
		run.ID, run.FinishedAt, run.ExpectedTotal,
		run.Attempted, run.Succeeded, run.Skipped, run.Errored,
		run.SuccessRatio, run.Fatal,
	)
	if err != nil {
		return fmt.Errorf("finish migration run: %w", err)
	}
	return nil
}
