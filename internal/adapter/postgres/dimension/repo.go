// Package dimension implements persistence for the inferred lookup tables
// (regions, areas, categories, property types, compounds, contacts). All six
// share one shape — surrogate id, display name, unique natural key, optional
// parent — so a single repository serves every kind.
package dimension

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/domain"
)

// Repo provides dimension persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New creates a new dimension repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByNaturalKey returns the dimension row with the given natural key.
// Returns domain.ErrNotFound when no row matches.
func (r *Repo) GetByNaturalKey(ctx context.Context, kind domain.DimensionKind, naturalKey string) (*domain.Dimension, error) {
	cols := []string{"id", "name", "natural_key"}
	if fk := kind.ParentFK(); fk != "" {
		cols = append(cols, fk)
	}

	query, args, err := r.sb.
		Select(cols...).
		From(kind.Table()).
		Where(sq.Eq{"natural_key": naturalKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", kind, err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	row := q.QueryRow(ctx, query, args...)

	d := domain.Dimension{Kind: kind}
	dest := []any{&d.ID, &d.Name, &d.NaturalKey}
	if kind.ParentFK() != "" {
		dest = append(dest, &d.ParentID)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, postgres.MapError(err, string(kind), naturalKey)
	}

	return &d, nil
}

// Create inserts a new dimension row and returns its id. A unique-constraint
// conflict surfaces as domain.ErrAlreadyExists so the resolver can re-read
// instead of failing; this is the path taken when a concurrent resolver
// created the same natural key first.
func (r *Repo) Create(ctx context.Context, kind domain.DimensionKind, name, naturalKey string, parentID *int64) (int64, error) {
	cols := []string{"name", "natural_key"}
	vals := []any{name, naturalKey}
	if fk := kind.ParentFK(); fk != "" {
		cols = append(cols, fk)
		vals = append(vals, parentID)
	}

	query, args, err := r.sb.
		Insert(kind.Table()).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s insert: %w", kind, err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, postgres.MapError(err, string(kind), naturalKey)
	}

	return id, nil
}

// CountByKind returns the number of rows in the kind's table.
// Used by the validation phase.
func (r *Repo) CountByKind(ctx context.Context, kind domain.DimensionKind) (int64, error) {
	query, args, err := r.sb.
		Select("COUNT(*)").
		From(kind.Table()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s count: %w", kind, err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}

	return n, nil
}
