// Package property implements persistence for the migrated primary entity.
// Writes go through pgx.Batch upserts keyed by external_id, so repeated runs
// update rows in place and never duplicate them.
package property

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/domain"
)

// Repo provides property persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new property repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const upsertSQL = `
INSERT INTO properties (
    external_id, natural_code, title, description,
    area_id, type_id, compound_id, contact_id,
    price, down_payment, built_area, land_area,
    bedrooms, bathrooms, floors,
    is_furnished, is_in_compound,
    delivery_date, source_modified, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (external_id) DO UPDATE SET
    natural_code    = EXCLUDED.natural_code,
    title           = EXCLUDED.title,
    description     = EXCLUDED.description,
    area_id         = EXCLUDED.area_id,
    type_id         = EXCLUDED.type_id,
    compound_id     = EXCLUDED.compound_id,
    contact_id      = EXCLUDED.contact_id,
    price           = EXCLUDED.price,
    down_payment    = EXCLUDED.down_payment,
    built_area      = EXCLUDED.built_area,
    land_area       = EXCLUDED.land_area,
    bedrooms        = EXCLUDED.bedrooms,
    bathrooms       = EXCLUDED.bathrooms,
    floors          = EXCLUDED.floors,
    is_furnished    = EXCLUDED.is_furnished,
    is_in_compound  = EXCLUDED.is_in_compound,
    delivery_date   = EXCLUDED.delivery_date,
    source_modified = EXCLUDED.source_modified,
    updated_at      = EXCLUDED.updated_at`

// BulkUpsert writes one batch of properties using pgx.Batch, inserting new
// external ids and updating all mutable columns on conflict. Returns the
// number of affected rows. A single failing statement aborts the whole
// batch on the server, which is why every numeric field must arrive
// pre-clamped.
func (r *Repo) BulkUpsert(ctx context.Context, props []domain.Property) (int, error) {
	if len(props) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, p := range props {
		batch.Queue(upsertSQL,
			p.ExternalID, p.NaturalCode, p.Title, p.Description,
			p.AreaID, p.TypeID, p.CompoundID, p.ContactID,
			p.Price, p.DownPayment, p.BuiltArea, p.LandArea,
			p.Bedrooms, p.Bathrooms, p.Floors,
			p.IsFurnished, p.IsInCompound,
			p.DeliveryDate, p.SourceModified, now,
		)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var affected int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("batch upsert: %w", err)
		}
		affected += int(tag.RowsAffected())
	}

	return affected, nil
}

// GetIDsByExternalIDs returns a map of external_id → surrogate id for all
// matching properties. The media linker uses this to resolve parents after
// the primary migration pass.
func (r *Repo) GetIDsByExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error) {
	if len(externalIDs) == 0 {
		return map[string]int64{}, nil
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx,
		`SELECT external_id, id FROM properties WHERE external_id = ANY($1)`,
		externalIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get property IDs by external IDs: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64, len(externalIDs))
	for rows.Next() {
		var extID string
		var id int64
		if err := rows.Scan(&extID, &id); err != nil {
			return nil, fmt.Errorf("scan property ID: %w", err)
		}
		result[extID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property IDs: %w", err)
	}

	return result, nil
}

// Count returns the total number of migrated properties.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return n, nil
}

// CountUnresolvedAreas returns the number of properties whose area FK is
// NULL. The validation phase reports this as a resolution-quality signal.
func (r *Repo) CountUnresolvedAreas(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM properties WHERE area_id IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unresolved areas: %w", err)
	}
	return n, nil
}

// SampleJoin runs a read-only join of properties to their cover image for
// up to limit rows, returning how many joined rows came back. The
// validation phase uses it as a cheap schema sanity probe.
func (r *Repo) SampleJoin(ctx context.Context, limit int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT p.id, p.external_id, i.url
		 FROM properties p
		 JOIN property_images i ON i.property_id = p.id AND i.is_primary
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("sample join: %w", err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var id int64
		var extID, url string
		if err := rows.Scan(&id, &extID, &url); err != nil {
			return n, fmt.Errorf("scan sample join: %w", err)
		}
		n++
	}
	return n, rows.Err()
}
