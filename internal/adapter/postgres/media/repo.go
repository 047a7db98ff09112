// Package media implements persistence for property images and videos.
// Child rows are keyed by (property_id, sort_order): reruns upsert in place
// and trim rows beyond the new list length, so a shrinking source media
// list never leaves orphans behind.
package media

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/domain"
)

// Repo provides media persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
}

// New creates a new media repository.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{pool: pool, txm: txm}
}

const upsertImageSQL = `
INSERT INTO property_images (property_id, url, sort_order, is_primary, width, height, mime_type)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (property_id, sort_order) DO UPDATE SET
    url = EXCLUDED.url,
    is_primary = EXCLUDED.is_primary,
    width = EXCLUDED.width,
    height = EXCLUDED.height,
    mime_type = EXCLUDED.mime_type`

const upsertVideoSQL = `
INSERT INTO property_videos (property_id, url, sort_order, kind)
VALUES ($1, $2, $3, $4)
ON CONFLICT (property_id, sort_order) DO UPDATE SET
    url = EXCLUDED.url,
    kind = EXCLUDED.kind`

// ReplaceForProperty makes the stored media of one property match the given
// lists exactly: rows at matching sort orders are updated, new ones are
// inserted, and rows whose sort_order exceeds the new list length are
// deleted. The whole replacement runs in one transaction so a rerun can
// never observe a half-replaced media set.
func (r *Repo) ReplaceForProperty(ctx context.Context, propertyID int64, images []domain.PropertyImage, videos []domain.PropertyVideo) error {
	return r.txm.RunInTx(ctx, func(txCtx context.Context) error {
		q := postgres.QuerierFromCtx(txCtx, r.pool)

		batch := &pgx.Batch{}
		for _, img := range images {
			batch.Queue(upsertImageSQL,
				propertyID, img.URL, img.SortOrder, img.IsPrimary,
				img.Width, img.Height, img.MimeType,
			)
		}
		for _, vid := range videos {
			batch.Queue(upsertVideoSQL, propertyID, vid.URL, vid.SortOrder, string(vid.Kind))
		}
		batch.Queue(
			`DELETE FROM property_images WHERE property_id = $1 AND sort_order >= $2`,
			propertyID, len(images),
		)
		batch.Queue(
			`DELETE FROM property_videos WHERE property_id = $1 AND sort_order >= $2`,
			propertyID, len(videos),
		)

		results := q.SendBatch(txCtx, batch)
		defer results.Close()

		for range batch.Len() {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("replace media for property %d: %w", propertyID, err)
			}
		}
		return nil
	})
}

// CountImages returns the total number of image rows.
func (r *Repo) CountImages(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "property_images")
}

// CountVideos returns the total number of video rows.
func (r *Repo) CountVideos(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "property_videos")
}

// CountByProperty returns the number of image rows owned by one property.
func (r *Repo) CountByProperty(ctx context.Context, propertyID int64) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM property_images WHERE property_id = $1`, propertyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count images for property %d: %w", propertyID, err)
	}
	return n, nil
}

// CountOrphans returns the number of media rows whose parent property is
// missing. The FK makes this structurally impossible; the validation phase
// still checks so a schema regression shows up in the report instead of
// silently.
func (r *Repo) CountOrphans(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	err := q.QueryRow(ctx,
		`SELECT
		     (SELECT COUNT(*) FROM property_images i LEFT JOIN properties p ON p.id = i.property_id WHERE p.id IS NULL)
		   + (SELECT COUNT(*) FROM property_videos v LEFT JOIN properties p ON p.id = v.property_id WHERE p.id IS NULL)`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orphan media: %w", err)
	}
	return n, nil
}

func (r *Repo) countTable(ctx context.Context, table string) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var n int64
	if err := q.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
