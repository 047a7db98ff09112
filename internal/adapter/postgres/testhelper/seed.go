package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propflow/migrator/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting
// test data. The test container is shared across packages, so every seeded
// row needs its own natural key.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedDimension inserts one dimension row of the given kind and returns it.
func SeedDimension(t *testing.T, pool *pgxpool.Pool, kind domain.DimensionKind, name string) domain.Dimension {
	t.Helper()
	ctx := context.Background()

	d := domain.Dimension{
		Kind:       kind,
		Name:       name + " " + uniqueSuffix(),
		NaturalKey: domain.Canonicalize(name + " " + uniqueSuffix()),
	}
	err := pool.QueryRow(ctx,
		`INSERT INTO `+kind.Table()+` (name, natural_key) VALUES ($1, $2) RETURNING id`,
		d.Name, d.NaturalKey,
	).Scan(&d.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedDimension %s: %v", kind, err)
	}
	return d
}

// SeedProperty inserts a minimal property row and returns it. The dimension
// FKs are left NULL; tests that need them attach their own.
func SeedProperty(t *testing.T, pool *pgxpool.Pool) domain.Property {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := domain.Property{
		ExternalID:     "ext-" + suffix,
		NaturalCode:    "PROP-" + suffix,
		Title:          "Test Property " + suffix,
		DeliveryDate:   now,
		SourceModified: now,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO properties (external_id, natural_code, title, delivery_date, source_modified)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.ExternalID, p.NaturalCode, p.Title, p.DeliveryDate, p.SourceModified,
	).Scan(&p.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedProperty: %v", err)
	}
	return p
}
