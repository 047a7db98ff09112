package media_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgres "github.com/propflow/migrator/internal/adapter/postgres"
	"github.com/propflow/migrator/internal/adapter/postgres/media"
	"github.com/propflow/migrator/internal/adapter/postgres/testhelper"
	"github.com/propflow/migrator/internal/domain"
)

func images(propertyID int64, urls ...string) []domain.PropertyImage {
	result := make([]domain.PropertyImage, 0, len(urls))
	for i, url := range urls {
		result = append(result, domain.PropertyImage{
			PropertyID: propertyID,
			URL:        url,
			SortOrder:  i,
			IsPrimary:  i == 0,
		})
	}
	return result
}

func TestRepo_ReplaceForProperty_InsertsOrdered(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := media.New(pool, postgres.NewTxManager(pool))
	ctx := context.Background()

	prop := testhelper.SeedProperty(t, pool)

	err := repo.ReplaceForProperty(ctx, prop.ID,
		images(prop.ID, "https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg"),
		[]domain.PropertyVideo{
			{PropertyID: prop.ID, URL: "https://youtu.be/x", SortOrder: 0, Kind: domain.MediaYouTube},
		},
	)
	require.NoError(t, err)

	n, err := repo.CountByProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rows, err := pool.Query(ctx,
		`SELECT url, sort_order, is_primary FROM property_images WHERE property_id = $1 ORDER BY sort_order`,
		prop.ID,
	)
	require.NoError(t, err)
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		var sortOrder int
		var isPrimary bool
		require.NoError(t, rows.Scan(&url, &sortOrder, &isPrimary))
		assert.Equal(t, sortOrder == 0, isPrimary, "only sort_order 0 is primary")
		urls = append(urls, url)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg"}, urls)

	var kind string
	err = pool.QueryRow(ctx,
		`SELECT kind FROM property_videos WHERE property_id = $1`, prop.ID,
	).Scan(&kind)
	require.NoError(t, err)
	assert.Equal(t, "youtube", kind)
}

func TestRepo_ReplaceForProperty_TrimsShrunkenList(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := media.New(pool, postgres.NewTxManager(pool))
	ctx := context.Background()

	prop := testhelper.SeedProperty(t, pool)

	err := repo.ReplaceForProperty(ctx, prop.ID,
		images(prop.ID, "https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg"), nil)
	require.NoError(t, err)

	// Rerun with a single image: rows beyond the new length must go away.
	err = repo.ReplaceForProperty(ctx, prop.ID,
		images(prop.ID, "https://cdn/a-v2.jpg"), nil)
	require.NoError(t, err)

	n, err := repo.CountByProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var url string
	err = pool.QueryRow(ctx,
		`SELECT url FROM property_images WHERE property_id = $1 AND sort_order = 0`, prop.ID,
	).Scan(&url)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a-v2.jpg", url, "surviving row carries the rerun's values")
}

func TestRepo_ReplaceForProperty_EmptyListsClear(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := media.New(pool, postgres.NewTxManager(pool))
	ctx := context.Background()

	prop := testhelper.SeedProperty(t, pool)

	err := repo.ReplaceForProperty(ctx, prop.ID,
		images(prop.ID, "https://cdn/a.jpg"), nil)
	require.NoError(t, err)

	err = repo.ReplaceForProperty(ctx, prop.ID, nil, nil)
	require.NoError(t, err)

	n, err := repo.CountByProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepo_DeletingPropertyCascades(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := media.New(pool, postgres.NewTxManager(pool))
	ctx := context.Background()

	prop := testhelper.SeedProperty(t, pool)
	err := repo.ReplaceForProperty(ctx, prop.ID,
		images(prop.ID, "https://cdn/a.jpg", "https://cdn/b.jpg"), nil)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, prop.ID)
	require.NoError(t, err)

	n, err := repo.CountByProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "media rows must cascade with their parent")

	orphans, err := repo.CountOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphans)
}
