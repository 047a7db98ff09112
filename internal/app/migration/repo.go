package migration

import (
	"context"

	"github.com/propflow/migrator/internal/adapter/source/docstore"
	"github.com/propflow/migrator/internal/domain"
)

// PageFetcher is the slice of the source client the extractor needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, offset, limit int) (*docstore.Page, error)
}

// DimensionStore is the slice of the dimension repository the resolver needs.
type DimensionStore interface {
	GetByNaturalKey(ctx context.Context, kind domain.DimensionKind, naturalKey string) (*domain.Dimension, error)
	Create(ctx context.Context, kind domain.DimensionKind, name, naturalKey string, parentID *int64) (int64, error)
	CountByKind(ctx context.Context, kind domain.DimensionKind) (int64, error)
}

// PropertyStore is the slice of the property repository the migrator and
// validation phase need.
type PropertyStore interface {
	BulkUpsert(ctx context.Context, props []domain.Property) (int, error)
	GetIDsByExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
	CountUnresolvedAreas(ctx context.Context) (int64, error)
	SampleJoin(ctx context.Context, limit int) (int, error)
}

// MediaStore is the slice of the media repository the linker needs.
type MediaStore interface {
	ReplaceForProperty(ctx context.Context, propertyID int64, images []domain.PropertyImage, videos []domain.PropertyVideo) error
	CountImages(ctx context.Context) (int64, error)
	CountVideos(ctx context.Context) (int64, error)
	CountOrphans(ctx context.Context) (int64, error)
}

// RunStore records the per-run audit row.
type RunStore interface {
	Start(ctx context.Context, run domain.MigrationRun) error
	Finish(ctx context.Context, run domain.MigrationRun) error
}
