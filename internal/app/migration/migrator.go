package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/propflow/migrator/internal/domain"
)

// Source document field names the migrator maps into the relational model.
// Every read goes through SourceRecord accessors and the normalizer, so a
// missing or oddly-typed field degrades to null instead of failing the row.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldRefNumber    = "refNumber"
	fieldArea         = "area"
	fieldCategory     = "category"
	fieldType         = "type"
	fieldCompound     = "compound"
	fieldContact      = "contactName"
	fieldTotalPrice   = "totalPrice"
	fieldDownPayment  = "downPayment"
	fieldBuiltUpArea  = "builtUpArea"
	fieldLandArea     = "landArea"
	fieldBedrooms     = "bedrooms"
	fieldBathrooms    = "bathrooms"
	fieldFloors       = "floors"
	fieldFurnished    = "furnished"
	fieldInCompound   = "insideCompound"
	fieldDeliveryDate = "deliveryDate"
	fieldPhotos       = "photos"
	fieldVideos       = "videos"
)

// Count bounds for small integer fields. Values outside are clamped, not
// rejected; the source occasionally carries garbage like "999" bathrooms.
const (
	maxRoomCount  = 100
	maxFloorCount = 200
)

// codeSuffixLen is how many trailing characters of the external id feed a
// synthesized natural code. Fixed so reruns regenerate the same code.
const codeSuffixLen = 8

// Migrator moves batches of source records into the properties table.
type Migrator struct {
	store    PropertyStore
	resolver *Resolver
	log      *slog.Logger
	cfg      *Config
}

// NewMigrator creates a Migrator.
func NewMigrator(store PropertyStore, resolver *Resolver, logger *slog.Logger, cfg *Config) *Migrator {
	return &Migrator{
		store:    store,
		resolver: resolver,
		log:      logger.With("component", "migrator"),
		cfg:      cfg,
	}
}

// Migrate windows the records into fixed-size batches and upserts them
// concurrently. A record that fails assembly is recorded and skipped; a
// batch whose upsert fails marks all its rows errored. Neither stops the
// run. Cancellation stops scheduling new batches; in-flight batches finish.
func (m *Migrator) Migrate(ctx context.Context, records []domain.SourceRecord) PhaseResult {
	start := time.Now()

	var (
		mu    sync.Mutex
		total PhaseResult
		g     errgroup.Group
	)
	g.SetLimit(m.cfg.Concurrency)

	// Cancellation gates scheduling only. A batch that already started
	// runs to completion on a detached context so its upsert is never
	// aborted mid-statement, leaving half-written batches behind.
	batchCtx := context.WithoutCancel(ctx)

	for offset := 0; offset < len(records); offset += m.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(offset+m.cfg.BatchSize, len(records))
		batch := records[offset:end]

		g.Go(func() error {
			res := m.migrateBatch(batchCtx, batch)
			mu.Lock()
			total.merge(res, m.cfg.ErrorSampleSize)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	total.Duration = time.Since(start)
	total.Err = ctx.Err()
	m.log.InfoContext(ctx, "primary migration finished",
		slog.Int("attempted", total.Attempted),
		slog.Int("succeeded", total.Succeeded),
		slog.Int("skipped", total.Skipped),
		slog.Int("errored", total.Errored),
		slog.Duration("took", total.Duration))
	return total
}

func (m *Migrator) migrateBatch(ctx context.Context, batch []domain.SourceRecord) PhaseResult {
	var res PhaseResult
	props := make([]domain.Property, 0, len(batch))

	for _, rec := range batch {
		res.Attempted++

		if rec.ExternalID() == "" {
			// Without an id the row has no idempotency key and would
			// duplicate on every rerun.
			res.Skipped++
			continue
		}

		prop, err := m.buildProperty(ctx, rec)
		if err != nil {
			res.recordError(rec.ExternalID(), err.Error(), m.cfg.ErrorSampleSize)
			continue
		}
		props = append(props, prop)
	}

	if len(props) == 0 {
		return res
	}

	n, err := m.store.BulkUpsert(ctx, props)
	if err != nil {
		// The store aborts the whole batch on failure, so every row in
		// it is errored together.
		m.log.WarnContext(ctx, "batch upsert failed",
			slog.Int("size", len(props)), slog.String("error", err.Error()))
		res.Errored += len(props)
		if len(res.Errors) < m.cfg.ErrorSampleSize {
			res.Errors = append(res.Errors, domain.RecordError{
				ExternalID: props[0].ExternalID,
				Message:    fmt.Sprintf("batch of %d: %v", len(props), err),
			})
		}
		return res
	}
	res.Succeeded += n
	return res
}

// buildProperty assembles one candidate row. Unexpected shapes degrade to
// null fields; only a failure the row cannot survive returns an error.
func (m *Migrator) buildProperty(ctx context.Context, rec domain.SourceRecord) (prop domain.Property, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assemble: %v", r)
		}
	}()

	externalID := rec.ExternalID()
	code := rec.Str(fieldRefNumber)
	if code == "" {
		code = m.synthesizeCode(externalID)
	}
	title := rec.Str(fieldTitle)
	if title == "" {
		title = code
	}

	prop = domain.Property{
		ExternalID:  externalID,
		NaturalCode: code,
		Title:       title,
		Description: optionalStr(rec.Str(fieldDescription)),

		AreaID:     m.resolver.ResolveArea(ctx, rec.Str(fieldArea)),
		TypeID:     m.resolver.ResolveType(ctx, rec.Str(fieldType), rec.Str(fieldCategory)),
		CompoundID: m.resolver.Resolve(ctx, domain.KindCompound, rec.Str(fieldCompound)),
		ContactID:  m.resolver.Resolve(ctx, domain.KindContact, rec.Str(fieldContact)),

		Price:        domain.ParseDecimal(rec.Raw(fieldTotalPrice)),
		DownPayment:  domain.ParseDecimal(rec.Raw(fieldDownPayment)),
		BuiltArea:    domain.ParseDecimal(rec.Raw(fieldBuiltUpArea)),
		LandArea:     domain.ParseDecimal(rec.Raw(fieldLandArea)),
		Bedrooms:     domain.ParseInteger(rec.Raw(fieldBedrooms), 0, maxRoomCount),
		Bathrooms:    domain.ParseInteger(rec.Raw(fieldBathrooms), 0, maxRoomCount),
		Floors:       domain.ParseInteger(rec.Raw(fieldFloors), 0, maxFloorCount),
		IsFurnished:  domain.ParseBoolean(rec.Raw(fieldFurnished)),
		IsInCompound: domain.ParseBoolean(rec.Raw(fieldInCompound)),

		DeliveryDate:   domain.ParseTimestamp(rec.Raw(fieldDeliveryDate)),
		SourceModified: rec.LastModified(),
	}
	return prop, nil
}

// synthesizeCode derives a stable human-readable code from the external id
// when the source record carries none.
func (m *Migrator) synthesizeCode(externalID string) string {
	suffix := externalID
	if len(suffix) > codeSuffixLen {
		suffix = suffix[len(suffix)-codeSuffixLen:]
	}
	return m.cfg.CodePrefix + "-" + strings.ToUpper(suffix)
}

func optionalStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
