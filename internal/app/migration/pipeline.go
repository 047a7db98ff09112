package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propflow/migrator/internal/domain"
)

// maxStoredSuccessRatio is the largest value the migration_runs
// success_ratio NUMERIC(5,4) column can hold.
const maxStoredSuccessRatio = 9.9999

// Pipeline orchestrates the migration run: extract, dimensions, primary,
// media, validate, each phase starting only after the previous finished.
// Per-record and per-batch failures are tolerated and reported; only a
// setup failure (the source unreachable before any record arrived) aborts
// the run.
type Pipeline struct {
	extractor  *Extractor
	resolver   *Resolver
	migrator   *Migrator
	linker     *Linker
	dimensions DimensionStore
	properties PropertyStore
	media      MediaStore
	runs       RunStore

	log *slog.Logger
	cfg *Config

	sourceURL string
}

// NewPipeline wires the phase components together.
func NewPipeline(
	extractor *Extractor,
	resolver *Resolver,
	migrator *Migrator,
	linker *Linker,
	dimensions DimensionStore,
	properties PropertyStore,
	media MediaStore,
	runs RunStore,
	logger *slog.Logger,
	cfg *Config,
	sourceURL string,
) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		resolver:   resolver,
		migrator:   migrator,
		linker:     linker,
		dimensions: dimensions,
		properties: properties,
		media:      media,
		runs:       runs,
		log:        logger.With("component", "pipeline"),
		cfg:        cfg,
		sourceURL:  sourceURL,
	}
}

// Run executes the pipeline and returns the report. If phases is non-empty,
// only the listed phases run; extraction always runs because every later
// phase consumes its snapshot. Cancellation yields a partial report, not
// an error: whatever landed before the cancel stays landed.
func (p *Pipeline) Run(ctx context.Context, phases []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Phases:    make(map[string]PhaseResult, len(allPhases)),
	}
	p.log.InfoContext(ctx, "migration run starting",
		slog.String("run_id", report.RunID.String()),
		slog.Bool("dry_run", p.cfg.DryRun))

	if !p.cfg.DryRun {
		run := domain.MigrationRun{
			ID:        report.RunID,
			SourceURL: p.sourceURL,
			StartedAt: report.StartedAt,
		}
		if err := p.runs.Start(ctx, run); err != nil {
			report.Fatal = fmt.Errorf("record run start: %w", err)
			report.FinishedAt = time.Now()
			return report, report.Fatal
		}
	}

	records, fatal := p.runExtract(ctx, report)
	if fatal != nil {
		report.Fatal = fatal
		report.FinishedAt = time.Now()
		p.finishRun(ctx, report)
		return report, fatal
	}

	toRun := p.selectPhases(phases)
	for _, phase := range toRun {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		p.log.InfoContext(ctx, "starting phase", slog.String("phase", phase))

		var result PhaseResult
		switch phase {
		case PhaseDimensions:
			result = p.runDimensions(ctx, records)
		case PhasePrimary:
			result = p.runPrimary(ctx, records)
		case PhaseMedia:
			result = p.runMedia(ctx, records)
		case PhaseValidate:
			result = p.runValidate(ctx, report)
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		report.Phases[phase] = result

		if result.Err != nil {
			p.log.WarnContext(ctx, "phase failed",
				slog.String("phase", phase),
				slog.String("error", result.Err.Error()),
				slog.Duration("duration", result.Duration))
		} else {
			p.log.InfoContext(ctx, "phase completed",
				slog.String("phase", phase),
				slog.Int("attempted", result.Attempted),
				slog.Int("succeeded", result.Succeeded),
				slog.Int("skipped", result.Skipped),
				slog.Int("errored", result.Errored),
				slog.Duration("duration", result.Duration))
		}
	}

	report.FinishedAt = time.Now()
	p.finishRun(ctx, report)

	p.log.InfoContext(ctx, "migration run finished",
		slog.String("run_id", report.RunID.String()),
		slog.Int("expected", report.ExpectedTotal),
		slog.Float64("success_ratio", report.SuccessRatio),
		slog.Bool("has_errors", report.HasErrors()),
		slog.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// selectPhases filters the canonical order down to the requested set.
// Extract is excluded here, it always runs first.
func (p *Pipeline) selectPhases(phases []string) []string {
	all := allPhases[1:]
	if len(phases) == 0 {
		return all
	}
	requested := make(map[string]bool, len(phases))
	for _, ph := range phases {
		requested[ph] = true
	}
	var filtered []string
	for _, ph := range all {
		if requested[ph] {
			filtered = append(filtered, ph)
		}
	}
	return filtered
}

// runExtract materializes the source collection. The later phases all read
// this one snapshot, so the source is paged through exactly once per run.
// Returns a fatal error only when nothing at all could be fetched.
func (p *Pipeline) runExtract(ctx context.Context, report *Report) ([]domain.SourceRecord, error) {
	start := time.Now()
	it := p.extractor.Extract()
	records, err := it.Collect(ctx)

	result := PhaseResult{
		Attempted: len(records),
		Succeeded: len(records),
		Duration:  time.Since(start),
	}
	report.ExpectedTotal = it.Total()
	if report.ExpectedTotal == 0 {
		report.ExpectedTotal = len(records)
	}

	if err != nil {
		if len(records) == 0 {
			result.Err = err
			report.Phases[PhaseExtract] = result
			return nil, fmt.Errorf("source unreachable: %w", err)
		}
		// Partial extraction: keep what arrived, the idempotent upsert
		// lets a rerun pick up the rest.
		result.Err = err
		p.log.WarnContext(ctx, "extraction ended early",
			slog.Int("records", len(records)), slog.String("error", err.Error()))
	}

	report.Phases[PhaseExtract] = result
	p.log.InfoContext(ctx, "extraction finished",
		slog.Int("records", len(records)),
		slog.Int("reported_total", it.Total()),
		slog.Duration("duration", result.Duration))
	return records, nil
}

// runDimensions pre-resolves every dimension reference so the concurrent
// primary phase mostly hits warm caches. Failures degrade to missing rows
// and surface later as null foreign keys, so the phase itself only counts.
func (p *Pipeline) runDimensions(ctx context.Context, records []domain.SourceRecord) PhaseResult {
	var res PhaseResult
	if p.cfg.DryRun {
		res.Skipped = len(records)
		return res
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}
		res.Attempted++
		p.resolver.ResolveArea(ctx, rec.Str(fieldArea))
		p.resolver.ResolveType(ctx, rec.Str(fieldType), rec.Str(fieldCategory))
		p.resolver.Resolve(ctx, domain.KindCompound, rec.Str(fieldCompound))
		p.resolver.Resolve(ctx, domain.KindContact, rec.Str(fieldContact))
		res.Succeeded++
	}

	for _, kind := range domain.AllDimensionKinds {
		n, err := p.dimensions.CountByKind(ctx, kind)
		if err != nil {
			continue
		}
		p.log.InfoContext(ctx, "dimension table populated",
			slog.String("kind", string(kind)), slog.Int64("rows", n))
	}
	if unmatched := p.resolver.UnmatchedAreas(); unmatched > 0 {
		p.log.WarnContext(ctx, "areas without a region match fell back to the default region",
			slog.Int64("count", unmatched), slog.String("default", p.cfg.DefaultRegion))
	}
	return res
}

func (p *Pipeline) runPrimary(ctx context.Context, records []domain.SourceRecord) PhaseResult {
	if p.cfg.DryRun {
		return PhaseResult{Skipped: len(records)}
	}
	return p.migrator.Migrate(ctx, records)
}

func (p *Pipeline) runMedia(ctx context.Context, records []domain.SourceRecord) PhaseResult {
	if p.cfg.DryRun {
		return PhaseResult{Skipped: len(records)}
	}

	externalIDs := make([]string, 0, len(records))
	for _, rec := range records {
		if id := rec.ExternalID(); id != "" {
			externalIDs = append(externalIDs, id)
		}
	}
	ids, err := p.properties.GetIDsByExternalIDs(ctx, externalIDs)
	if err != nil {
		return PhaseResult{Err: fmt.Errorf("load id map: %w", err)}
	}
	return p.linker.LinkAll(ctx, records, ids)
}

// runValidate checks the migrated data without mutating it: row counts,
// null foreign keys, orphaned media, and a sampled parent-child join.
// Findings are reported, never rolled back.
func (p *Pipeline) runValidate(ctx context.Context, report *Report) PhaseResult {
	var res PhaseResult
	if p.cfg.DryRun {
		res.Skipped = 1
		return res
	}

	propCount, err := p.properties.Count(ctx)
	if err != nil {
		res.Err = fmt.Errorf("count properties: %w", err)
		return res
	}
	res.Attempted++

	if report.ExpectedTotal > 0 {
		report.SuccessRatio = float64(propCount) / float64(report.ExpectedTotal)
	}

	unresolved, err := p.properties.CountUnresolvedAreas(ctx)
	if err != nil {
		res.Err = fmt.Errorf("count unresolved areas: %w", err)
		return res
	}
	if unresolved > 0 {
		p.log.WarnContext(ctx, "properties with unresolved area",
			slog.Int64("count", unresolved))
	}

	images, err := p.media.CountImages(ctx)
	if err != nil {
		res.Err = fmt.Errorf("count images: %w", err)
		return res
	}
	videos, err := p.media.CountVideos(ctx)
	if err != nil {
		res.Err = fmt.Errorf("count videos: %w", err)
		return res
	}
	orphans, err := p.media.CountOrphans(ctx)
	if err != nil {
		res.Err = fmt.Errorf("count orphans: %w", err)
		return res
	}
	if orphans > 0 {
		res.recordError("", fmt.Sprintf("%d media rows without a parent", orphans), p.cfg.ErrorSampleSize)
	}

	joined, err := p.properties.SampleJoin(ctx, p.cfg.SampleJoinLimit)
	if err != nil {
		res.Err = fmt.Errorf("sample join: %w", err)
		return res
	}

	res.Succeeded++
	p.log.InfoContext(ctx, "validation finished",
		slog.Int64("properties", propCount),
		slog.Int64("images", images),
		slog.Int64("videos", videos),
		slog.Int64("orphaned_media", orphans),
		slog.Int64("null_area_fk", unresolved),
		slog.Int("sample_join_rows", joined),
		slog.Float64("success_ratio", report.SuccessRatio))
	return res
}

// finishRun closes the audit row. Best effort: a run that migrated data
// but could not write its own bookkeeping is still a successful run.
func (p *Pipeline) finishRun(ctx context.Context, report *Report) {
	if p.cfg.DryRun {
		return
	}

	attempted, succeeded, skipped, errored := report.Totals()
	now := time.Now()
	run := domain.MigrationRun{
		ID:            report.RunID,
		SourceURL:     p.sourceURL,
		StartedAt:     report.StartedAt,
		FinishedAt:    &now,
		ExpectedTotal: report.ExpectedTotal,
		Attempted:     attempted,
		Succeeded:     succeeded,
		Skipped:       skipped,
		Errored:       errored,
	}
	if report.SuccessRatio > 0 {
		// The audit column is NUMERIC(5,4); reruns over an already
		// populated table can push the ratio past its range, which
		// would reject the whole row. Store the cap instead.
		ratio := min(report.SuccessRatio, maxStoredSuccessRatio)
		run.SuccessRatio = &ratio
	}
	if report.Fatal != nil {
		msg := report.Fatal.Error()
		run.Fatal = &msg
	}

	if err := p.runs.Finish(ctx, run); err != nil {
		p.log.WarnContext(ctx, "could not finalize run row",
			slog.String("run_id", report.RunID.String()),
			slog.String("error", err.Error()))
	}
}
