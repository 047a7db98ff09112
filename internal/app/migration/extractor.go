package migration

import (
	"context"

	"github.com/propflow/migrator/internal/domain"
)

// Extractor pages through the source collection, exposing it as a lazy,
// finite, restartable sequence of records. Each call to Extract restarts
// from the first page; resuming a partial run is not its job — the
// migrator's idempotent upsert covers that.
type Extractor struct {
	fetcher  PageFetcher
	pageSize int
}

// NewExtractor creates an Extractor reading pages of pageSize records.
func NewExtractor(fetcher PageFetcher, pageSize int) *Extractor {
	return &Extractor{fetcher: fetcher, pageSize: pageSize}
}

// Extract returns a fresh iterator positioned before the first record.
func (e *Extractor) Extract() *RecordIterator {
	return &RecordIterator{
		fetcher:  e.fetcher,
		pageSize: e.pageSize,
	}
}

// RecordIterator pulls records one at a time, fetching pages on demand.
// Not safe for concurrent use; callers fan work out after pulling.
type RecordIterator struct {
	fetcher  PageFetcher
	pageSize int

	buf    []domain.SourceRecord
	pos    int
	offset int
	total  int
	done   bool
}

// Next returns the next record. ok is false when the sequence is exhausted
// or err is non-nil. The sequence ends when a page comes back shorter than
// the requested page size — the source's reported total is only advisory
// and is never the sole termination condition.
func (it *RecordIterator) Next(ctx context.Context) (rec domain.SourceRecord, ok bool, err error) {
	if it.pos < len(it.buf) {
		rec = it.buf[it.pos]
		it.pos++
		return rec, true, nil
	}
	if it.done {
		return domain.SourceRecord{}, false, nil
	}

	page, err := it.fetcher.FetchPage(ctx, it.offset, it.pageSize)
	if err != nil {
		it.done = true
		return domain.SourceRecord{}, false, err
	}

	it.total = page.Total
	it.offset += len(page.Records)
	it.buf = page.Records
	it.pos = 0
	// Short page ends the sequence. HasMore and Total are advisory only:
	// some deployments omit them, so neither may end the sequence alone.
	if len(page.Records) < it.pageSize {
		it.done = true
	}

	if len(it.buf) == 0 {
		return domain.SourceRecord{}, false, nil
	}

	rec = it.buf[it.pos]
	it.pos++
	return rec, true, nil
}

// Total returns the source-reported collection size seen so far.
// Approximate; used only for the report's expected count.
func (it *RecordIterator) Total() int {
	return it.total
}

// Collect drains the iterator into a slice. The pipeline runs the later
// phases over the same snapshot, so extraction materializes the sequence
// once up front.
func (it *RecordIterator) Collect(ctx context.Context) ([]domain.SourceRecord, error) {
	var records []domain.SourceRecord
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return records, err
		}
		if !ok {
			return records, nil
		}
		records = append(records, rec)
	}
}
