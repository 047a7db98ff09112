package migration

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/propflow/migrator/internal/domain"
)

// Linker runs the media pass: for each migrated property it extracts the
// embedded image and video arrays from the source record and replaces the
// child rows. It depends on the external-id → surrogate-id map the primary
// phase produced; records that never made it into the store are skipped.
type Linker struct {
	media MediaStore
	log   *slog.Logger
	cfg   *Config
}

// NewLinker creates a Linker.
func NewLinker(media MediaStore, logger *slog.Logger, cfg *Config) *Linker {
	return &Linker{
		media: media,
		log:   logger.With("component", "linker"),
		cfg:   cfg,
	}
}

// LinkAll processes every record that has a surrogate id. Absence of media
// is not an error; a store failure marks that one parent errored and the
// pass continues.
func (l *Linker) LinkAll(ctx context.Context, records []domain.SourceRecord, ids map[string]int64) PhaseResult {
	start := time.Now()
	var res PhaseResult

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}

		propertyID, ok := ids[rec.ExternalID()]
		if !ok {
			// The primary phase never landed this record.
			res.Skipped++
			continue
		}
		res.Attempted++

		images, videos, err := l.LinkMedia(ctx, propertyID, rec.Raw(fieldPhotos), rec.Raw(fieldVideos))
		if err != nil {
			res.recordError(rec.ExternalID(), err.Error(), l.cfg.ErrorSampleSize)
			continue
		}
		res.Succeeded++
		if images+videos > 0 {
			l.log.DebugContext(ctx, "media linked",
				slog.String("external_id", rec.ExternalID()),
				slog.Int("images", images), slog.Int("videos", videos))
		}
	}

	res.Duration = time.Since(start)
	res.Err = ctx.Err()
	l.log.InfoContext(ctx, "media pass finished",
		slog.Int("attempted", res.Attempted),
		slog.Int("succeeded", res.Succeeded),
		slog.Int("errored", res.Errored),
		slog.Duration("took", res.Duration))
	return res
}

// LinkMedia replaces one property's media children from the raw embedded
// arrays and returns how many image and video rows were written. An empty
// or malformed array means zero rows, which also trims any rows left over
// from a previous run.
func (l *Linker) LinkMedia(ctx context.Context, propertyID int64, rawImages, rawVideos any) (int, int, error) {
	images := buildImages(propertyID, domain.ParseEmbeddedArray(rawImages))
	videos := buildVideos(propertyID, domain.ParseEmbeddedArray(rawVideos))

	if err := l.media.ReplaceForProperty(ctx, propertyID, images, videos); err != nil {
		return 0, 0, err
	}
	return len(images), len(videos), nil
}

// buildImages maps embedded items to image rows in source order. Items are
// either bare URL strings or objects carrying url plus optional size/mime
// metadata; items without a URL are dropped without disturbing the order
// of the rest.
func buildImages(propertyID int64, items []any) []domain.PropertyImage {
	if len(items) == 0 {
		return nil
	}
	images := make([]domain.PropertyImage, 0, len(items))
	for _, item := range items {
		url, meta := mediaURL(item)
		if url == "" {
			continue
		}
		img := domain.PropertyImage{
			PropertyID: propertyID,
			URL:        url,
			SortOrder:  len(images),
			IsPrimary:  len(images) == 0,
		}
		if meta != nil {
			img.Width = domain.ParseInteger(meta["width"], 1, 100_000)
			img.Height = domain.ParseInteger(meta["height"], 1, 100_000)
			if mime, _ := meta["mime"].(string); mime != "" {
				img.MimeType = &mime
			}
		}
		images = append(images, img)
	}
	return images
}

func buildVideos(propertyID int64, items []any) []domain.PropertyVideo {
	if len(items) == 0 {
		return nil
	}
	videos := make([]domain.PropertyVideo, 0, len(items))
	for _, item := range items {
		url, _ := mediaURL(item)
		if url == "" {
			continue
		}
		videos = append(videos, domain.PropertyVideo{
			PropertyID: propertyID,
			URL:        url,
			SortOrder:  len(videos),
			Kind:       videoKind(url),
		})
	}
	return videos
}

// mediaURL extracts the URL from an embedded media item and, for object
// items, returns the object for metadata reads.
func mediaURL(item any) (string, map[string]any) {
	switch t := item.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case map[string]any:
		for _, key := range []string{"url", "image", "src"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), t
			}
		}
	}
	return "", nil
}

// videoKind infers the hosting provider from the URL. Unknown hosts are
// treated as directly hosted files.
func videoKind(url string) domain.MediaKind {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return domain.MediaYouTube
	case strings.Contains(lower, "vimeo.com"):
		return domain.MediaVimeo
	default:
		return domain.MediaDirect
	}
}
