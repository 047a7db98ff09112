package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property is the migrated primary entity. ExternalID copies the source
// record's id and is the idempotency key: re-running the migration against
// the same external id updates the existing row, never duplicates it.
// Dimension foreign keys are nullable — an unresolved reference degrades
// to NULL instead of blocking the record.
type Property struct {
	ID          int64
	ExternalID  string
	NaturalCode string
	Title       string
	Description *string

	AreaID     *int64
	TypeID     *int64
	CompoundID *int64
	ContactID  *int64

	Price        *decimal.Decimal
	DownPayment  *decimal.Decimal
	BuiltArea    *decimal.Decimal
	LandArea     *decimal.Decimal
	Bedrooms     *int
	Bathrooms    *int
	Floors       *int
	IsFurnished  bool
	IsInCompound bool

	DeliveryDate   time.Time
	SourceModified time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MediaKind discriminates how a media asset is hosted.
type MediaKind string

const (
	MediaDirect  MediaKind = "direct"
	MediaYouTube MediaKind = "youtube"
	MediaVimeo   MediaKind = "vimeo"
)

// PropertyImage is a child row owned by exactly one property, keyed by
// (PropertyID, SortOrder). Index 0 is always the cover image.
type PropertyImage struct {
	ID         int64
	PropertyID int64
	URL        string
	SortOrder  int
	IsPrimary  bool
	Width      *int
	Height     *int
	MimeType   *string
}

// PropertyVideo is a child row owned by exactly one property, keyed by
// (PropertyID, SortOrder).
type PropertyVideo struct {
	ID         int64
	PropertyID int64
	URL        string
	SortOrder  int
	Kind       MediaKind
}
