package domain

import "time"

// DimensionKind identifies one of the inferred lookup tables.
type DimensionKind string

const (
	KindRegion       DimensionKind = "region"
	KindArea         DimensionKind = "area"
	KindCategory     DimensionKind = "category"
	KindPropertyType DimensionKind = "property_type"
	KindCompound     DimensionKind = "compound"
	KindContact      DimensionKind = "contact"
)

// AllDimensionKinds lists every kind in parent-before-child order.
var AllDimensionKinds = []DimensionKind{
	KindRegion, KindArea, KindCategory, KindPropertyType, KindCompound, KindContact,
}

// Table returns the relational table backing the kind.
func (k DimensionKind) Table() string {
	switch k {
	case KindRegion:
		return "regions"
	case KindArea:
		return "areas"
	case KindCategory:
		return "categories"
	case KindPropertyType:
		return "property_types"
	case KindCompound:
		return "compounds"
	case KindContact:
		return "contacts"
	}
	return string(k)
}

// ParentFK returns the foreign-key column pointing at the parent kind,
// or empty when the kind has no parent. Areas roll up into regions and
// property types into categories; the rest are flat.
func (k DimensionKind) ParentFK() string {
	switch k {
	case KindArea:
		return "region_id"
	case KindPropertyType:
		return "category_id"
	}
	return ""
}

// Dimension is one normalized, deduplicated lookup row. NaturalKey is the
// canonicalized form of the free text it was inferred from and is unique
// within the kind.
type Dimension struct {
	ID         int64
	Kind       DimensionKind
	Name       string
	NaturalKey string
	ParentID   *int64
	CreatedAt  time.Time
}
