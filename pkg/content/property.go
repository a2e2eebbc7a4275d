package content

import (
	"fmt"
	"math"
)

// Property names a derived attribute of a File.
type Property int

const (
	PropertyCreationDate Property = iota + 1
	PropertyCategories
	PropertyTags
	PropertyPercentDone
	PropertyETA
)

func (p Property) String() string {
	switch p {
	case PropertyCreationDate:
		return "date"
	case PropertyCategories:
		return "categories"
	case PropertyTags:
		return "tags"
	case PropertyPercentDone:
		return "percent_done"
	case PropertyETA:
		return "eta"
	}

	return fmt.Sprintf("property(%d)", int(p))
}

// ChangeKind tells listeners which property of a File may have changed.
type ChangeKind int

const (
	CategoryChanged ChangeKind = iota + 1
	TagsChanged
)

func (k ChangeKind) String() string {
	switch k {
	case CategoryChanged:
		return "category_changed"
	case TagsChanged:
		return "tags_changed"
	}

	return fmt.Sprintf("change(%d)", int(k))
}

// Property reports which property the change refers to.
func (k ChangeKind) Property() Property {
	if k == TagsChanged {
		return PropertyTags
	}
	return PropertyCategories
}

const (
	// PercentDoneFull is complete, in per-mille.
	PercentDoneFull int64 = 1000

	// UnknownETA means the ETA cannot be determined.
	UnknownETA int64 = math.MaxInt64

	// DefaultUncategorized is the category name clients report for "no category".
	DefaultUncategorized = "Categories.uncategorized"
)
