package content

import (
	"time"
)

// Attribute is a tracked attribute of a download.
type Attribute int

const (
	AttributeCategory Attribute = iota + 1
)

// TagType is a tag classification.
type TagType int

const (
	TagTypeDownloadManual TagType = iota + 1
	TagTypeDownloadAuto
)

func (t TagType) String() string {
	switch t {
	case TagTypeDownloadManual:
		return "manual"
	case TagTypeDownloadAuto:
		return "auto"
	}
	return "unknown"
}

// ParseTagType accepts the names produced by TagType.String.
func ParseTagType(s string) (TagType, bool) {
	switch s {
	case "manual", "":
		return TagTypeDownloadManual, true
	case "auto":
		return TagTypeDownloadAuto, true
	}
	return 0, false
}

type FileInfo interface {
	Index() int
	Name() string
	Length() int64
	Downloaded() int64
	IsDeleted() bool
	IsSkipped() bool
}

// AttributeListener is invoked after an attribute of a download was written.
type AttributeListener func(d Download, attr Attribute)

// Download is a live download owned by the torrent engine. Accessors may fail
// once the download is detached from its manager.
type Download interface {
	Hash() Hash
	Name() string
	CreationTime() (time.Time, error)
	Category() (string, error)
	File(index int) (FileInfo, error)
	// ETA in seconds; negative when unavailable.
	ETA() (int64, error)
	AddAttributeListener(attr Attribute, fn AttributeListener) (remove func())
}

type DownloadManager interface {
	Download(hash Hash) (Download, bool)
}

// RemovalNotifier is implemented by download managers that report removals.
type RemovalNotifier interface {
	AddRemovalListener(fn func(hash Hash)) (remove func())
}

type Tag interface {
	Name() string
	Type() TagType
}

// TagEvent reports a download being added to or removed from a tag.
type TagEvent struct {
	Tag      Tag
	Download Download
	Added    bool
}

type TagListener func(ev TagEvent)

type TagManager interface {
	TagsFor(d Download) []Tag
	// AddTagListener subscribes to membership changes of d for tags of tagType.
	AddTagListener(d Download, tagType TagType, fn TagListener) (remove func())
}
