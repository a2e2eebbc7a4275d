package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrComputation     = errors.New("property computation failed")
)

// File is the view of one file of a download. It holds no state of its own:
// every property is read from the download when asked for.
type File struct {
	download Download
	index    int
	dir      *Directory
}

func (f *File) Hash() Hash {
	return f.download.Hash()
}

func (f *File) Index() int {
	return f.index
}

func (f *File) Download() Download {
	return f.download
}

func (f *File) Info() (FileInfo, error) {
	return f.download.File(f.index)
}

func (f *File) String() string {
	return fmt.Sprintf("%s/%d", f.Hash().Short(), f.index)
}

// Lookup computes p. Collaborator failures, including panics, come back
// wrapped in ErrComputation.
func (f *File) Lookup(p Property) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Wrapf(ErrComputation, "%s: panic: %v", p, r)
		}
	}()

	switch p {
	case PropertyCreationDate:
		v, err = f.creationDate()
	case PropertyCategories:
		v, err = f.categories()
	case PropertyTags:
		v, err = f.tags()
	case PropertyPercentDone:
		v, err = f.percentDone()
	case PropertyETA:
		v, err = f.eta()
	default:
		return nil, errors.Wrapf(ErrUnknownProperty, "%s", p)
	}

	if err != nil {
		return nil, errors.Wrapf(ErrComputation, "%s: %v", p, err)
	}

	return v, nil
}

// Property is Lookup with failures flattened to nil.
func (f *File) Property(p Property) any {
	v, err := f.Lookup(p)
	if err != nil {
		f.dir.log.Tracef("[%s] %v", f, err)
		return nil
	}

	return v
}

func (f *File) CreationDate() time.Time {
	if v, ok := f.Property(PropertyCreationDate).(time.Time); ok {
		return v
	}
	return time.Time{}
}

func (f *File) Categories() []string {
	if v, ok := f.Property(PropertyCategories).([]string); ok {
		return v
	}
	return []string{}
}

func (f *File) Tags() []string {
	if v, ok := f.Property(PropertyTags).([]string); ok {
		return v
	}
	return []string{}
}

func (f *File) PercentDone() int64 {
	if v, ok := f.Property(PropertyPercentDone).(int64); ok {
		return v
	}
	return 0
}

func (f *File) ETA() int64 {
	if v, ok := f.Property(PropertyETA).(int64); ok {
		return v
	}
	return UnknownETA
}

func (f *File) creationDate() (time.Time, error) {
	return f.download.CreationTime()
}

func (f *File) categories() ([]string, error) {
	cat, err := f.download.Category()
	if err != nil {
		return nil, err
	}

	if cat == "" || strings.EqualFold(cat, f.dir.uncategorized) {
		return []string{}, nil
	}

	return []string{cat}, nil
}

func (f *File) tags() ([]string, error) {
	if f.dir.tags == nil {
		return []string{}, nil
	}

	// the tag manager can report the same name more than once
	names := strset.New()
	for _, t := range f.dir.tags.TagsFor(f.download) {
		if t.Type() == f.dir.tagType {
			names.Add(t.Name())
		}
	}

	return names.List(), nil
}

func (f *File) percentDone() (int64, error) {
	info, err := f.Info()
	if err != nil {
		return 0, err
	}

	size := info.Length()
	if size == 0 {
		return PercentDoneFull, nil
	}

	return PercentDoneFull * info.Downloaded() / size, nil
}

func (f *File) eta() (int64, error) {
	info, err := f.Info()
	if err != nil {
		return 0, err
	}

	if info.Downloaded() == info.Length() {
		return 0, nil
	}

	if info.IsDeleted() || info.IsSkipped() {
		return UnknownETA, nil
	}

	eta, err := f.download.ETA()
	if err != nil {
		return 0, err
	}

	if eta < 0 {
		return UnknownETA, nil
	}

	return eta, nil
}

// Snapshot is every property of a File read at one moment.
type Snapshot struct {
	Hash         Hash
	Index        int
	Download     string
	Name         string
	Length       int64
	CreationDate time.Time
	Categories   []string
	Tags         []string
	PercentDone  int64
	ETA          int64
}

func (f *File) Snapshot() Snapshot {
	s := Snapshot{
		Hash:         f.Hash(),
		Index:        f.index,
		Download:     f.download.Name(),
		CreationDate: f.CreationDate(),
		Categories:   f.Categories(),
		Tags:         f.Tags(),
		PercentDone:  f.PercentDone(),
		ETA:          f.ETA(),
	}

	if info, err := f.Info(); err == nil {
		s.Name = info.Name()
		s.Length = info.Length()
	}

	return s
}
