package downloads

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/content"
)

var (
	ErrDetached   = errors.New("download detached")
	ErrNoSuchFile = errors.New("no such file")
)

// File adapts a client file snapshot to content.FileInfo.
type File struct {
	config.File
}

func (f File) Index() int        { return f.File.Index }
func (f File) Name() string      { return f.File.Name }
func (f File) Length() int64     { return f.File.Size }
func (f File) Downloaded() int64 { return f.File.Downloaded }
func (f File) IsDeleted() bool   { return f.File.Deleted }
func (f File) IsSkipped() bool   { return f.File.Skipped }

type attributeSub struct {
	attr content.Attribute
	fn   content.AttributeListener
}

// Download is a download held by a Manager. Listeners are invoked in the
// goroutine that performed the write, after the write is visible.
type Download struct {
	hash content.Hash

	mu        sync.RWMutex
	name      string
	created   time.Time
	category  string
	eta       int64
	files     []*File
	detached  bool
	listeners map[uint64]attributeSub
	nextID    uint64
}

func newDownload(hash content.Hash, name string, created time.Time) *Download {
	return &Download{
		hash:      hash,
		name:      name,
		created:   created,
		eta:       -1,
		listeners: make(map[uint64]attributeSub),
	}
}

func (d *Download) Hash() content.Hash {
	return d.hash
}

func (d *Download) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

func (d *Download) CreationTime() (time.Time, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.detached {
		return time.Time{}, ErrDetached
	}
	return d.created, nil
}

func (d *Download) Category() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.detached {
		return "", ErrDetached
	}
	return d.category, nil
}

func (d *Download) File(index int) (content.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.detached {
		return nil, ErrDetached
	}
	if index < 0 || index >= len(d.files) || d.files[index] == nil {
		return nil, errors.Wrapf(ErrNoSuchFile, "index %d of %d", index, len(d.files))
	}
	return *d.files[index], nil
}

func (d *Download) FileCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.files)
}

func (d *Download) ETA() (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.detached {
		return 0, ErrDetached
	}
	return d.eta, nil
}

func (d *Download) AddAttributeListener(attr content.Attribute, fn content.AttributeListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[id] = attributeSub{attr: attr, fn: fn}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

func (d *Download) listenerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// SetCategory writes the category and, when it changed, notifies category
// listeners. It reports whether the value changed.
func (d *Download) SetCategory(category string) bool {
	d.mu.Lock()
	if d.detached || d.category == category {
		d.mu.Unlock()
		return false
	}
	d.category = category
	fns := d.listenersFor(content.AttributeCategory)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(d, content.AttributeCategory)
	}
	return true
}

func (d *Download) SetName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
}

func (d *Download) SetETA(eta int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eta = eta
}

// SetFiles replaces the file list. Files are stored by their index, so a
// sparse list leaves gaps that report ErrNoSuchFile. Negative indices are
// dropped and a repeated index keeps the last entry.
func (d *Download) SetFiles(files []config.File) {
	size := 0
	for _, f := range files {
		if f.Index >= size {
			size = f.Index + 1
		}
	}

	stored := make([]*File, size)
	for _, f := range files {
		if f.Index < 0 {
			continue
		}
		stored[f.Index] = &File{File: f}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = stored
}

// listenersFor must be called with d.mu held.
func (d *Download) listenersFor(attr content.Attribute) []content.AttributeListener {
	fns := make([]content.AttributeListener, 0, len(d.listeners))
	for _, sub := range d.listeners {
		if sub.attr == attr {
			fns = append(fns, sub.fn)
		}
	}
	return fns
}

func (d *Download) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detached = true
}
