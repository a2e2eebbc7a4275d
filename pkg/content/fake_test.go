package content

import (
	"errors"
	"sync"
	"time"
)

var errDetached = errors.New("detached")

type fakeFile struct {
	index      int
	name       string
	length     int64
	downloaded int64
	deleted    bool
	skipped    bool
}

func (f fakeFile) Index() int        { return f.index }
func (f fakeFile) Name() string      { return f.name }
func (f fakeFile) Length() int64     { return f.length }
func (f fakeFile) Downloaded() int64 { return f.downloaded }
func (f fakeFile) IsDeleted() bool   { return f.deleted }
func (f fakeFile) IsSkipped() bool   { return f.skipped }

type fakeDownload struct {
	hash Hash

	mu        sync.Mutex
	created   time.Time
	category  string
	eta       int64
	files     []fakeFile
	detached  bool
	panicky   bool
	listeners map[int]AttributeListener
	nextID    int
}

func newFakeDownload(hash Hash, files ...fakeFile) *fakeDownload {
	return &fakeDownload{
		hash:      hash,
		created:   time.Unix(1700000000, 0),
		files:     files,
		listeners: map[int]AttributeListener{},
	}
}

func (d *fakeDownload) Hash() Hash   { return d.hash }
func (d *fakeDownload) Name() string { return "fake-" + d.hash.Short() }

func (d *fakeDownload) CreationTime() (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached {
		return time.Time{}, errDetached
	}
	return d.created, nil
}

func (d *fakeDownload) Category() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panicky {
		panic("mid-teardown")
	}
	if d.detached {
		return "", errDetached
	}
	return d.category, nil
}

func (d *fakeDownload) File(index int) (FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached {
		return nil, errDetached
	}
	if index < 0 || index >= len(d.files) {
		return nil, errors.New("no such file")
	}
	return d.files[index], nil
}

func (d *fakeDownload) ETA() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached {
		return 0, errDetached
	}
	return d.eta, nil
}

func (d *fakeDownload) AddAttributeListener(_ Attribute, fn AttributeListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

func (d *fakeDownload) setCategory(cat string) {
	d.mu.Lock()
	d.category = cat
	var fns []AttributeListener
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(d, AttributeCategory)
	}
}

func (d *fakeDownload) attributeListeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

type fakeManager struct {
	mu        sync.Mutex
	downloads map[Hash]*fakeDownload
	removed   []func(Hash)
}

func newFakeManager(downloads ...*fakeDownload) *fakeManager {
	m := &fakeManager{downloads: map[Hash]*fakeDownload{}}
	for _, d := range downloads {
		m.downloads[d.hash] = d
	}
	return m
}

func (m *fakeManager) Download(hash Hash) (Download, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.downloads[hash]
	if !ok {
		return nil, false
	}
	return d, true
}

func (m *fakeManager) add(d *fakeDownload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads[d.hash] = d
}

func (m *fakeManager) remove(hash Hash) {
	m.mu.Lock()
	delete(m.downloads, hash)
	fns := append([]func(Hash){}, m.removed...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(hash)
	}
}

func (m *fakeManager) AddRemovalListener(fn func(Hash)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, fn)
	idx := len(m.removed) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.removed[idx] = func(Hash) {}
	}
}

type fakeTag struct {
	name string
	typ  TagType
}

func (t *fakeTag) Name() string  { return t.name }
func (t *fakeTag) Type() TagType { return t.typ }

type tagSub struct {
	download Download
	typ      TagType
	fn       TagListener
}

// fakeTags delivers every event to every subscriber of the download, leaving
// tag-type filtering to the subscriber.
type fakeTags struct {
	mu     sync.Mutex
	tags   map[Hash][]Tag
	subs   map[int]tagSub
	nextID int
}

func newFakeTags() *fakeTags {
	return &fakeTags{tags: map[Hash][]Tag{}, subs: map[int]tagSub{}}
}

func (m *fakeTags) TagsFor(d Download) []Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Tag{}, m.tags[d.Hash()]...)
}

func (m *fakeTags) AddTagListener(d Download, typ TagType, fn TagListener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs[id] = tagSub{download: d, typ: typ, fn: fn}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *fakeTags) add(d Download, tag Tag) {
	m.mu.Lock()
	m.tags[d.Hash()] = append(m.tags[d.Hash()], tag)
	m.mu.Unlock()
	m.fire(TagEvent{Tag: tag, Download: d, Added: true})
}

func (m *fakeTags) fire(ev TagEvent) {
	m.mu.Lock()
	var fns []TagListener
	for _, s := range m.subs {
		if s.download.Hash() == ev.Download.Hash() {
			fns = append(fns, s.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (m *fakeTags) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

type recorded struct {
	file *File
	kind ChangeKind
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
	onCall func(r *recorder)
}

func (r *recorder) ContentChanged(f *File, kind ChangeKind) {
	r.mu.Lock()
	r.events = append(r.events, recorded{file: f, kind: kind})
	r.mu.Unlock()

	if r.onCall != nil {
		r.onCall(r)
	}
}

func (r *recorder) count(kind ChangeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type panicListener struct{}

func (panicListener) ContentChanged(*File, ChangeKind) {
	panic("listener failure")
}

func testHash(b byte) Hash {
	var h Hash
	for i := range h {
		h[i] = b
	}
	return h
}
