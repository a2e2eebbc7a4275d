package downloads

import (
	"sync"

	"github.com/scylladb/go-set/strset"

	"github.com/autobrr/contentdir/pkg/content"
)

type Tag struct {
	name string
	typ  content.TagType
}

func (t *Tag) Name() string {
	return t.name
}

func (t *Tag) Type() content.TagType {
	return t.typ
}

type tagKey struct {
	name string
	typ  content.TagType
}

type tagSub struct {
	typ content.TagType
	fn  content.TagListener
}

// TagManager holds tag definitions and download membership. Membership
// changes are delivered to listeners of the download whose subscribed tag
// type matches the tag.
type TagManager struct {
	mu      sync.RWMutex
	tags    map[tagKey]*Tag
	members map[content.Hash][]*Tag
	subs    map[content.Hash]map[uint64]tagSub
	nextID  uint64
}

func NewTagManager() *TagManager {
	return &TagManager{
		tags:    make(map[tagKey]*Tag),
		members: make(map[content.Hash][]*Tag),
		subs:    make(map[content.Hash]map[uint64]tagSub),
	}
}

// Tag returns the tag with name and type, defining it if needed.
func (m *TagManager) Tag(name string, typ content.TagType) *Tag {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tagKey{name: name, typ: typ}
	if t, ok := m.tags[key]; ok {
		return t
	}

	t := &Tag{name: name, typ: typ}
	m.tags[key] = t
	return t
}

// AddTaggable makes d a member of tag. It reports false if d already was.
func (m *TagManager) AddTaggable(tag *Tag, d content.Download) bool {
	hash := d.Hash()

	m.mu.Lock()
	for _, t := range m.members[hash] {
		if t == tag {
			m.mu.Unlock()
			return false
		}
	}
	m.members[hash] = append(m.members[hash], tag)
	fns := m.listenersFor(hash, tag.typ)
	m.mu.Unlock()

	ev := content.TagEvent{Tag: tag, Download: d, Added: true}
	for _, fn := range fns {
		fn(ev)
	}
	return true
}

// RemoveTaggable drops d from tag. It reports false if d was not a member.
func (m *TagManager) RemoveTaggable(tag *Tag, d content.Download) bool {
	hash := d.Hash()

	m.mu.Lock()
	tags := m.members[hash]
	idx := -1
	for i, t := range tags {
		if t == tag {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	next := make([]*Tag, 0, len(tags)-1)
	next = append(next, tags[:idx]...)
	next = append(next, tags[idx+1:]...)
	if len(next) == 0 {
		delete(m.members, hash)
	} else {
		m.members[hash] = next
	}
	fns := m.listenersFor(hash, tag.typ)
	m.mu.Unlock()

	ev := content.TagEvent{Tag: tag, Download: d, Added: false}
	for _, fn := range fns {
		fn(ev)
	}
	return true
}

// SetTags makes the tags of typ on d exactly names, firing an event per
// membership change.
func (m *TagManager) SetTags(d content.Download, typ content.TagType, names []string) (added, removed []string) {
	want := strset.New(names...)
	have := strset.New(m.Names(d, typ)...)

	added = strset.Difference(want, have).List()
	removed = strset.Difference(have, want).List()

	for _, name := range removed {
		m.RemoveTaggable(m.Tag(name, typ), d)
	}
	for _, name := range added {
		m.AddTaggable(m.Tag(name, typ), d)
	}

	return added, removed
}

func (m *TagManager) TagsFor(d content.Download) []content.Tag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tags := m.members[d.Hash()]
	out := make([]content.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	return out
}

// Names lists the tag names of typ on d.
func (m *TagManager) Names(d content.Download, typ content.TagType) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := strset.New()
	for _, t := range m.members[d.Hash()] {
		if t.typ == typ {
			names.Add(t.name)
		}
	}
	return names.List()
}

func (m *TagManager) AddTagListener(d content.Download, typ content.TagType, fn content.TagListener) func() {
	hash := d.Hash()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if m.subs[hash] == nil {
		m.subs[hash] = make(map[uint64]tagSub)
	}
	m.subs[hash][id] = tagSub{typ: typ, fn: fn}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.subs[hash], id)
		if len(m.subs[hash]) == 0 {
			delete(m.subs, hash)
		}
	}
}

// Forget drops the memberships of a removed download without firing events.
func (m *TagManager) Forget(hash content.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, hash)
}

func (m *TagManager) subscriberCount(hash content.Hash) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[hash])
}

// listenersFor must be called with m.mu held.
func (m *TagManager) listenersFor(hash content.Hash, typ content.TagType) []content.TagListener {
	var fns []content.TagListener
	for _, sub := range m.subs[hash] {
		if sub.typ == typ {
			fns = append(fns, sub.fn)
		}
	}
	return fns
}
