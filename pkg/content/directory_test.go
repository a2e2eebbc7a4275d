package content

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/contentdir/pkg/logger"
)

func newTestDirectory(m *fakeManager, tags *fakeTags, evict bool) *Directory {
	opts := Options{
		Downloads:     m,
		EvictOnRemove: evict,
		Log:           logger.GetLogger("test"),
	}
	if tags != nil {
		opts.Tags = tags
	}
	return New(opts)
}

func TestDirectory_LookupFile_ConcurrentReturnsSameFile(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0, length: 10})
	m := newFakeManager(dl)
	tags := newFakeTags()
	dir := newTestDirectory(m, tags, false)

	const callers = 64
	results := make([]*File, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			f, ok := dir.LookupFile(testHash(1), 3)
			if ok {
				results[i] = f
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.NotNil(t, results[0])
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}

	// one handler means exactly one subscription per event source
	assert.Equal(t, 1, dir.Len())
	assert.Equal(t, 1, dl.attributeListeners())
	assert.Equal(t, 1, tags.subscribers())
}

func TestDirectory_LookupFile_Lazy(t *testing.T) {
	a := newFakeDownload(testHash(1), fakeFile{index: 0}, fakeFile{index: 1})
	b := newFakeDownload(testHash(2), fakeFile{index: 0})
	m := newFakeManager(a, b)
	dir := newTestDirectory(m, newFakeTags(), false)

	assert.Equal(t, 0, dir.Len())
	assert.Equal(t, 0, a.attributeListeners())

	_, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)

	assert.Equal(t, 1, dir.Len())
	assert.Len(t, dir.Files(testHash(1)), 1)
	assert.Nil(t, dir.Files(testHash(2)))
	assert.Equal(t, 0, b.attributeListeners())
}

func TestDirectory_LookupDownload(t *testing.T) {
	dl := newFakeDownload(testHash(1))
	dir := newTestDirectory(newFakeManager(dl), nil, false)

	got, ok := dir.LookupDownload(testHash(1))
	require.True(t, ok)
	assert.Equal(t, testHash(1), got.Hash())

	// entity-only lookups do not build a cache
	assert.Equal(t, 0, dir.Len())

	_, ok = dir.LookupDownload(testHash(9))
	assert.False(t, ok)
}

func TestDirectory_NotFound(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0})
	m := newFakeManager(dl)
	dir := newTestDirectory(m, nil, false)

	for i := 0; i < 3; i++ {
		f, ok := dir.LookupFile(testHash(7), 0)
		assert.False(t, ok)
		assert.Nil(t, f)
	}

	_, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)

	m.remove(testHash(1))

	for i := 0; i < 3; i++ {
		f, ok := dir.LookupFile(testHash(1), 0)
		assert.False(t, ok)
		assert.Nil(t, f)
	}

	_, ok = dir.LookupFile(testHash(1), -1)
	assert.False(t, ok)
}

func TestDirectory_NotFound_PanickingManager(t *testing.T) {
	dir := newTestDirectory(nil, nil, false)

	assert.NotPanics(t, func() {
		_, ok := dir.LookupFile(testHash(1), 0)
		assert.False(t, ok)
	})
}

func TestDirectory_CategoryFanOut(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0}, fakeFile{index: 1}, fakeFile{index: 2},
		fakeFile{index: 3}, fakeFile{index: 4})
	dir := newTestDirectory(newFakeManager(dl), newFakeTags(), false)

	rec := &recorder{}
	dir.AddListener(rec)

	// three resident files out of five in the download
	for _, idx := range []int{0, 2, 4} {
		_, ok := dir.LookupFile(testHash(1), idx)
		require.True(t, ok)
	}

	dl.setCategory("movies")

	assert.Equal(t, 3, rec.count(CategoryChanged))
	assert.Equal(t, 0, rec.count(TagsChanged))

	var indices []int
	for _, e := range rec.events {
		indices = append(indices, e.file.Index())
	}
	assert.Equal(t, []int{0, 2, 4}, indices)
}

func TestDirectory_TagFanOut(t *testing.T) {
	tests := []struct {
		name     string
		tagType  TagType
		expected int
	}{
		{
			name:     "tracked_type",
			tagType:  TagTypeDownloadManual,
			expected: 2,
		},
		{
			name:     "other_type",
			tagType:  TagTypeDownloadAuto,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl := newFakeDownload(testHash(1), fakeFile{index: 0}, fakeFile{index: 1})
			tags := newFakeTags()
			dir := newTestDirectory(newFakeManager(dl), tags, false)

			rec := &recorder{}
			dir.AddListener(rec)

			dir.LookupFile(testHash(1), 0)
			dir.LookupFile(testHash(1), 1)

			tags.add(dl, &fakeTag{name: "keep", typ: tt.tagType})

			assert.Equal(t, tt.expected, rec.count(TagsChanged))
			assert.Equal(t, 0, rec.count(CategoryChanged))
		})
	}
}

func TestDirectory_EventsOnlyReachOwnDownload(t *testing.T) {
	a := newFakeDownload(testHash(1), fakeFile{index: 0})
	b := newFakeDownload(testHash(2), fakeFile{index: 0})
	dir := newTestDirectory(newFakeManager(a, b), newFakeTags(), false)

	rec := &recorder{}
	dir.AddListener(rec)

	dir.LookupFile(testHash(1), 0)
	fb, _ := dir.LookupFile(testHash(2), 0)

	b.setCategory("tv")

	require.Equal(t, 1, rec.len())
	assert.Same(t, fb, rec.events[0].file)
}

func TestDirectory_EvictOnRemove(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0})
	m := newFakeManager(dl)
	tags := newFakeTags()
	dir := newTestDirectory(m, tags, true)

	first, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)
	require.Equal(t, 1, dl.attributeListeners())

	m.remove(testHash(1))

	assert.Equal(t, 0, dir.Len())
	assert.Equal(t, 0, dl.attributeListeners())
	assert.Equal(t, 0, tags.subscribers())

	// re-added downloads get a fresh cache
	readded := newFakeDownload(testHash(1), fakeFile{index: 0})
	m.add(readded)

	second, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Same(t, readded, second.Download())
}

func TestDirectory_ReAddedWithoutEviction(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0})
	m := newFakeManager(dl)
	dir := newTestDirectory(m, nil, false)

	first, _ := dir.LookupFile(testHash(1), 0)
	again, _ := dir.LookupFile(testHash(1), 0)
	assert.Same(t, first, again)

	m.remove(testHash(1))
	readded := newFakeDownload(testHash(1), fakeFile{index: 0})
	m.add(readded)

	second, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)
	assert.Same(t, readded, second.Download())
	assert.Equal(t, 0, dl.attributeListeners())
	assert.Equal(t, 1, dir.Len())
}

func TestDirectory_NotifyHelpers(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0}, fakeFile{index: 1})
	dir := newTestDirectory(newFakeManager(dl), nil, false)

	rec := &recorder{}
	dir.AddListener(rec)

	f0, _ := dir.LookupFile(testHash(1), 0)
	dir.LookupFile(testHash(1), 1)

	dir.NotifyCategoriesChanged(f0)
	dir.NotifyTagsChanged(f0)

	require.Equal(t, 2, rec.len())
	assert.Same(t, f0, rec.events[0].file)
	assert.Equal(t, CategoryChanged, rec.events[0].kind)
	assert.Equal(t, TagsChanged, rec.events[1].kind)
}

func TestDirectory_Close(t *testing.T) {
	a := newFakeDownload(testHash(1), fakeFile{index: 0})
	b := newFakeDownload(testHash(2), fakeFile{index: 0})
	tags := newFakeTags()
	dir := newTestDirectory(newFakeManager(a, b), tags, true)

	dir.LookupFile(testHash(1), 0)
	dir.LookupFile(testHash(2), 0)
	require.Equal(t, 2, dir.Len())

	dir.Close()

	assert.Equal(t, 0, dir.Len())
	assert.Equal(t, 0, a.attributeListeners())
	assert.Equal(t, 0, b.attributeListeners())
	assert.Equal(t, 0, tags.subscribers())
}

// removeAfterFirstResolve hands out its download once and removes it right
// after, as if the manager dropped it mid-lookup.
type removeAfterFirstResolve struct {
	*fakeManager
	once sync.Once
}

func (m *removeAfterFirstResolve) Download(hash Hash) (Download, bool) {
	d, ok := m.fakeManager.Download(hash)
	m.once.Do(func() { m.fakeManager.remove(hash) })
	return d, ok
}

func TestDirectory_LookupFile_RemovedDuringLookup(t *testing.T) {
	dl := newFakeDownload(testHash(1), fakeFile{index: 0, length: 10})
	m := &removeAfterFirstResolve{fakeManager: newFakeManager(dl)}
	dir := New(Options{Downloads: m, EvictOnRemove: true, Log: logger.GetLogger("test")})

	_, ok := dir.LookupFile(testHash(1), 0)
	assert.False(t, ok)
	assert.Equal(t, 0, dir.Len())
	assert.Equal(t, 0, dl.attributeListeners())

	// once re-added the download resolves normally
	m.add(dl)
	f, ok := dir.LookupFile(testHash(1), 0)
	require.True(t, ok)
	assert.Equal(t, 0, f.Index())
	assert.Equal(t, 1, dir.Len())
}
