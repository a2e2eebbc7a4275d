package content

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/contentdir/pkg/logger"
)

type Options struct {
	Downloads DownloadManager
	// Tags may be nil, in which case files report no tags.
	Tags TagManager
	// Hub to broadcast changes on; a new one is created when nil.
	Hub *Hub

	// Uncategorized is the category name treated as no category.
	Uncategorized string
	// TagType is the tag classification reported by PropertyTags.
	TagType TagType
	// EvictOnRemove drops the cache of a download once its manager reports it
	// removed. Requires Downloads to implement RemovalNotifier.
	EvictOnRemove bool

	Log *logrus.Entry
}

// Directory resolves info-hashes and file indices to cached Files.
type Directory struct {
	downloads     DownloadManager
	tags          TagManager
	listeners     *Hub
	uncategorized string
	tagType       TagType
	log           *logrus.Entry

	handlers sync.Map // Hash -> *fileHandler
	creating singleflight.Group

	removeEvictions func()
}

func New(opts Options) *Directory {
	d := &Directory{
		downloads:     opts.Downloads,
		tags:          opts.Tags,
		listeners:     opts.Hub,
		uncategorized: opts.Uncategorized,
		tagType:       opts.TagType,
		log:           opts.Log,
	}

	if d.log == nil {
		d.log = logger.GetLogger("content")
	}
	if d.listeners == nil {
		d.listeners = NewHub(d.log)
	}
	if d.uncategorized == "" {
		d.uncategorized = DefaultUncategorized
	}
	if d.tagType == 0 {
		d.tagType = TagTypeDownloadManual
	}

	if opts.EvictOnRemove {
		if rn, ok := opts.Downloads.(RemovalNotifier); ok {
			d.removeEvictions = rn.AddRemovalListener(func(hash Hash) {
				d.Evict(hash)
			})
		} else {
			d.log.Warn("Download manager does not report removals, cached files will not be evicted")
		}
	}

	return d
}

// Listeners is the hub changes are broadcast on.
func (d *Directory) Listeners() *Hub {
	return d.listeners
}

func (d *Directory) AddListener(l Listener) {
	d.listeners.Add(l)
}

func (d *Directory) RemoveListener(l Listener) {
	d.listeners.Remove(l)
}

// LookupDownload resolves hash without selecting a file. It reports false when
// the download is unknown or has been removed.
func (d *Directory) LookupDownload(hash Hash) (Download, bool) {
	return d.resolve(hash)
}

// LookupFile returns the File for (hash, index), creating it on first use.
// Repeated lookups return the same *File while its download stays cached.
func (d *Directory) LookupFile(hash Hash, index int) (*File, bool) {
	if index < 0 {
		return nil, false
	}

	download, ok := d.resolve(hash)
	if !ok {
		return nil, false
	}

	h, ok := d.handlerFor(download)
	if !ok {
		return nil, false
	}

	return h.file(index), true
}

func (d *Directory) resolve(hash Hash) (download Download, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("[%s] Resolving download panicked: %v", hash.Short(), r)
			download, ok = nil, false
		}
	}()

	download, ok = d.downloads.Download(hash)
	if !ok || download == nil {
		return nil, false
	}

	return download, true
}

// handlerFor returns the handler of download, creating it when missing or
// stale. It reports false when the download was removed while the handler was
// being created.
func (d *Directory) handlerFor(download Download) (*fileHandler, bool) {
	hash := download.Hash()

	if h, ok := d.handlers.Load(hash); ok && sameDownload(h.(*fileHandler).download, download) {
		return h.(*fileHandler), true
	}

	v, _, _ := d.creating.Do(hash.String(), func() (any, error) {
		if h, ok := d.handlers.Load(hash); ok {
			if sameDownload(h.(*fileHandler).download, download) {
				return h, nil
			}

			// the download was removed and re-added while eviction was off
			h.(*fileHandler).close()
			d.log.Debugf("[%s] Replacing file handler of a re-added download", hash.Short())
		}

		h := newFileHandler(d, download)
		d.handlers.Store(hash, h)

		// a removal that ran before the store found nothing to evict
		if current, ok := d.resolve(hash); !ok || !sameDownload(current, download) {
			d.handlers.CompareAndDelete(hash, h)
			h.close()
			d.log.Debugf("[%s] Download removed during lookup", hash.Short())
			return (*fileHandler)(nil), nil
		}

		return h, nil
	})

	h := v.(*fileHandler)
	return h, h != nil
}

// sameDownload compares download identities. Managers hand out pointers, a
// non-comparable implementation is treated as never replaced.
func sameDownload(a, b Download) (same bool) {
	defer func() {
		if recover() != nil {
			same = true
		}
	}()

	return a == b
}

// Evict drops the cached Files of hash and unsubscribes from its events.
func (d *Directory) Evict(hash Hash) bool {
	v, ok := d.handlers.LoadAndDelete(hash)
	if !ok {
		return false
	}

	v.(*fileHandler).close()
	d.log.Debugf("[%s] Evicted cached files", hash.Short())
	return true
}

// NotifyCategoriesChanged broadcasts a category change for f alone.
func (d *Directory) NotifyCategoriesChanged(f *File) {
	d.listeners.Broadcast(f, CategoryChanged)
}

// NotifyTagsChanged broadcasts a tag change for f alone.
func (d *Directory) NotifyTagsChanged(f *File) {
	d.listeners.Broadcast(f, TagsChanged)
}

// Len is the number of downloads with cached files.
func (d *Directory) Len() int {
	n := 0
	d.handlers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Files returns the cached Files of hash ordered by index.
func (d *Directory) Files(hash Hash) []*File {
	if h, ok := d.handlers.Load(hash); ok {
		return h.(*fileHandler).snapshot()
	}
	return nil
}

// Close evicts everything and stops listening for removals.
func (d *Directory) Close() {
	if d.removeEvictions != nil {
		d.removeEvictions()
	}

	d.handlers.Range(func(k, _ any) bool {
		d.Evict(k.(Hash))
		return true
	})
}
