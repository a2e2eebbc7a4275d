package content

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// fileHandler caches the Files of one download and keeps their listeners
// informed about category and tag changes of that download.
type fileHandler struct {
	dir      *Directory
	download Download
	log      *logrus.Entry

	files sync.Map // int -> *File

	removeMu sync.Mutex
	removers []func()
}

func newFileHandler(dir *Directory, download Download) *fileHandler {
	h := &fileHandler{
		dir:      dir,
		download: download,
		log:      dir.log.WithField("hash", download.Hash().Short()),
	}

	h.removers = append(h.removers, download.AddAttributeListener(AttributeCategory,
		func(_ Download, attr Attribute) {
			if attr == AttributeCategory {
				h.fireChanged(CategoryChanged)
			}
		}))

	if dir.tags != nil {
		h.removers = append(h.removers, dir.tags.AddTagListener(download, dir.tagType,
			func(ev TagEvent) {
				if ev.Tag == nil || ev.Tag.Type() != dir.tagType {
					return
				}
				h.fireChanged(TagsChanged)
			}))
	}

	h.log.Tracef("Created file handler for %q", download.Name())
	return h
}

func (h *fileHandler) file(index int) *File {
	if f, ok := h.files.Load(index); ok {
		return f.(*File)
	}

	f, _ := h.files.LoadOrStore(index, &File{
		download: h.download,
		index:    index,
		dir:      h.dir,
	})

	return f.(*File)
}

// snapshot returns the resident Files ordered by index.
func (h *fileHandler) snapshot() []*File {
	var files []*File
	h.files.Range(func(_, v any) bool {
		files = append(files, v.(*File))
		return true
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].index < files[j].index
	})

	return files
}

func (h *fileHandler) len() int {
	n := 0
	h.files.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// fireChanged notifies every resident File, whichever file the change touched.
func (h *fileHandler) fireChanged(kind ChangeKind) {
	files := h.snapshot()
	h.log.Tracef("Broadcasting %s for %d files", kind, len(files))

	for _, f := range files {
		h.dir.listeners.Broadcast(f, kind)
	}
}

func (h *fileHandler) close() {
	h.removeMu.Lock()
	removers := h.removers
	h.removers = nil
	h.removeMu.Unlock()

	for _, remove := range removers {
		if remove != nil {
			remove()
		}
	}
}
