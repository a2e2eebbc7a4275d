package downloads

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/logger"
)

// Manager is an in-memory download manager. It is the source of truth the
// content directory reads from and is kept current by a client sync.
type Manager struct {
	mu        sync.RWMutex
	downloads map[content.Hash]*Download

	removalMu sync.Mutex
	removal   map[uint64]func(content.Hash)
	nextID    uint64

	log *logrus.Entry
}

func NewManager() *Manager {
	return &Manager{
		downloads: make(map[content.Hash]*Download),
		removal:   make(map[uint64]func(content.Hash)),
		log:       logger.GetLogger("downloads"),
	}
}

func (m *Manager) Download(hash content.Hash) (content.Download, bool) {
	d, ok := m.Get(hash)
	if !ok {
		return nil, false
	}
	return d, true
}

func (m *Manager) Get(hash content.Hash) (*Download, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.downloads[hash]
	return d, ok
}

// Add returns the download for hash, creating it when missing. created
// reports whether a new download was made.
func (m *Manager) Add(hash content.Hash, name string, addedOn time.Time) (d *Download, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.downloads[hash]; ok {
		return d, false
	}

	d = newDownload(hash, name, addedOn)
	m.downloads[hash] = d
	m.log.Tracef("[%s] Added download: %s", hash.Short(), name)
	return d, true
}

// Remove detaches the download and notifies removal listeners.
func (m *Manager) Remove(hash content.Hash) bool {
	m.mu.Lock()
	d, ok := m.downloads[hash]
	if ok {
		delete(m.downloads, hash)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	d.detach()
	m.log.Tracef("[%s] Removed download: %s", hash.Short(), d.Name())

	m.removalMu.Lock()
	fns := make([]func(content.Hash), 0, len(m.removal))
	for _, fn := range m.removal {
		fns = append(fns, fn)
	}
	m.removalMu.Unlock()

	for _, fn := range fns {
		fn(hash)
	}
	return true
}

func (m *Manager) AddRemovalListener(fn func(hash content.Hash)) func() {
	m.removalMu.Lock()
	defer m.removalMu.Unlock()

	m.nextID++
	id := m.nextID
	m.removal[id] = fn

	return func() {
		m.removalMu.Lock()
		defer m.removalMu.Unlock()
		delete(m.removal, id)
	}
}

// Hashes returns every known hash in a stable order.
func (m *Manager) Hashes() []content.Hash {
	m.mu.RLock()
	hashes := make([]content.Hash, 0, len(m.downloads))
	for h := range m.downloads {
		hashes = append(hashes, h)
	}
	m.mu.RUnlock()

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	return hashes
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.downloads)
}
