package content

import (
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/contentdir/pkg/logger"
)

// Listener is notified when a derived property of a File may have changed.
// Implementations must be comparable, pointer receivers are the usual choice.
type Listener interface {
	ContentChanged(f *File, kind ChangeKind)
}

type funcListener struct {
	fn func(f *File, kind ChangeKind)
}

func (l *funcListener) ContentChanged(f *File, kind ChangeKind) {
	l.fn(f, kind)
}

// Hub is a copy-on-write set of listeners. Broadcasts read a snapshot and
// never block Add or Remove.
type Hub struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]Listener]
	log       *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logger.GetLogger("content")
	}

	h := &Hub{log: log}
	h.listeners.Store(&[]Listener{})
	return h
}

// Add subscribes l. Listeners of a non-comparable type are refused, use
// AddFunc for those.
func (h *Hub) Add(l Listener) {
	if !isComparable(l) {
		h.log.Errorf("Refusing listener of non-comparable type %T, use AddFunc", l)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current := *h.listeners.Load()
	for _, existing := range current {
		if existing == l {
			return
		}
	}

	next := make([]Listener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	h.listeners.Store(&next)
}

func (h *Hub) Remove(l Listener) {
	if !isComparable(l) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current := *h.listeners.Load()
	for i, existing := range current {
		if existing != l {
			continue
		}

		next := make([]Listener, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		h.listeners.Store(&next)
		return
	}
}

func isComparable(l Listener) bool {
	return l != nil && reflect.TypeOf(l).Comparable()
}

// AddFunc subscribes fn and returns a function that unsubscribes it.
func (h *Hub) AddFunc(fn func(f *File, kind ChangeKind)) (remove func()) {
	l := &funcListener{fn: fn}
	h.Add(l)
	return func() { h.Remove(l) }
}

func (h *Hub) Len() int {
	return len(*h.listeners.Load())
}

// Broadcast delivers to every listener subscribed when it starts, in the
// calling goroutine. A panicking listener does not stop the others.
func (h *Hub) Broadcast(f *File, kind ChangeKind) {
	for _, l := range *h.listeners.Load() {
		h.deliver(l, f, kind)
	}
}

func (h *Hub) deliver(l Listener, f *File, kind ChangeKind) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("file", f.String()).
				Errorf("Listener panicked handling %s: %v\n%s", kind, r, debug.Stack())
		}
	}()

	l.ContentChanged(f, kind)
}
