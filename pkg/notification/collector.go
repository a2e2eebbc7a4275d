package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/expression"
)

type changeKey struct {
	hash  content.Hash
	index int
	kind  content.ChangeKind
}

type change struct {
	action   Action
	snapshot content.Snapshot
}

// Collector is a content.Listener that batches change events until Flush.
// Repeated events for the same file and kind collapse into the latest one.
type Collector struct {
	filter *expression.CompiledExpression
	log    *logrus.Entry

	mu      sync.Mutex
	pending map[changeKey]change
	order   []changeKey
}

// NewCollector returns a Collector keeping only files that match filter. A
// nil filter keeps everything.
func NewCollector(filter *expression.CompiledExpression, log *logrus.Entry) *Collector {
	return &Collector{
		filter:  filter,
		log:     log,
		pending: make(map[changeKey]change),
	}
}

func (c *Collector) ContentChanged(f *content.File, kind content.ChangeKind) {
	s := f.Snapshot()

	match, err := c.filter.Match(context.Background(), s)
	if err != nil {
		c.log.WithError(err).Warnf("Failed checking filter for %s", f)
		return
	}
	if !match {
		return
	}

	key := changeKey{hash: s.Hash, index: s.Index, kind: kind}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[key]; !ok {
		c.order = append(c.order, key)
	}
	c.pending[key] = change{action: actionFor(kind), snapshot: s}
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Collector) drain() []change {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]change, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.pending[key])
	}

	c.pending = make(map[changeKey]change)
	c.order = nil
	return out
}

// Flush sends everything collected since the last flush through sender.
// Pending changes are dropped even when sending fails.
func (c *Collector) Flush(sender Sender, title string, runTime time.Duration) error {
	changes := c.drain()
	if !sender.CanSend() {
		return nil
	}

	fields := make([]Field, 0, len(changes))
	var categories, tags int
	for _, ch := range changes {
		switch ch.action {
		case ActionCategoryChanged:
			categories++
		case ActionTagsChanged:
			tags++
		}
		fields = append(fields, sender.BuildField(ch.action, BuildOptions{File: ch.snapshot}))
	}

	description := fmt.Sprintf("Category changes: %d\nTag changes: %d", categories, tags)
	if err := sender.Send(title, description, runTime, fields); err != nil {
		return fmt.Errorf("send %s notification: %w", sender.Name(), err)
	}

	return nil
}
