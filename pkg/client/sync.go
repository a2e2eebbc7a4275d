package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/downloads"
	"github.com/autobrr/contentdir/pkg/logger"
)

type SyncResult struct {
	Added   int
	Updated int
	Removed int
	Skipped int
}

// Syncer mirrors a client's torrents into a download manager. Category and
// tag changes are written through the manager so they reach its listeners.
type Syncer struct {
	client    Interface
	downloads *downloads.Manager
	tags      *downloads.TagManager
	tagType   content.TagType
	log       *logrus.Entry
}

// NewSyncer returns a Syncer writing client tags as tagType, which should be
// the type the content directory tracks.
func NewSyncer(c Interface, m *downloads.Manager, tags *downloads.TagManager, tagType content.TagType) *Syncer {
	if tagType == 0 {
		tagType = content.TagTypeDownloadManual
	}

	return &Syncer{
		client:    c,
		downloads: m,
		tags:      tags,
		tagType:   tagType,
		log:       logger.GetLogger("sync"),
	}
}

func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	torrents, err := s.client.GetTorrents(ctx)
	if err != nil {
		return res, fmt.Errorf("retrieve torrents from %s: %w", s.client.Name(), err)
	}

	seen := make(map[content.Hash]struct{}, len(torrents))

	for _, t := range torrents {
		hash, err := content.ParseHash(t.Hash)
		if err != nil {
			s.log.WithError(err).Debugf("Skipping torrent with unsupported hash: %s", t.Name)
			res.Skipped++
			continue
		}

		seen[hash] = struct{}{}
		if s.apply(hash, t) {
			res.Added++
		} else {
			res.Updated++
		}
	}

	for _, hash := range s.downloads.Hashes() {
		if _, ok := seen[hash]; ok {
			continue
		}

		if s.downloads.Remove(hash) {
			if s.tags != nil {
				s.tags.Forget(hash)
			}
			res.Removed++
		}
	}

	return res, nil
}

// apply writes one torrent snapshot and reports whether it was new. Files and
// ETA are written before category and tags so listeners see fresh values.
func (s *Syncer) apply(hash content.Hash, t config.Torrent) bool {
	d, created := s.downloads.Add(hash, t.Name, time.Unix(t.AddedSeconds, 0))

	eta := t.ETA
	if eta < 0 && t.Downloaded() {
		eta = 0
	}

	d.SetName(t.Name)
	d.SetETA(eta)
	if t.Files != nil {
		d.SetFiles(t.Files)
	}

	if d.SetCategory(t.Label) && !created {
		s.log.Debugf("[%s] Category changed: %q", hash.Short(), t.Label)
	}

	if s.tags != nil {
		added, removed := s.tags.SetTags(d, s.tagType, t.Tags)
		if (len(added) > 0 || len(removed) > 0) && !created {
			s.log.Debugf("[%s] Tags changed: +%v -%v", hash.Short(), added, removed)
		}
	}

	return created
}

// Run syncs every interval until ctx is done, calling after with each result.
// Failed cycles are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context, interval time.Duration, after func(SyncResult)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		res, err := s.Sync(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.WithError(err).Warn("Sync failed")
			continue
		}

		s.log.Tracef("Synced %d added, %d updated, %d removed", res.Added, res.Updated, res.Removed)
		if after != nil {
			after(res)
		}
	}
}
