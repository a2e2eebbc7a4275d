package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/autobrr/go-qbittorrent"
	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/logger"
)

// qBittorrent reports this ETA when it has no estimate.
const qbitInfiniteETA = 8640000

type QBittorrent struct {
	name   string
	cfg    config.ClientConfig
	client *qbittorrent.Client
	rl     ratelimit.Limiter
	log    *logrus.Entry

	// file lists are only refetched when a torrent's progress moves
	filesMu  sync.Mutex
	files    map[string][]config.File
	progress map[string]float64
}

func NewQBittorrent(name string, cfg config.ClientConfig) (*QBittorrent, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("client %q: url must be set", name)
	}

	rate := cfg.FilesPerSecond
	if rate <= 0 {
		rate = 5
	}

	return &QBittorrent{
		name: name,
		cfg:  cfg,
		client: qbittorrent.NewClient(qbittorrent.Config{
			Host:          cfg.URL,
			Username:      cfg.User,
			Password:      cfg.Password,
			TLSSkipVerify: cfg.TLSSkipVerify,
		}),
		rl:       ratelimit.New(rate, ratelimit.WithoutSlack),
		log:      logger.GetLogger(name),
		files:    make(map[string][]config.File),
		progress: make(map[string]float64),
	}, nil
}

func (c *QBittorrent) Type() string {
	return "qbittorrent"
}

func (c *QBittorrent) Name() string {
	return c.name
}

func (c *QBittorrent) Connect(ctx context.Context) error {
	if err := c.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	return nil
}

func (c *QBittorrent) GetTorrents(ctx context.Context) (map[string]config.Torrent, error) {
	torrents, err := c.client.GetTorrentsCtx(ctx, qbittorrent.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("get torrents: %w", err)
	}

	out := make(map[string]config.Torrent, len(torrents))
	seen := make(map[string]struct{}, len(torrents))

	for _, t := range torrents {
		hash := strings.ToLower(t.Hash)
		seen[hash] = struct{}{}

		files, err := c.getFiles(ctx, hash, t.Progress)
		if err != nil {
			c.log.WithError(err).Warnf("[%s] Failed retrieving files, keeping previous list", shortHash(hash))
		}

		torrent := convertTorrent(t)
		torrent.Hash = hash
		torrent.Files = files
		out[hash] = torrent
	}

	c.forgetMissing(seen)
	return out, nil
}

// getFiles returns the cached file list unless progress moved since the last
// fetch. A nil list means the files are unknown.
func (c *QBittorrent) getFiles(ctx context.Context, hash string, progress float64) ([]config.File, error) {
	c.filesMu.Lock()
	cached, ok := c.files[hash]
	last := c.progress[hash]
	c.filesMu.Unlock()

	if ok && last == progress {
		return cached, nil
	}

	c.rl.Take()

	info, err := c.client.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return cached, err
	}

	var files []config.File
	if info != nil {
		files = convertFiles(*info)
	}

	c.filesMu.Lock()
	c.files[hash] = files
	c.progress[hash] = progress
	c.filesMu.Unlock()

	c.log.Tracef("[%s] Retrieved %d files", shortHash(hash), len(files))
	return files, nil
}

func (c *QBittorrent) forgetMissing(seen map[string]struct{}) {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()

	for hash := range c.files {
		if _, ok := seen[hash]; !ok {
			delete(c.files, hash)
			delete(c.progress, hash)
		}
	}
}

func convertTorrent(t qbittorrent.Torrent) config.Torrent {
	eta := t.ETA
	if eta >= qbitInfiniteETA {
		eta = -1
	}

	return config.Torrent{
		Hash:            strings.ToLower(t.Hash),
		Name:            t.Name,
		TotalBytes:      t.Size,
		DownloadedBytes: int64(float64(t.Size) * t.Progress),
		State:           string(t.State),
		Tags:            parseTags(t.Tags),
		Label:           t.Category,
		AddedSeconds:    t.AddedOn,
		ETA:             eta,
	}
}

// convertFiles maps the qBittorrent file list, which is ordered by file index.
func convertFiles(files qbittorrent.TorrentFiles) []config.File {
	out := make([]config.File, 0, len(files))
	for i, f := range files {
		downloaded := int64(float64(f.Size) * float64(f.Progress))
		if f.Progress >= 1 {
			downloaded = f.Size
		}

		out = append(out, config.File{
			Index:      i,
			Name:       f.Name,
			Size:       f.Size,
			Downloaded: downloaded,
			// priority 0 is "do not download"
			Skipped: f.Priority == 0,
		})
	}

	return out
}

// parseTags splits the qBittorrent tag list, dropping duplicates and keeping
// the client's order.
func parseTags(tags string) []string {
	out := make([]string, 0)
	if tags == "" {
		return out
	}

	seen := strset.New()
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen.Has(tag) {
			continue
		}
		seen.Add(tag)
		out = append(out, tag)
	}

	return out
}

func shortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}
