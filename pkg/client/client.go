package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/autobrr/contentdir/pkg/config"
)

// Interface is a torrent client the download manager is synced from.
type Interface interface {
	Type() string
	Name() string
	Connect(ctx context.Context) error
	// GetTorrents returns every torrent keyed by lowercase hex hash.
	GetTorrents(ctx context.Context) (map[string]config.Torrent, error)
}

func NewClient(clientType string, clientName string, cfg config.ClientConfig) (Interface, error) {
	switch strings.ToLower(clientType) {
	case "qbittorrent":
		return NewQBittorrent(clientName, cfg)
	default:
		return nil, fmt.Errorf("client type not supported: %q", clientType)
	}
}
