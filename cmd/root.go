package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/contentdir/pkg/client"
	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/downloads"
	"github.com/autobrr/contentdir/pkg/logger"
	"github.com/autobrr/contentdir/pkg/runtime"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("contentdir", FlagConfigFile)
	FlagLogFile      = "activity.log"

	initialized bool
)

func initCore(showAppInfo bool) {
	if initialized {
		return
	}

	if FlagConfigFolder == "" {
		FlagConfigFolder = "."
	}
	if !filepath.IsAbs(FlagConfigFile) {
		FlagConfigFile = filepath.Join(FlagConfigFolder, FlagConfigFile)
	}
	if FlagLogFile != "" && !filepath.IsAbs(FlagLogFile) {
		FlagLogFile = filepath.Join(FlagConfigFolder, FlagLogFile)
	}

	log := logger.GetLogger("app")

	if err := logger.Init(logger.Config{Verbosity: FlagLogLevel, File: FlagLogFile}); err != nil {
		log.WithError(err).Fatal("Failed initializing logger")
	}

	if err := config.Init(FlagConfigFile); err != nil {
		log.WithError(err).Fatal("Failed initializing config")
	}

	if showAppInfo {
		log.Infof("Using %s = %s (%s@%s)", "VERSION", runtime.Version, runtime.GitCommit, runtime.Timestamp)
		log.Infof("Using %s = %q", "CONFIG", FlagConfigFile)
		log.Infof("Using %s = %q", "LOG", FlagLogFile)
		log.Infof("Using %s = %d", "VERBOSITY", FlagLogLevel)
	}

	initialized = true
}

// session is everything a command needs to look at one client's content.
type session struct {
	name      string
	config    config.ClientConfig
	client    client.Interface
	downloads *downloads.Manager
	tags      *downloads.TagManager
	directory *content.Directory
	syncer    *client.Syncer
}

func newSession(ctx context.Context, clientName string, log *logrus.Entry) (*session, error) {
	clientConfig, ok := config.Config.Clients[clientName]
	if !ok {
		return nil, fmt.Errorf("no client configuration found for: %q", clientName)
	}

	if !clientConfig.Enabled {
		return nil, errors.New("client is not enabled")
	}

	c, err := client.NewClient(clientConfig.Type, clientName, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize client: %w", err)
	}

	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to client: %w", err)
	}
	log.Debugf("Connected to %s client %q", c.Type(), clientName)

	tagType, ok := content.ParseTagType(config.Config.Directory.TagType)
	if !ok {
		return nil, fmt.Errorf("unsupported directory tag type: %q", config.Config.Directory.TagType)
	}

	m := downloads.NewManager()
	tags := downloads.NewTagManager()
	dir := content.New(content.Options{
		Downloads:     m,
		Tags:          tags,
		Uncategorized: config.Config.Directory.Uncategorized,
		TagType:       tagType,
		EvictOnRemove: config.Config.Directory.EvictOnRemove,
		Log:           logger.GetLogger("content"),
	})

	return &session{
		name:      clientName,
		config:    clientConfig,
		client:    c,
		downloads: m,
		tags:      tags,
		directory: dir,
		syncer:    client.NewSyncer(c, m, tags, tagType),
	}, nil
}

func (s *session) Close() {
	s.directory.Close()
}

// resolveFiles looks up every file of every download so each one is subscribed
// to change events, and returns how many resolved.
func (s *session) resolveFiles() int {
	resolved := 0
	for _, hash := range s.downloads.Hashes() {
		d, ok := s.downloads.Get(hash)
		if !ok {
			continue
		}

		for i := 0; i < d.FileCount(); i++ {
			if _, ok := s.directory.LookupFile(hash, i); ok {
				resolved++
			}
		}
	}
	return resolved
}
