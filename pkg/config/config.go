package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const envPrefix = "CONTENTDIR__"

type Configuration struct {
	Directory     DirectoryConfig
	Clients       map[string]ClientConfig
	Watch         WatchConfig
	Notifications NotificationsConfig
}

// DirectoryConfig tunes the content directory.
type DirectoryConfig struct {
	Uncategorized string `koanf:"uncategorized"`
	EvictOnRemove bool   `koanf:"evict_on_remove"`
	// TagType is the tag classification tracked for the Tags property: manual or auto.
	TagType string `koanf:"tag_type"`
}

type ClientConfig struct {
	Type           string        `koanf:"type"`
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	TLSSkipVerify  bool          `koanf:"tls_skip_verify"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	FilesPerSecond int           `koanf:"files_per_second"`
}

type WatchConfig struct {
	Filter string `koanf:"filter"`
}

var (
	Config *Configuration
	K      = koanf.New(".")
)

var defaults = map[string]interface{}{
	"directory.uncategorized":   "Categories.uncategorized",
	"directory.evict_on_remove": true,
	"directory.tag_type":        "manual",
	"notifications.title":       "Content changes",
}

// Init loads defaults, the yaml file at path (if present) and CONTENTDIR__ env
// overrides, in that order, into Config.
func Init(path string) error {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return fmt.Errorf("load config %q: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat config %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	cfg := &Configuration{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	for name, c := range cfg.Clients {
		if c.PollInterval <= 0 {
			c.PollInterval = 10 * time.Second
		}
		if c.FilesPerSecond <= 0 {
			c.FilesPerSecond = 5
		}
		cfg.Clients[name] = c
	}

	K = k
	Config = cfg
	return nil
}

// envKey maps CONTENTDIR__DIRECTORY__EVICT_ON_REMOVE to directory.evict_on_remove.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func GetDefaultConfigDirectory(app string, filename string) string {
	// binary folder
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
			return dir
		}
	}

	// user config folder
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, app)
	}

	// working folder
	return "."
}
