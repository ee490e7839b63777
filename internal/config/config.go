package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "taskdeck"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tasks.db"
	DefaultAPIURL         = "http://localhost:8080/api/Task"
	DefaultListen         = ":8080"
	DefaultPageSize       = 10
	DefaultFetchTimeout   = 10

	// EnvConfig overrides the config file location.
	EnvConfig = "TASKDECK_CONFIG"
)

// Backend selects the repository the TUI talks to.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

func (b Backend) Valid() bool {
	return b == BackendRemote || b == BackendLocal
}

type Keymap struct {
	Quit           string `toml:"quit"`
	Add            string `toml:"add"`
	Up             string `toml:"up"`
	Down           string `toml:"down"`
	Delete         string `toml:"delete"`
	Detail         string `toml:"detail"`
	Confirm        string `toml:"confirm"`
	Cancel         string `toml:"cancel"`
	Edit           string `toml:"edit"`
	NextPage       string `toml:"next_page"`
	PrevPage       string `toml:"prev_page"`
	PageSize       string `toml:"page_size"`
	FilterStatus   string `toml:"filter_status"`
	FilterPriority string `toml:"filter_priority"`
	ClearFilters   string `toml:"clear_filters"`
	Refresh        string `toml:"refresh"`
}

type Config struct {
	Backend         Backend `toml:"backend"`
	APIURL          string  `toml:"api_url"`
	DBPath          string  `toml:"db_path"`
	PageSize        int     `toml:"page_size"`
	PageSizeOptions []int   `toml:"page_size_options"`
	FetchTimeoutSec int     `toml:"fetch_timeout_seconds"`
	Watch           bool    `toml:"watch"`
	Listen          string  `toml:"listen"`
	LogLevel        string  `toml:"log_level"`
	LogFile         string  `toml:"log_file"`
	Keys            Keymap  `toml:"keys"`
}

// FetchTimeout is the per-request deadline for repository fetches.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// Validate reports settings that cannot be repaired by defaulting.
func (c Config) Validate() error {
	if !c.Backend.Valid() {
		return fmt.Errorf("config: unknown backend %q (want %q or %q)", c.Backend, BackendRemote, BackendLocal)
	}
	if c.Backend == BackendRemote && c.APIURL == "" {
		return errors.New("config: api_url is required for the remote backend")
	}
	if c.Backend == BackendLocal && c.DBPath == "" {
		return errors.New("config: db_path is required for the local backend")
	}
	return nil
}

// ResolveConfigPath returns $TASKDECK_CONFIG when set, otherwise
// <user config dir>/taskdeck/config.toml. It falls back to the working
// directory when no user config dir is available.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist. Zero values in the file are defaulted.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) fillDefaults(dir string) {
	def := defaultConfig(dir)
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.FetchTimeoutSec <= 0 {
		c.FetchTimeoutSec = def.FetchTimeoutSec
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	opts := c.PageSizeOptions[:0]
	for _, n := range c.PageSizeOptions {
		if n > 0 && !slices.Contains(opts, n) {
			opts = append(opts, n)
		}
	}
	if len(opts) == 0 {
		opts = def.PageSizeOptions
	}
	slices.Sort(opts)
	c.PageSizeOptions = opts
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}

	c.Keys.fillDefaults(def.Keys)
}

func (k *Keymap) fillDefaults(def Keymap) {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&k.Quit, def.Quit)
	set(&k.Add, def.Add)
	set(&k.Up, def.Up)
	set(&k.Down, def.Down)
	set(&k.Delete, def.Delete)
	set(&k.Detail, def.Detail)
	set(&k.Confirm, def.Confirm)
	set(&k.Cancel, def.Cancel)
	set(&k.Edit, def.Edit)
	set(&k.NextPage, def.NextPage)
	set(&k.PrevPage, def.PrevPage)
	set(&k.PageSize, def.PageSize)
	set(&k.FilterStatus, def.FilterStatus)
	set(&k.FilterPriority, def.FilterPriority)
	set(&k.ClearFilters, def.ClearFilters)
	set(&k.Refresh, def.Refresh)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	return Config{
		Backend:         BackendRemote,
		APIURL:          DefaultAPIURL,
		DBPath:          filepath.Join(dir, DefaultDBName),
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{5, 10, 20},
		FetchTimeoutSec: DefaultFetchTimeout,
		Watch:           true,
		Listen:          DefaultListen,
		LogLevel:        "info",
		LogFile:         filepath.Join(dir, AppName+".log"),
		Keys: Keymap{
			Quit:           "q",
			Add:            "a",
			Up:             "k",
			Down:           "j",
			Delete:         "d",
			Detail:         "enter",
			Confirm:        "enter",
			Cancel:         "esc",
			Edit:           "e",
			NextPage:       "l",
			PrevPage:       "h",
			PageSize:       "z",
			FilterStatus:   "s",
			FilterPriority: "p",
			ClearFilters:   "c",
			Refresh:        "r",
		},
	}
}
