// Package config loads the settings of the engine from a TOML file.
//
//	[storage]
//	max_pages = 100
//
//	[log]
//	level = "info"
//	file = "/var/log/sqlite-engine/engine.log"
//	max_size_mb = 10
//	max_backups = 3
//	max_age_days = 28
//	compress = false
//
//	[session]
//	prompt = "db> "
//
// Missing keys keep their defaults.
package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/ynnekF/sqlite-engine/internal/logger"
	"github.com/ynnekF/sqlite-engine/pager"
)

type Config struct {
	Storage Storage
	Log     Log
	Session Session
}

type Storage struct {
	// MaxPages bounds the size of the table file, meta page included.
	MaxPages uint32 `validate:"gte=2"`
}

type Log struct {
	Level      string `validate:"oneof=debug info warn warning error"`
	File       string
	MaxSizeMB  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
	Compress   bool
}

type Session struct {
	// Prompt is shown before each line when the input is a terminal.
	Prompt string `validate:"max=64"`
}

func Default() Config {
	return Config{
		Storage: Storage{MaxPages: pager.DefaultMaxPages},
		Log: Log{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Session: Session{Prompt: "db> "},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	cfg, err := fromTree(tree)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse reads TOML content over the defaults.
func Parse(content string) (Config, error) {
	tree, err := toml.Load(content)
	if err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	return fromTree(tree)
}

func fromTree(tree *toml.Tree) (cfg Config, err error) {
	cfg = Default()
	r := reader{tree: tree}

	cfg.Storage.MaxPages = uint32(r.integer("storage.max_pages", int64(cfg.Storage.MaxPages)))

	cfg.Log.Level = r.str("log.level", cfg.Log.Level)
	cfg.Log.File = r.str("log.file", cfg.Log.File)
	cfg.Log.MaxSizeMB = int(r.integer("log.max_size_mb", int64(cfg.Log.MaxSizeMB)))
	cfg.Log.MaxBackups = int(r.integer("log.max_backups", int64(cfg.Log.MaxBackups)))
	cfg.Log.MaxAgeDays = int(r.integer("log.max_age_days", int64(cfg.Log.MaxAgeDays)))
	cfg.Log.Compress = r.boolean("log.compress", cfg.Log.Compress)

	cfg.Session.Prompt = r.str("session.prompt", cfg.Session.Prompt)

	if r.err != nil {
		return Config{}, r.err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return
}

var validate = validator.New()

// Validate checks the value ranges of cfg.
func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Logger returns the settings of the logger.
func (cfg Config) Logger() logger.Config {
	return logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
}

// reader keeps the first type error of a sequence of lookups.
type reader struct {
	tree *toml.Tree
	err  error
}

func (r *reader) get(key string, def any) any {
	if r.err != nil {
		return def
	}
	return r.tree.GetDefault(key, def)
}

func (r *reader) mismatch(key string, val any, want string) {
	if r.err == nil {
		r.err = errors.Errorf("%s: want %s, got %T", key, want, val)
	}
}

func (r *reader) str(key, def string) string {
	val := r.get(key, def)
	s, ok := val.(string)
	if !ok {
		r.mismatch(key, val, "string")
		return def
	}
	return s
}

func (r *reader) integer(key string, def int64) int64 {
	val := r.get(key, def)
	n, ok := val.(int64)
	if !ok {
		r.mismatch(key, val, "integer")
		return def
	}
	if n < 0 || n > 1<<32-1 {
		r.mismatch(key, val, "integer in [0, 4294967295]")
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	val := r.get(key, def)
	b, ok := val.(bool)
	if !ok {
		r.mismatch(key, val, "boolean")
		return def
	}
	return b
}
