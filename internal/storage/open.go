package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Kind string
	// Dir holds the JSON files for KindFile and is the default parent of the
	// SQLite database.
	Dir           string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	dir := opts.Dir
	if dir == "" {
		base, err := BaseDir()
		if err != nil {
			return nil, err
		}
		dir = base
	}

	switch opts.Kind {
	case "", KindFile:
		return NewFileBackend(dir)
	case KindSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(dir, "tdt.db")
		}
		return OpenSQLite(path)
	case KindRedis:
		b := NewRedisBackend(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err := b.Ping(ctx); err != nil {
			b.Close()
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or redis)", opts.Kind)
	}
}
