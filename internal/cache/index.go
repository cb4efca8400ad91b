package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
)

// Index maps cache keys to archive locations.
type Index interface {
	Lookup(ctx context.Context, key string) (path string, ok bool, err error)
	Record(ctx context.Context, key, path string) error
}

// ArchivePath is where the archive for key lives under dir.
func ArchivePath(dir, key string) string {
	return filepath.Join(dir, key+".tar.zst")
}

// DirIndex treats the presence of an archive file as the index entry.
type DirIndex struct {
	Dir string
}

func (d DirIndex) Lookup(_ context.Context, key string) (string, bool, error) {
	path := ArchivePath(d.Dir, key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return path, true, nil
}

func (d DirIndex) Record(context.Context, string, string) error {
	return nil
}

// RedisIndex shares cache entries between runner processes. Entries whose
// archive has disappeared from disk are treated as misses.
type RedisIndex struct {
	RDB    *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisIndex(rdb *redis.Client) *RedisIndex {
	return &RedisIndex{
		RDB:    rdb,
		Prefix: "extci:cache:",
		TTL:    7 * 24 * time.Hour,
	}
}

func (r *RedisIndex) Lookup(ctx context.Context, key string) (string, bool, error) {
	path, err := r.RDB.Get(ctx, r.Prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = r.RDB.Del(ctx, r.Prefix+key).Err()
			return "", false, nil
		}
		return "", false, err
	}

	// refresh the TTL on every hit
	_ = r.RDB.Expire(ctx, r.Prefix+key, r.TTL).Err()
	return path, true, nil
}

func (r *RedisIndex) Record(ctx context.Context, key, path string) error {
	return r.RDB.Set(ctx, r.Prefix+key, path, r.TTL).Err()
}
