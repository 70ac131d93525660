package speech

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultCacheDir matches the serverless scratch directory used by earlier deployments
const DefaultCacheDir = "/tmp/tts-cache"

// DiskCache stores synthesized MP3s as <key>.mp3 files
type DiskCache struct {
	dir string
}

// NewDiskCache creates dir if needed
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create speech cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (d *DiskCache) path(key string) string {
	return filepath.Join(d.dir, key+".mp3")
}

// Get returns the cached audio for key
func (d *DiskCache) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes audio through a temp file so readers never see a partial MP3
func (d *DiskCache) Put(key string, audio []byte) error {
	tmp, err := os.CreateTemp(d.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), d.path(key))
}
