package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/hammamikhairi/ottoread/internal/logger"
)

// cacheKey identifies one synthesized clip. A clip rendered with another
// voice or rate is a different clip.
type cacheKey struct {
	voice string
	rate  float64
	text  string
}

func (k cacheKey) hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%.1f:%s", k.voice, k.rate, k.text)))
	return hex.EncodeToString(sum[:])
}

// AudioCache keeps synthesized WAV clips in memory, backed by an optional
// directory of <hash>.wav files. The directory is always read when set;
// it is only written to when diskWrite is true, so a read-only cache can
// still warm-start from earlier runs.
type AudioCache struct {
	log       *logger.Logger
	fs        afero.Fs
	dir       string
	diskWrite bool

	mu     sync.Mutex
	clips  map[string][]byte
	hits   int64
	misses int64
}

// NewAudioCache builds a cache over fs (the OS filesystem when nil).
// An empty dir disables the disk layer.
func NewAudioCache(fs afero.Fs, dir string, diskWrite bool, log *logger.Logger) *AudioCache {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir != "" && diskWrite {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			log.Error("cache: create %s: %v", dir, err)
		}
	}
	return &AudioCache{
		log:       log,
		fs:        fs,
		dir:       dir,
		diskWrite: diskWrite,
		clips:     make(map[string][]byte),
	}
}

// Get returns the clip for k. Clips found on disk are kept in memory
// afterwards.
func (c *AudioCache) Get(k cacheKey) ([]byte, bool) {
	h := k.hash()

	c.mu.Lock()
	clip, ok := c.clips[h]
	if ok {
		c.hits++
	}
	c.mu.Unlock()
	if ok {
		c.log.Debug("cache: mem hit %q (%d bytes)", truncate(k.text, 40), len(clip))
		return clip, true
	}

	clip, ok = c.load(h)

	c.mu.Lock()
	if ok {
		c.clips[h] = clip
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if ok {
		c.log.Debug("cache: disk hit %q (%d bytes)", truncate(k.text, 40), len(clip))
	}
	return clip, ok
}

// Put stores a clip in memory, and on disk when writes are enabled.
func (c *AudioCache) Put(k cacheKey, clip []byte) {
	h := k.hash()

	c.mu.Lock()
	c.clips[h] = clip
	n := len(c.clips)
	c.mu.Unlock()
	c.log.Debug("cache: stored %q (%d bytes, %d clips)", truncate(k.text, 40), len(clip), n)

	if c.dir == "" || !c.diskWrite {
		return
	}
	if err := afero.WriteFile(c.fs, c.diskPath(h), clip, 0o644); err != nil {
		c.log.Error("cache: write %s: %v", c.diskPath(h), err)
	}
}

// Has reports whether a clip for k is in memory or on disk. It does not
// count toward the hit statistics.
func (c *AudioCache) Has(k cacheKey) bool {
	h := k.hash()

	c.mu.Lock()
	_, ok := c.clips[h]
	c.mu.Unlock()
	if ok || c.dir == "" {
		return ok
	}
	ok, _ = afero.Exists(c.fs, c.diskPath(h))
	return ok
}

// Len is the number of clips held in memory.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips)
}

func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops the in-memory clips and resets the statistics. Files on
// disk are left alone.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	c.clips = make(map[string][]byte)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

func (c *AudioCache) diskPath(h string) string {
	return filepath.Join(c.dir, h+".wav")
}

func (c *AudioCache) load(h string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	clip, err := afero.ReadFile(c.fs, c.diskPath(h))
	if err != nil {
		return nil, false
	}
	return clip, true
}
