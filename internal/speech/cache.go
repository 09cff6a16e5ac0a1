package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache limits.
const (
	DefaultMaxFiles         = 100
	DefaultCleanupThreshold = 80
	defaultBatchLimit       = 4
)

// ErrInvalidName is returned for file names that could escape the cache
// directory or are not audio files.
var ErrInvalidName = errors.New("invalid audio file name")

// Cache stores synthesized audio in a directory.
//
// Thread-safety: Cache is safe for concurrent use. Eviction and the final
// rename are serialized, synthesis is not. Because several syntheses can
// finish together, eviction runs again under the lock right before each
// rename; the early pass in Generate only frees space ahead of time.
type Cache struct {
	dir        string
	synth      Synthesizer
	maxFiles   int
	threshold  int
	batchLimit int
	logger     *zap.Logger
	newName    func() string

	mu sync.Mutex
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLimits sets the maximum file count and the count that triggers
// eviction. Non-positive values keep the defaults.
func WithLimits(maxFiles, threshold int) CacheOption {
	return func(c *Cache) {
		if maxFiles > 0 {
			c.maxFiles = maxFiles
		}
		if threshold > 0 {
			c.threshold = threshold
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNameFunc overrides random file name generation.
func WithNameFunc(fn func() string) CacheOption {
	return func(c *Cache) {
		if fn != nil {
			c.newName = fn
		}
	}
}

// WithBatchLimit bounds concurrent synthesis in Batch.
func WithBatchLimit(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.batchLimit = n
		}
	}
}

// NewCache creates a Cache rooted at dir, creating it if needed.
func NewCache(dir string, synth Synthesizer, opts ...CacheOption) (*Cache, error) {
	if synth == nil {
		return nil, errors.New("new cache: synthesizer is required")
	}
	c := &Cache{
		dir:        dir,
		synth:      synth,
		maxFiles:   DefaultMaxFiles,
		threshold:  DefaultCleanupThreshold,
		batchLimit: defaultBatchLimit,
		logger:     zap.NewNop(),
		newName: func() string {
			id := uuid.New()
			return fmt.Sprintf("%x", id[:])
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.threshold > c.maxFiles {
		c.threshold = c.maxFiles
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Generate synthesizes text and stores it. It returns the file name
// (without directory).
func (c *Cache) Generate(ctx context.Context, text, lang string, slow bool) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	c.mu.Lock()
	c.evict()
	c.mu.Unlock()

	audio, err := c.synth.Synthesize(ctx, Request{Text: text, Lang: lang, Slow: slow})
	if err != nil {
		c.logger.Error("tts generation failed", zap.String("text", preview(text)), zap.Error(err))
		return "", fmt.Errorf("tts generation failed: %w", err)
	}

	name := c.newName() + "." + audio.Format
	if err := c.write(name, audio.Data); err != nil {
		return "", err
	}

	c.logger.Info("generated tts file", zap.String("file", name), zap.String("text", preview(text)))
	return name, nil
}

// write stores data under name via a temp file so readers never observe
// a partial file.
func (c *Cache) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tts-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close audio file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict()
	if err := os.Rename(tmpName, filepath.Join(c.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move audio file: %w", err)
	}
	return nil
}

type audioFile struct {
	path    string
	modTime time.Time
}

// evict removes the oldest files once the count passes the threshold,
// leaving room for one more file under maxFiles. Caller holds c.mu.
func (c *Cache) evict() {
	files, err := c.audioFiles()
	if err != nil {
		c.logger.Error("tts cache scan failed", zap.Error(err))
		return
	}
	// A full cache is cleaned even when threshold == maxFiles, otherwise
	// the next rename would overshoot.
	if len(files) <= c.threshold && len(files) < c.maxFiles {
		return
	}

	// Keep maxFiles-1 so the file about to be written still fits.
	excess := len(files) - (c.maxFiles - 1)
	if excess <= 0 {
		return
	}

	c.logger.Info("tts cache over threshold, cleaning up",
		zap.Int("files", len(files)), zap.Int("threshold", c.threshold))

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	removed := 0
	for _, f := range files[:excess] {
		if err := os.Remove(f.path); err != nil {
			c.logger.Warn("failed to delete old tts file", zap.String("path", f.path), zap.Error(err))
			continue
		}
		removed++
	}
	c.logger.Info("cleaned up old tts files", zap.Int("removed", removed))
}

func (c *Cache) audioFiles() ([]audioFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	var files []audioFile
	for _, e := range entries {
		if e.IsDir() || !isAudioName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, audioFile{path: filepath.Join(c.dir, e.Name()), modTime: info.ModTime()})
	}
	return files, nil
}

// Len returns the number of audio files in the cache.
func (c *Cache) Len() (int, error) {
	files, err := c.audioFiles()
	if err != nil {
		return 0, fmt.Errorf("list audio files: %w", err)
	}
	return len(files), nil
}

// Path returns the full path for a cached file name.
func (c *Cache) Path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(c.dir, name), nil
}

// Delete removes a cached file. It reports whether a file was removed.
func (c *Cache) Delete(name string) bool {
	path, err := c.Path(name)
	if err != nil {
		c.logger.Warn("refusing to delete tts file", zap.String("file", name), zap.Error(err))
		return false
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("tts file not found for deletion", zap.String("file", name))
		} else {
			c.logger.Error("failed to delete tts file", zap.String("file", name), zap.Error(err))
		}
		return false
	}
	c.logger.Info("deleted tts file", zap.String("file", name))
	return true
}

// Batch generates audio for each text with bounded concurrency. Texts that
// fail map to "".
func (c *Cache) Batch(ctx context.Context, texts []string, lang string, slow bool) map[string]string {
	results := make(map[string]string, len(texts))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.batchLimit)
	for _, text := range texts {
		g.Go(func() error {
			name, err := c.Generate(ctx, text, lang, slow)
			if err != nil {
				c.logger.Error("batch tts failed", zap.String("text", preview(text)), zap.Error(err))
			}
			mu.Lock()
			results[text] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SpeakCalculation generates "Calculating <expression>" and
// "The result is <result>" clips.
func (c *Cache) SpeakCalculation(ctx context.Context, expression, result string) (exprFile, resultFile string, err error) {
	exprFile, err = c.Generate(ctx, "Calculating "+expression, "en", false)
	if err != nil {
		return "", "", fmt.Errorf("speak expression: %w", err)
	}
	resultFile, err = c.Generate(ctx, "The result is "+result, "en", false)
	if err != nil {
		return "", "", fmt.Errorf("speak result: %w", err)
	}
	return exprFile, resultFile, nil
}

func isAudioName(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return ext == FormatMP3 || ext == FormatWAV
}

func validName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	return isAudioName(name)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > 30 {
		return string(r[:30]) + "..."
	}
	return text
}
