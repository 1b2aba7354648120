package dispatch

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/minio/blake2b-simd"
)

// KeyStrategy decides what identifies an input file in the memo key.
type KeyStrategy int

const (
	// KeyPathSize identifies a file by its absolute path and size. Editing a
	// file in place without changing its size is not noticed.
	KeyPathSize KeyStrategy = iota

	// KeyContent identifies a file by its path and a BLAKE2b-256 digest of
	// its contents.
	KeyContent
)

func (k KeyStrategy) String() string {
	switch k {
	case KeyPathSize:
		return "path-size"
	case KeyContent:
		return "content"
	}

	return fmt.Sprintf("KeyStrategy(%d)", int(k))
}

// ParseKeyStrategy accepts path-size (the default when empty) or content.
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch s {
	case "", "path-size":
		return KeyPathSize, nil
	case "content":
		return KeyContent, nil
	}

	return KeyPathSize, fmt.Errorf("unknown cache key strategy %q: must be path-size or content", s)
}

// FileKey is the identity of one input file.
type FileKey struct {
	Path   string
	Size   int64
	Digest string
}

func (f FileKey) String() string {
	if f.Digest != "" {
		return f.Path + "@" + f.Digest
	}

	return f.Path + "#" + strconv.FormatInt(f.Size, 10)
}

// FileKey computes the identity of the file at path.
func (k KeyStrategy) FileKey(path string) (FileKey, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileKey{}, pfx.Err(err)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return FileKey{}, pfx.Err(err)
	}

	key := FileKey{Path: abs, Size: st.Size()}
	if k == KeyContent {
		if key.Digest, err = digestFile(abs); err != nil {
			return FileKey{}, err
		}
	}

	return key, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", pfx.Err(err)
	}
	defer f.Close()

	h, err := blake2b.New(&blake2b.Config{Size: 32})
	if err != nil {
		return "", pfx.Err(err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", pfx.Err(err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Entry is a memoized task result.
type Entry struct {
	Key     string
	TaskID  string
	Outputs []string
}

// MemoStore persists memo entries between runs.
type MemoStore interface {
	LoadMemo(key string) (outputs []string, ok bool, err error)
	SaveMemo(key, taskID string, outputs []string) error
}

// Cache memoizes completed tasks. It is the only state shared between
// concurrently running tasks and is safe for concurrent use.
type Cache struct {
	strategy KeyStrategy
	store    MemoStore

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache returns an empty cache. store may be nil, in which case entries
// live only as long as the process.
func NewCache(strategy KeyStrategy, store MemoStore) *Cache {
	return &Cache{
		strategy: strategy,
		store:    store,
		entries:  make(map[string]Entry),
	}
}

// Strategy is the cache's key strategy.
func (c *Cache) Strategy() KeyStrategy {
	return c.strategy
}

// Key derives the memo key of a task from its tool, its arguments and the
// identity of each input file.
func (c *Cache) Key(t *Task) (string, error) {
	parts := []string{t.Tool.String(), strings.Join(t.Args, "\x00")}
	for _, in := range t.Inputs {
		fk, err := c.strategy.FileKey(in)
		if err != nil {
			return "", err
		}
		parts = append(parts, fk.String())
	}

	h, err := blake2b.New(&blake2b.Config{Size: 32})
	if err != nil {
		return "", pfx.Err(err)
	}
	io.WriteString(h, strings.Join(parts, "\x1f"))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Lookup returns a memoized entry for key. Entries only in the backing store
// are loaded into memory on first use.
func (c *Cache) Lookup(key string) (Entry, bool, error) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()
	if exists || c.store == nil {
		return e, exists, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Someone may have loaded it while we waited for the lock.
	if e, exists = c.entries[key]; exists {
		return e, true, nil
	}

	outputs, ok, err := c.store.LoadMemo(key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	e = Entry{Key: key, Outputs: outputs}
	c.entries[key] = e

	return e, true, nil
}

// Record memoizes a completed task.
func (c *Cache) Record(e Entry) error {
	c.mu.Lock()
	c.entries[e.Key] = e
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}

	return c.store.SaveMemo(e.Key, e.TaskID, e.Outputs)
}

// Forget drops an entry from memory, for example when its outputs have been
// removed.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// outputsExist reports whether every output of a memoized entry is still on
// disk.
func outputsExist(outputs []string) bool {
	for _, out := range outputs {
		if _, err := os.Stat(out); err != nil {
			return false
		}
	}

	return true
}
