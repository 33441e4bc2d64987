package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FixCache persists acquired observer fixes to disk so a restart can
// start from the last known location instead of the default. One JSON
// file per fix, timestamped filenames, oldest pruned beyond maxFiles.
type FixCache struct {
	dir      string
	maxFiles int
}

// NewFixCache creates a FixCache storing files in dir, keeping at most
// maxFiles.
func NewFixCache(dir string, maxFiles int) *FixCache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &FixCache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Write saves the fix to a timestamped file and prunes old files.
func (c *FixCache) Write(o Observer) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating fix cache dir: %w", err)
	}

	ts := o.AcquiredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling fix: %w", err)
	}

	path := filepath.Join(c.dir, fmt.Sprintf("fix_%d.json", ts.Unix()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing fix cache file: %w", err)
	}

	return c.prune()
}

// LoadLatest reads the newest cached fix by filename timestamp.
func (c *FixCache) LoadLatest() (Observer, error) {
	files, err := c.listFiles()
	if err != nil {
		return Observer{}, err
	}
	if len(files) == 0 {
		return Observer{}, fmt.Errorf("no cached fixes found")
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return Observer{}, fmt.Errorf("reading fix cache file: %w", err)
	}

	var o Observer
	if err := json.Unmarshal(data, &o); err != nil {
		return Observer{}, fmt.Errorf("parsing fix cache file %s: %w", latest.name, err)
	}
	return o, nil
}

type fixFile struct {
	name string
	ts   time.Time
}

func (c *FixCache) listFiles() ([]fixFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing fix cache dir: %w", err)
	}

	var files []fixFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "fix_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		tsStr := strings.TrimPrefix(name, "fix_")
		tsStr = strings.TrimSuffix(tsStr, ".json")
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, fixFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (c *FixCache) prune() error {
	files, err := c.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning fix cache file %s: %w", f.name, err)
		}
	}
	return nil
}
