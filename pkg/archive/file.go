package archive

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
)

const indexFilename = "results_index.json"

// indexEntry is the per-run record kept in the archive's index file, enough
// to answer filtered listings without opening every run document.
type indexEntry struct {
	Filename  string      `json:"filename"`
	Kind      device.Kind `json:"kind"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// FileArchive keeps one JSON document per run in a directory, plus an index
// file for quick lookups. Safe for concurrent use.
type FileArchive struct {
	dir string

	mu    sync.Mutex
	index map[string]indexEntry
}

// NewFileArchive opens (or creates) a directory-backed archive and loads its
// index.
func NewFileArchive(dir string) (*FileArchive, error) {
	if dir == "" {
		return nil, archiveError("open", errors.New("empty archive directory"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, archiveError("open", err)
	}
	a := &FileArchive{dir: dir, index: make(map[string]indexEntry)}
	raw, err := ioutil.ReadFile(a.indexPath())
	if os.IsNotExist(err) {
		return a, nil
	}
	if err != nil {
		return nil, archiveError("open", err)
	}
	if err := json.Unmarshal(raw, &a.index); err != nil {
		return nil, archiveError("open", errors.Wrapf(err, "corrupt index %s", a.indexPath()))
	}
	return a, nil
}

func (a *FileArchive) indexPath() string {
	return filepath.Join(a.dir, indexFilename)
}

// runFilename names a run document by creation date and ID.
func runFilename(run *sampler.TestRun) string {
	return run.CreatedAt.UTC().Format("20060102") + "_" + run.ID + ".json"
}

// Store writes the run document and updates the index.
func (a *FileArchive) Store(run *sampler.TestRun) error {
	if err := checkStorable(run); err != nil {
		return archiveError("store", err)
	}
	doc, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return archiveError("store", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	filename := runFilename(run)
	if err := ioutil.WriteFile(filepath.Join(a.dir, filename), doc, 0644); err != nil {
		return archiveError("store", err)
	}
	a.index[run.ID] = indexEntry{
		Filename:  filename,
		Kind:      run.Kind,
		Status:    string(run.Status),
		CreatedAt: run.CreatedAt,
	}
	return a.writeIndexLocked()
}

func (a *FileArchive) writeIndexLocked() error {
	raw, err := json.MarshalIndent(a.index, "", "  ")
	if err != nil {
		return archiveError("store", err)
	}
	if err := ioutil.WriteFile(a.indexPath(), raw, 0644); err != nil {
		return archiveError("store", err)
	}
	return nil
}

// Get loads one run by ID.
func (a *FileArchive) Get(id string) (*sampler.TestRun, error) {
	a.mu.Lock()
	entry, ok := a.index[id]
	a.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return a.load(entry.Filename)
}

func (a *FileArchive) load(filename string) (*sampler.TestRun, error) {
	raw, err := ioutil.ReadFile(filepath.Join(a.dir, filename))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, archiveError("get", err)
	}
	var run sampler.TestRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, archiveError("get", errors.Wrapf(err, "corrupt run document %s", filename))
	}
	return &run, nil
}

// Query snapshots the matching index entries most-recent-first, then loads
// run documents lazily as the consumer reads the channel.
func (a *FileArchive) Query(ctx context.Context, f Filter) (<-chan *sampler.TestRun, error) {
	a.mu.Lock()
	matches := make([]indexEntry, 0, len(a.index))
	for _, entry := range a.index {
		if f.matches(entry.Kind, entry.CreatedAt) {
			matches = append(matches, entry)
		}
	}
	a.mu.Unlock()
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	out := make(chan *sampler.TestRun)
	go func() {
		defer close(out)
		for _, entry := range matches {
			run, err := a.load(entry.Filename)
			if err != nil {
				log.Printf("archive query: skipping %s: %v", entry.Filename, err)
				continue
			}
			select {
			case out <- run:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close is a no-op; every write is flushed as it happens.
func (a *FileArchive) Close() error { return nil }
