package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/hsearch/directory"
)

const (
	manifestPrefix = "segments_"
	// CurrentFileName holds the name of the latest manifest.
	CurrentFileName = "segments.current"

	manifestVersion = 1
)

// Manifest describes one commit of an index.
type Manifest struct {
	Version     int           `json:"version"`
	Generation  int64         `json:"generation"`
	Index       string        `json:"index"`
	NextSegment int64         `json:"next_segment"`
	Segments    []SegmentInfo `json:"segments"`
}

// SegmentInfo describes a committed segment.
type SegmentInfo struct {
	Name        string      `json:"name"`
	MaxDoc      int         `json:"max_doc"`
	Compression Compression `json:"compression"`
	// DelGen is the generation of the live-docs file, 0 if nothing is deleted.
	DelGen   int64 `json:"del_gen,omitempty"`
	DelCount int   `json:"del_count,omitempty"`
}

// FileName returns the segment file name.
func (s SegmentInfo) FileName() string { return s.Name + SegmentExtension }

// LiveDocsFileName returns the live-docs file name, or "" if none.
func (s SegmentInfo) LiveDocsFileName() string {
	if s.DelGen == 0 {
		return ""
	}
	return liveDocsFileName(s.Name, s.DelGen)
}

func liveDocsFileName(segment string, gen int64) string {
	return segment + "_" + strconv.FormatInt(gen, 36) + LiveDocsExtension
}

// ManifestFileName returns the name of the manifest of generation gen.
func ManifestFileName(gen int64) string {
	return manifestPrefix + strconv.FormatInt(gen, 36)
}

// ParseManifestGeneration extracts the generation from a manifest name.
func ParseManifestGeneration(name string) (int64, bool) {
	if !strings.HasPrefix(name, manifestPrefix) {
		return 0, false
	}
	gen, err := strconv.ParseInt(name[len(manifestPrefix):], 36, 64)
	if err != nil || gen <= 0 {
		return 0, false
	}
	return gen, true
}

// CommitPointer stores which manifest is current.
//
// Swap must be atomic: it fails with ErrConcurrentCommit when the current
// value is no longer old. Implementations backed by object stores without
// conditional writes need an external store, see directory/s3.CommitStore.
type CommitPointer interface {
	// Load returns the current manifest name, or "" if the index is empty.
	Load(ctx context.Context) (string, error)
	// Swap replaces old with next.
	Swap(ctx context.Context, old, next string) error
}

// ErrConcurrentCommit is returned when another writer advanced the commit
// pointer first.
var ErrConcurrentCommit = errors.New("index: concurrent commit")

// directoryPointer keeps the current manifest name in a file of the
// directory. It relies on the writer being the only committer.
type directoryPointer struct {
	dir directory.Directory
}

// NewDirectoryCommitPointer stores the pointer in the file segments.current.
func NewDirectoryCommitPointer(dir directory.Directory) CommitPointer {
	return &directoryPointer{dir: dir}
}

func (p *directoryPointer) Load(ctx context.Context) (string, error) {
	data, err := directory.ReadAll(ctx, p.dir, CurrentFileName)
	if errors.Is(err, directory.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (p *directoryPointer) Swap(ctx context.Context, old, next string) error {
	cur, err := p.Load(ctx)
	if err != nil {
		return err
	}
	if cur != old {
		return fmt.Errorf("%w: expected %q, found %q", ErrConcurrentCommit, old, cur)
	}
	return p.dir.Put(ctx, CurrentFileName, []byte(next))
}

func loadManifest(ctx context.Context, dir directory.Directory, name string) (*Manifest, error) {
	data, err := directory.ReadAll(ctx, dir, name)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("index: manifest %s: %w", name, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("index: unsupported manifest version %d (expected %d)", m.Version, manifestVersion)
	}
	return &m, nil
}

func saveManifest(ctx context.Context, dir directory.Directory, m *Manifest) (string, error) {
	m.Version = manifestVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	name := ManifestFileName(m.Generation)
	if err := dir.Put(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}
