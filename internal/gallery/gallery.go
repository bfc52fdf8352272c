// Package gallery keeps the in-memory set of enrolled face encodings that
// live recognition matches against. The set is loaded from the store into an
// immutable snapshot; reloads build a fresh snapshot on the side and swap it
// in atomically, so a recognition in flight always sees one consistent
// gallery and never blocks on a reload.
package gallery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const (
	// hnswMaxNeighbors is the M parameter of the candidate graph.
	hnswMaxNeighbors = 16
	// exactScanCutoff is the gallery size below which a full scan is used
	// instead of the graph. A full scan is exact and, at these sizes, cheap.
	exactScanCutoff = 1024
	// searchCandidates is how many graph neighbors are pulled before exact
	// re-scoring.
	searchCandidates = 16
)

// Entry is one enrolled encoding inside a snapshot.
type Entry struct {
	EncodingID  int64
	EmployeeKey string
	Descriptor  []float32
}

// Snapshot is an immutable view of the gallery. It is safe for concurrent
// use without locking; a reload never mutates an existing snapshot.
type Snapshot struct {
	entries  []Entry
	graph    *hnsw.Graph[int64]
	byID     map[int64]int
	version  int64
	loadedAt time.Time
}

// Len returns the number of encodings in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Version returns the monotonically increasing snapshot version.
func (s *Snapshot) Version() int64 {
	return s.version
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Entries returns all encodings in the snapshot. Callers must not modify
// the returned slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Candidates returns the entries worth exact scoring against a probe
// descriptor. Small galleries are returned whole; large ones are narrowed
// through the neighbor graph first.
func (s *Snapshot) Candidates(descriptor []float32) []Entry {
	if len(s.entries) <= exactScanCutoff || s.graph == nil {
		return s.entries
	}

	neighbors := s.graph.Search(descriptor, searchCandidates)
	candidates := make([]Entry, 0, len(neighbors))
	for _, n := range neighbors {
		if idx, ok := s.byID[n.Key]; ok {
			candidates = append(candidates, s.entries[idx])
		}
	}
	return candidates
}

// Gallery owns the current snapshot and knows how to rebuild it from the
// encoding store.
type Gallery struct {
	reader   store.EncodingReader
	current  atomic.Pointer[Snapshot]
	version  atomic.Int64
	reloadMu sync.Mutex
}

// New creates a gallery starting from an empty snapshot. Call Reload to
// populate it.
func New(reader store.EncodingReader) *Gallery {
	g := &Gallery{reader: reader}
	g.current.Store(&Snapshot{loadedAt: time.Now()})
	return g
}

// Snapshot returns the current gallery snapshot. The result stays valid and
// consistent even when a reload swaps in a newer one concurrently.
func (g *Gallery) Snapshot() *Snapshot {
	return g.current.Load()
}

// Reload rebuilds the snapshot from the store and swaps it in. On failure
// the previous snapshot stays active. Concurrent reloads are serialized;
// lookups are never blocked.
func (g *Gallery) Reload(ctx context.Context) (int, error) {
	g.reloadMu.Lock()
	defer g.reloadMu.Unlock()

	encodings, err := g.reader.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load encodings: %w", err)
	}

	snap := buildSnapshot(encodings, g.version.Add(1))
	g.current.Store(snap)

	return snap.Len(), nil
}

func buildSnapshot(encodings []store.FaceEncoding, version int64) *Snapshot {
	snap := &Snapshot{
		entries:  make([]Entry, 0, len(encodings)),
		byID:     make(map[int64]int, len(encodings)),
		version:  version,
		loadedAt: time.Now(),
	}

	for _, enc := range encodings {
		if len(enc.Descriptor) == 0 {
			continue
		}
		snap.byID[enc.ID] = len(snap.entries)
		snap.entries = append(snap.entries, Entry{
			EncodingID:  enc.ID,
			EmployeeKey: enc.EmployeeKey,
			Descriptor:  enc.Descriptor,
		})
	}

	if len(snap.entries) > exactScanCutoff {
		graph := hnsw.NewGraph[int64]()
		graph.M = hnswMaxNeighbors
		graph.Ml = 1.0 / float64(hnswMaxNeighbors)
		graph.Distance = hnsw.EuclideanDistance
		for _, entry := range snap.entries {
			graph.Add(hnsw.MakeNode(entry.EncodingID, entry.Descriptor))
		}
		snap.graph = graph
	}

	return snap
}
