package gallery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

func seedEncodings(t *testing.T, encodings *mock.EncodingStore, keys ...string) {
	t.Helper()
	for i, key := range keys {
		encodings.Add(store.FaceEncoding{
			ID:          int64(i + 1),
			EmployeeKey: key,
			Descriptor:  []float32{float32(i), float32(i) + 1, float32(i) + 2},
		})
	}
}

func TestReloadBuildsSnapshot(t *testing.T) {
	encodings := mock.NewEncodingStore(nil)
	seedEncodings(t, encodings, "emp-001", "emp-002", "emp-003")

	g := New(encodings)
	count, err := g.Reload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 encodings, got %d", count)
	}

	snap := g.Snapshot()
	if snap.Len() != 3 {
		t.Errorf("expected snapshot of 3, got %d", snap.Len())
	}
	if snap.Version() != 1 {
		t.Errorf("expected version 1, got %d", snap.Version())
	}
}

func TestEmptyGalleryBeforeReload(t *testing.T) {
	g := New(mock.NewEncodingStore(nil))
	if snap := g.Snapshot(); snap.Len() != 0 {
		t.Errorf("expected empty initial snapshot, got %d entries", snap.Len())
	}
}

func TestReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	encodings := mock.NewEncodingStore(nil)
	seedEncodings(t, encodings, "emp-001")

	g := New(encodings)
	if _, err := g.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := g.Snapshot()

	encodings.ListActiveError = errors.New("connection refused")
	if _, err := g.Reload(context.Background()); err == nil {
		t.Fatal("expected reload to fail")
	}

	after := g.Snapshot()
	if after != before {
		t.Error("failed reload must keep the previous snapshot active")
	}
}

func TestSnapshotStaysConsistentDuringReloads(t *testing.T) {
	encodings := mock.NewEncodingStore(nil)
	seedEncodings(t, encodings, "emp-001", "emp-002")

	g := New(encodings)
	if _, err := g.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = g.Reload(context.Background())
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := g.Snapshot()
			// A snapshot must never be observed half-built.
			if got := len(snap.Candidates([]float32{0, 1, 2})); got != snap.Len() {
				t.Errorf("inconsistent snapshot: %d candidates for %d entries", got, snap.Len())
				return
			}
		}
	}()

	wg.Wait()
}

func TestReloadSkipsEmptyDescriptors(t *testing.T) {
	encodings := mock.NewEncodingStore(nil)
	encodings.Add(store.FaceEncoding{ID: 1, EmployeeKey: "emp-001", Descriptor: []float32{1, 2, 3}})
	encodings.Add(store.FaceEncoding{ID: 2, EmployeeKey: "emp-002"})

	g := New(encodings)
	count, err := g.Reload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected encodings without descriptors to be skipped, got %d", count)
	}
}
