package ingest

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
)

type member struct {
	name string
	body string
}

func buildTarGz(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: m.name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(m.body)),
		}))
		_, err := tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func record(id, formation, content string) string {
	return "<TEXTE_JURI_JUDI><ID>" + id + "</ID><TITRE>T" + id + "</TITRE><FORMATION>" +
		formation + "</FORMATION><CONTENU>" + content + "</CONTENU></TEXTE_JURI_JUDI>"
}

func loc(name string) source.Location {
	return source.Location{URL: "https://example.test/juri/" + name, Name: name}
}

type fakeLister struct {
	locs []source.Location
	err  error
}

func (f *fakeLister) List(context.Context) ([]source.Location, error) { return f.locs, f.err }

// fakeFetcher serves archives by name; names listed in fail return FetchError.
type fakeFetcher struct {
	blobs map[string][]byte
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, l source.Location) (io.ReadCloser, error) {
	if f.fail[l.Name] {
		return nil, &domain.FetchError{URL: l.URL, Status: 503}
	}
	blob, ok := f.blobs[l.Name]
	if !ok {
		return nil, &domain.FetchError{URL: l.URL, Status: 404}
	}
	return io.NopCloser(bytes.NewReader(blob)), nil
}

type fakeRepo struct {
	mu       sync.Mutex
	stored   map[string]domdec.Decision
	failIDs  map[string]bool
	indexErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{stored: map[string]domdec.Decision{}} }

func (r *fakeRepo) EnsureIndex(context.Context) error { return r.indexErr }

func (r *fakeRepo) Upsert(_ context.Context, d *domdec.Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if r.failIDs[d.ID()] {
		return &domain.StoreError{ID: d.ID(), Err: errors.New("write timeout")}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored[d.ID()] = *d
	return nil
}

func (r *fakeRepo) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.stored))
	for id := range r.stored {
		out = append(out, id)
	}
	return out
}

type countingRecorder struct {
	mu       sync.Mutex
	archives map[string]int
	records  map[string]int
	stages   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{archives: map[string]int{}, records: map[string]int{}, stages: map[string]int{}}
}

func (c *countingRecorder) ArchiveDone(status string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archives[status]++
}

func (c *countingRecorder) RecordDone(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[status]++
}

func (c *countingRecorder) Failure(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage]++
}
