package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/jurisdoc/internal/db/memory"
	"github.com/kailas-cloud/jurisdoc/internal/domain"
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
	"github.com/kailas-cloud/jurisdoc/internal/domain/source"
	"github.com/kailas-cloud/jurisdoc/internal/parser"
	repodec "github.com/kailas-cloud/jurisdoc/internal/repository/decision"
	ucdec "github.com/kailas-cloud/jurisdoc/internal/usecase/decision"
)

func TestRun_CorruptMemberIsSkipped(t *testing.T) {
	blob := buildTarGz(t,
		member{"a/1.xml", record("1", "F", "un")},
		member{"a/2.xml", record("2", "F", "deux")},
		member{"a/broken.xml", "<TEXTE><ID>9</ID><CONTENU>oops</TEXTE>"},
		member{"a/3.xml", record("3", "G", "trois")},
	)
	repo := newFakeRepo()
	rec := newCountingRecorder()
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"a.tar.gz": blob}},
		parser.New(), repo, Config{},
	).WithRecorder(rec)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1", "2", "3"}, repo.ids())
	assert.EqualValues(t, 1, sum.Archives)
	assert.EqualValues(t, 0, sum.ArchivesFailed)
	assert.EqualValues(t, 4, sum.Records)
	assert.EqualValues(t, 3, sum.RecordsStored)
	assert.EqualValues(t, 1, sum.RecordsSkipped)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, StageParse, sum.Failures[0].Stage)
	assert.Equal(t, "a/broken.xml", sum.Failures[0].Member)
	assert.NotEmpty(t, sum.RunID)

	assert.Equal(t, 3, rec.records[StatusStored])
	assert.Equal(t, 1, rec.records[StatusSkipped])
	assert.Equal(t, 1, rec.stages[string(StageParse)])
	assert.Equal(t, 1, rec.archives[StatusOK])
}

func TestRun_FetchFailureIsolated(t *testing.T) {
	blobs := map[string][]byte{
		"a.tar.gz": buildTarGz(t, member{"1.xml", record("1", "F", "x")}),
		"c.tar.gz": buildTarGz(t, member{"3.xml", record("3", "F", "z")}),
	}
	repo := newFakeRepo()
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz"), loc("b.tar.gz"), loc("c.tar.gz")}},
		&fakeFetcher{blobs: blobs, fail: map[string]bool{"b.tar.gz": true}},
		parser.New(), repo, Config{Workers: 2},
	)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1", "3"}, repo.ids())
	assert.EqualValues(t, 3, sum.Archives)
	assert.EqualValues(t, 1, sum.ArchivesFailed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, StageFetch, sum.Failures[0].Stage)
	assert.Equal(t, "b.tar.gz", sum.Failures[0].Archive)
	assert.Empty(t, sum.Failures[0].Member)
}

func TestRun_NotAnArchive(t *testing.T) {
	repo := newFakeRepo()
	svc := New(
		&fakeLister{locs: []source.Location{loc("bad.tar.gz"), loc("good.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{
			"bad.tar.gz":  []byte("<html>maintenance</html>"),
			"good.tar.gz": buildTarGz(t, member{"1.xml", record("1", "F", "x")}),
		}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, repo.ids())
	assert.EqualValues(t, 1, sum.ArchivesFailed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, StageArchive, sum.Failures[0].Stage)
}

func TestRun_RecordWithoutIDSkipped(t *testing.T) {
	repo := newFakeRepo()
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"a.tar.gz": buildTarGz(t,
			member{"noid.xml", "<R><TITRE>t</TITRE><CONTENU>orphan</CONTENU></R>"},
			member{"ok.xml", record("1", "F", "x")},
		)}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, repo.ids())
	assert.EqualValues(t, 1, sum.RecordsSkipped)
	require.Len(t, sum.Failures, 1)
	assert.Contains(t, sum.Failures[0].Err, domain.ErrMissingID.Error())
}

func TestRun_OverlongIDSkipped(t *testing.T) {
	repo := newFakeRepo()
	longID := strings.Repeat("J", domdec.MaxIDLength+1)
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"a.tar.gz": buildTarGz(t,
			member{"long.xml", record(longID, "F", "x")},
			member{"ok.xml", record("1", "F", "y")},
		)}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, repo.ids())
	assert.EqualValues(t, 1, sum.RecordsSkipped)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, StageParse, sum.Failures[0].Stage)
	assert.Equal(t, "long.xml", sum.Failures[0].Member)
	assert.Contains(t, sum.Failures[0].Err, domain.ErrIDTooLong.Error())
}

func TestRun_StoreFailureSkipsRecord(t *testing.T) {
	repo := newFakeRepo()
	repo.failIDs = map[string]bool{"2": true}
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"a.tar.gz": buildTarGz(t,
			member{"1.xml", record("1", "F", "x")},
			member{"2.xml", record("2", "F", "y")},
		)}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, repo.ids())
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, StageStore, sum.Failures[0].Stage)
	assert.Equal(t, "2.xml", sum.Failures[0].Member)
}

func TestRun_DiscoveryErrorIsFatal(t *testing.T) {
	discErr := &domain.DiscoveryError{URL: "https://example.test/juri/", Status: 500}
	svc := New(&fakeLister{err: discErr}, &fakeFetcher{}, parser.New(), newFakeRepo(), Config{})

	sum, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDiscovery)
	assert.Zero(t, sum.Archives)
}

func TestRun_EnsureIndexError(t *testing.T) {
	repo := newFakeRepo()
	repo.indexErr = domain.ErrStore
	svc := New(&fakeLister{}, &fakeFetcher{}, parser.New(), repo, Config{})

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestRun_MaxArchives(t *testing.T) {
	blobs := map[string][]byte{}
	var locs []source.Location
	for i := range 5 {
		name := fmt.Sprintf("%d.tar.gz", i)
		blobs[name] = buildTarGz(t, member{"r.xml", record(fmt.Sprint(i), "F", "x")})
		locs = append(locs, loc(name))
	}
	repo := newFakeRepo()
	svc := New(&fakeLister{locs: locs}, &fakeFetcher{blobs: blobs}, parser.New(), repo, Config{MaxArchives: 2})

	sum, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.Archives)
	assert.ElementsMatch(t, []string{"0", "1"}, repo.ids())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := newFakeRepo()
	svc := New(
		&fakeLister{locs: []source.Location{loc("a.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"a.tar.gz": buildTarGz(t, member{"1.xml", record("1", "F", "x")})}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, sum.RecordsStored)
	assert.Empty(t, repo.ids())
}

func TestCollector_FailuresCapped(t *testing.T) {
	c := newCollector("run")
	for range MaxFailures + 10 {
		c.fail(Failure{Stage: StageParse})
	}
	assert.Len(t, c.summary().Failures, MaxFailures)
}

// Two records ingested end to end into the in-process store, then queried.
func TestRun_EndToEnd_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repo := repodec.New(store, repodec.Config{})

	blob := buildTarGz(t,
		member{"juri/1.xml", "<R><ID>1</ID><FORMATION>F</FORMATION><CONTENU>hello world</CONTENU></R>"},
		member{"juri/2.xml", "<R><ID>2</ID><FORMATION>F</FORMATION><CONTENU>hello there</CONTENU></R>"},
	)
	svc := New(
		&fakeLister{locs: []source.Location{loc("juri.tar.gz")}},
		&fakeFetcher{blobs: map[string][]byte{"juri.tar.gz": blob}},
		parser.New(), repo, Config{},
	)

	sum, err := svc.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, sum.RecordsStored)

	q := ucdec.New(repo)

	hits, err := q.Search(ctx, "world", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "1", hits[0].ID())

	byForm, err := q.FilterByFormation(ctx, "F")
	require.NoError(t, err)
	ids := make([]string, 0, len(byForm))
	for _, s := range byForm {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)

	// A second pass is idempotent.
	_, err = svc.Run(ctx)
	require.NoError(t, err)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
