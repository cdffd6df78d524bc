package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSearch = errors.New("search backend down")

type stubPlanner struct {
	plan  *SearchPlan
	err   error
	query string
}

func (p *stubPlanner) Plan(ctx context.Context, query string) (*SearchPlan, error) {
	p.query = query
	return p.plan, p.err
}

// stubSearcher fails on the queries in failOn and sleeps delay(query) first.
type stubSearcher struct {
	failOn map[string]bool
	delay  func(d SearchDirective) time.Duration

	mu    sync.Mutex
	calls []string
}

func (s *stubSearcher) Search(ctx context.Context, d SearchDirective) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, d.Query)
	s.mu.Unlock()
	if s.delay != nil {
		time.Sleep(s.delay(d))
	}
	if s.failOn[d.Query] {
		return "", errSearch
	}
	return "summary of " + d.Query, nil
}

// echoWriter reports how many results it was given.
type echoWriter struct {
	err     error
	called  bool
	query   string
	results []string
}

func (w *echoWriter) Write(ctx context.Context, query string, results []string) (*ReportArtifact, error) {
	w.called = true
	w.query = query
	w.results = results
	if w.err != nil {
		return nil, w.err
	}
	return &ReportArtifact{
		ShortSummary:   "echo",
		MarkdownReport: fmt.Sprintf("received %d results", len(results)),
	}, nil
}

func planOf(queries ...string) *SearchPlan {
	plan := &SearchPlan{}
	for _, q := range queries {
		plan.Searches = append(plan.Searches, SearchDirective{Query: q, Reason: "because " + q})
	}
	return plan
}

func newStore(t *testing.T) (storage.ArtifactStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return store, dir
}

func TestFanOut_DropsFailures(t *testing.T) {
	log := logger.NewTestLogger()
	searcher := &stubSearcher{failOn: map[string]bool{"b": true, "d": true}}

	results := FanOut(context.Background(), searcher, planOf("a", "b", "c", "d", "e"), log)

	assert.Len(t, results, 3)
	assert.ElementsMatch(t, []string{"summary of a", "summary of c", "summary of e"}, results)
	assert.Len(t, searcher.calls, 5)
	assert.Len(t, log.EntriesWithLevel("warn"), 2)
}

func TestFanOut_CompletionOrder(t *testing.T) {
	queries := []string{"q0", "q1", "q2", "q3"}
	index := map[string]int{}
	for i, q := range queries {
		index[q] = i
	}
	searcher := &stubSearcher{
		delay: func(d SearchDirective) time.Duration {
			return time.Duration(len(queries)-index[d.Query]) * 40 * time.Millisecond
		},
	}

	results := FanOut(context.Background(), searcher, planOf(queries...), logger.NewTestLogger())

	assert.Equal(t, []string{"summary of q3", "summary of q2", "summary of q1", "summary of q0"}, results)
}

func TestFanOut_EmptyPlan(t *testing.T) {
	searcher := &stubSearcher{}

	assert.Equal(t, []string{}, FanOut(context.Background(), searcher, &SearchPlan{}, logger.NewTestLogger()))
	assert.Equal(t, []string{}, FanOut(context.Background(), searcher, nil, logger.NewTestLogger()))
	assert.Empty(t, searcher.calls)
}

func TestFanOut_AllFail(t *testing.T) {
	searcher := &stubSearcher{failOn: map[string]bool{"a": true, "b": true}}

	results := FanOut(context.Background(), searcher, planOf("a", "b"), logger.NewTestLogger())

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestManagerRun_EndToEnd(t *testing.T) {
	store, dir := newStore(t)
	planner := &stubPlanner{plan: planOf("one", "two", "three")}
	searcher := &stubSearcher{failOn: map[string]bool{"two": true}}
	writer := &echoWriter{}

	m := NewManager(planner, searcher, writer, store, "", logger.NewTestLogger())
	res, err := m.Run(context.Background(), "SQL injection in comments form")
	require.NoError(t, err)

	assert.Equal(t, "SQL injection in comments form", planner.query)
	assert.Len(t, res.SearchResults, 2)
	assert.Equal(t, res.SearchResults, writer.results)
	assert.Equal(t, "SQL injection in comments form", writer.query)
	assert.NotEmpty(t, res.TraceID)

	data, err := os.ReadFile(filepath.Join(dir, DefaultReportName))
	require.NoError(t, err)
	assert.Equal(t, "received 2 results", string(data))
	assert.Equal(t, filepath.Join(dir, DefaultReportName), res.ReportLocation)
}

func TestManagerRun_NoSearchResultsStillWrites(t *testing.T) {
	store, dir := newStore(t)
	searcher := &stubSearcher{failOn: map[string]bool{"a": true}}
	writer := &echoWriter{}

	m := NewManager(&stubPlanner{plan: planOf("a")}, searcher, writer, store, "out.md", logger.NewTestLogger())
	res, err := m.Run(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, writer.called)
	assert.Empty(t, writer.results)
	assert.Equal(t, "echo", res.Report.ShortSummary)

	data, err := os.ReadFile(filepath.Join(dir, "out.md"))
	require.NoError(t, err)
	assert.Equal(t, "received 0 results", string(data))
}

func TestManagerRun_Overwrites(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultReportName), []byte("stale report content"), 0o644))

	m := NewManager(&stubPlanner{plan: planOf()}, &stubSearcher{}, &echoWriter{}, store, "", logger.NewTestLogger())
	_, err := m.Run(context.Background(), "q")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, DefaultReportName))
	require.NoError(t, err)
	assert.Equal(t, "received 0 results", string(data))
}

func TestManagerRun_PlanFailure(t *testing.T) {
	store, dir := newStore(t)
	writer := &echoWriter{}
	searcher := &stubSearcher{}
	log := logger.NewTestLogger()

	m := NewManager(&stubPlanner{err: errors.New("bad shape")}, searcher, writer, store, "", log)
	res, err := m.Run(context.Background(), "q")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrPlanFailed)
	assert.False(t, writer.called)
	assert.Empty(t, searcher.calls)
	assert.True(t, log.HasMessage("research failed"))
	assert.NoFileExists(t, filepath.Join(dir, DefaultReportName))
}

func TestManagerRun_WriteFailure(t *testing.T) {
	store, dir := newStore(t)
	boom := errors.New("writer exploded")

	m := NewManager(&stubPlanner{plan: planOf("a")}, &stubSearcher{}, &echoWriter{err: boom}, store, "", logger.NewTestLogger())
	_, err := m.Run(context.Background(), "q")

	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, filepath.Join(dir, DefaultReportName))
}

func TestSearchDirectivePrompt(t *testing.T) {
	d := SearchDirective{Query: "parameterized queries python", Reason: "fix the injection"}
	assert.Equal(t, "Search term: parameterized queries python\nReason for searching: fix the injection", d.Prompt())
}

func TestWriterInput(t *testing.T) {
	assert.Equal(t, "Original query: q\nSummarized search results: []", writerInput("q", nil))
	assert.Equal(t, "Original query: q\nSummarized search results: \n\n[1]\nx\n\n[2]\ny", writerInput("q", []string{"x", "y"}))
}
