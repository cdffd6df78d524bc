package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hairizuanbinnoorazman/ohacker/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fowasp.org%2Fwww-community%2Fattacks%2FSQL_Injection&rut=x">SQL   Injection | OWASP</a>
  <a class="result__snippet">Parameterized   queries prevent injection.</a>
</div>
<div class="result">
  <a class="result__a" href="https://cheatsheetseries.owasp.org/">Cheat Sheet</a>
  <div class="result__snippet">Use prepared statements.</div>
</div>
<div class="result"><span>no link</span></div>
<div class="result">
  <a class="result__a" href="https://example.com/3">Third</a>
</div>
</body></html>`

func newSearchServer(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(resultsPage))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotQuery
}

func TestSearch(t *testing.T) {
	srv, gotQuery := newSearchServer(t)
	c := New(Config{Endpoint: srv.URL + "/html/", MaxResults: 2})

	results, err := c.Search(context.Background(), "  sql injection fix  ")
	require.NoError(t, err)
	assert.Equal(t, "sql injection fix", *gotQuery)

	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Title:   "SQL Injection | OWASP",
		URL:     "https://owasp.org/www-community/attacks/SQL_Injection",
		Snippet: "Parameterized queries prevent injection.",
	}, results[0])
	assert.Equal(t, "https://cheatsheetseries.owasp.org/", results[1].URL)
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := New(Config{}).Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(Config{Endpoint: srv.URL}).Search(context.Background(), "x")
	assert.ErrorContains(t, err, "429")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title> Fix SQLi </title><style>body{}</style></head>
<body><script>var x = 1;</script><h1>Use</h1>
<p>prepared    statements</p></body></html>`))
	}))
	defer srv.Close()

	page, err := New(Config{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Fix SQLi", page.Title)
	assert.Equal(t, "Use prepared statements", page.Text)
}

func TestFetch_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<body>" + strings.Repeat("a ", 100) + "</body>"))
	}))
	defer srv.Close()

	page, err := New(Config{MaxChars: 10}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "a a a a a …", page.Text)
}

func TestFetch_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://x", "not a url", "/relative"} {
		_, err := New(Config{}).Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidURL, u)
	}
}

func TestTools(t *testing.T) {
	srv, _ := newSearchServer(t)
	c := New(Config{Endpoint: srv.URL})

	search := c.SearchTool()
	assert.Equal(t, agent.ToolKindFunction, search.Kind())
	assert.Equal(t, "web_search", search.Definition().Name)

	res, err := search.Call(context.Background(), json.RawMessage(`{"query":"sqli"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "1. SQL Injection | OWASP")
	assert.Contains(t, res.Content, "3. Third")

	fetch := c.FetchTool()
	res, err = fetch.Call(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Cheat Sheet")

	_, err = fetch.Call(context.Background(), json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "No results.", formatResults(nil))
}
