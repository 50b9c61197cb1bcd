package redash

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// fakeRedash is an in-memory Redash server that speaks enough of the REST API for the client.
type fakeRedash struct {
	mu sync.Mutex

	apiKey      string
	dataSources []map[string]interface{}
	queries     []map[string]interface{}
	data        map[string]interface{}
	// immediate answers POST /query_results with the result instead of a job.
	immediate bool
	// statuses is the job status returned by each poll. The last one repeats.
	statuses []interface{}
	jobError string
	gzip     bool
	// onPoll, if set, is called on every poll before answering.
	onPoll func(n int)
	// status, if set, replaces every answer with this status code and body.
	status     int
	statusBody string

	polls     int
	requests  []string
	headers   []http.Header
	submitted []map[string]interface{}
	created   []map[string]interface{}
}

func newFakeRedash() *fakeRedash {
	return &fakeRedash{
		apiKey: testAPIKey,
		dataSources: []map[string]interface{}{
			{"id": 1, "name": "pg", "type": "pg"},
			{"id": "2", "name": "mysql", "type": "mysql"},
		},
		queries: []map[string]interface{}{
			{"id": 42, "name": "Weekly signups", "description": nil, "data_source_id": 1, "query": "SELECT * FROM signups"},
		},
		data: map[string]interface{}{
			"columns": []interface{}{
				map[string]interface{}{"name": "id", "type": "integer"},
				map[string]interface{}{"name": "name", "type": "string"},
				map[string]interface{}{"name": "score", "type": "float"},
				map[string]interface{}{"name": "active", "type": "boolean"},
				map[string]interface{}{"name": "created", "type": "datetime"},
				map[string]interface{}{"name": "tags", "type": nil},
			},
			"rows": []interface{}{
				map[string]interface{}{"id": 1, "name": "a", "score": 1.5, "active": true, "created": "2024-03-01T10:00:00Z", "tags": []interface{}{"x"}},
				map[string]interface{}{"id": "2", "name": nil, "score": nil, "active": "false", "created": nil},
			},
		},
		immediate: true,
		statuses:  []interface{}{"finished"},
	}
}

func (f *fakeRedash) router() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record, f.auth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/data_sources", f.listDataSources)
		r.Get("/queries", f.listQueries)
		r.Post("/queries", f.createQuery)
		r.Get("/queries/{id}", f.getQuery)
		r.Post("/query_results", f.execute)
		r.Get("/jobs/{id}", f.getJob)
		r.Get("/query_results/{id}", f.getResult)
	})
	return r
}

func (f *fakeRedash) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.headers = append(f.headers, r.Header.Clone())
		status, body := f.status, f.statusBody
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			io.WriteString(w, body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeRedash) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key "+f.apiKey {
			f.writeJSON(w, r, http.StatusUnauthorized, map[string]interface{}{"message": "Couldn't find resource. Please login and try again."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeRedash) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if f.gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(code)
		gz := gzip.NewWriter(w)
		gz.Write(b)
		gz.Close()
		return
	}
	w.WriteHeader(code)
	w.Write(b)
}

func (f *fakeRedash) decode(r *http.Request) map[string]interface{} {
	m := map[string]interface{}{}
	json.NewDecoder(r.Body).Decode(&m)
	return m
}

func (f *fakeRedash) listDataSources(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeJSON(w, r, http.StatusOK, f.dataSources)
}

func (f *fakeRedash) listQueries(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 25
	}

	start := min((page-1)*size, len(f.queries))
	end := min(start+size, len(f.queries))
	f.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"count":     len(f.queries),
		"page":      page,
		"page_size": size,
		"results":   append([]map[string]interface{}{}, f.queries[start:end]...),
	})
}

func (f *fakeRedash) findQuery(id string) map[string]interface{} {
	for _, q := range f.queries {
		if fmt.Sprint(q["id"]) == id {
			return q
		}
	}
	return nil
}

func (f *fakeRedash) getQuery(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := f.findQuery(chi.URLParam(r, "id"))
	if q == nil {
		f.writeJSON(w, r, http.StatusNotFound, map[string]interface{}{"message": "Not found"})
		return
	}
	f.writeJSON(w, r, http.StatusOK, q)
}

func (f *fakeRedash) createQuery(w http.ResponseWriter, r *http.Request) {
	req := f.decode(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.created = append(f.created, req)
	q := map[string]interface{}{
		"id":             100 + len(f.created),
		"name":           req["name"],
		"description":    req["description"],
		"data_source_id": req["data_source_id"],
		"query":          req["query"],
	}
	f.queries = append(f.queries, q)
	f.writeJSON(w, r, http.StatusOK, q)
}

func (f *fakeRedash) execute(w http.ResponseWriter, r *http.Request) {
	req := f.decode(r)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, req)
	if f.immediate {
		f.writeJSON(w, r, http.StatusOK, map[string]interface{}{"query_result": map[string]interface{}{"id": 9, "data": f.data}})
		return
	}
	f.writeJSON(w, r, http.StatusOK, map[string]interface{}{"job": map[string]interface{}{"id": "job-1", "status": 1}})
}

func (f *fakeRedash) getJob(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.polls++
	n := f.polls
	status := f.statuses[min(n, len(f.statuses))-1]
	onPoll := f.onPoll
	jobError := f.jobError
	f.mu.Unlock()

	if onPoll != nil {
		onPoll(n)
	}

	job := map[string]interface{}{"id": chi.URLParam(r, "id"), "status": status, "query_result_id": nil, "error": ""}
	switch status {
	case "finished", 3:
		job["query_result_id"] = 9
	case "failed", 4:
		job["error"] = jobError
	}
	f.writeJSON(w, r, http.StatusOK, map[string]interface{}{"job": job})
}

func (f *fakeRedash) getResult(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if chi.URLParam(r, "id") != "9" {
		f.writeJSON(w, r, http.StatusNotFound, map[string]interface{}{"message": "Not found"})
		return
	}
	f.writeJSON(w, r, http.StatusOK, map[string]interface{}{"query_result": map[string]interface{}{"id": 9, "data": f.data}})
}

func (f *fakeRedash) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeRedash) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeRedash) seenHeaders() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.headers...)
}

func (f *fakeRedash) submissions() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.submitted...)
}

func (f *fakeRedash) createdQueries() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.created...)
}

func (f *fakeRedash) setStatus(code int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.statusBody = code, body
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// serve starts f and returns a Config and the http.Client to reach it.
func serve(t *testing.T, f *fakeRedash) (*Config, *http.Client) {
	t.Helper()

	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return &Config{Host: u.Hostname(), Port: port, APIKey: testAPIKey}, srv.Client()
}

func fastPolling(c *Client) {
	c.pollInterval = time.Millisecond
}

func newTestClient(t *testing.T, f *fakeRedash, options ...Option) *Client {
	t.Helper()

	cfg, hc := serve(t, f)
	options = append([]Option{WithHTTPClient(hc), fastPolling}, options...)
	client, err := New(cfg, options...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}
