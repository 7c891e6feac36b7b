package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/event"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

type seenRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeES answers like a cluster; handler decides the status and body.
type fakeES struct {
	mu       sync.Mutex
	requests []seenRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, seenRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r)
}

func (f *fakeES) last() seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIndex(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*UserIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewUserIndex(es, "users", helpers.NewNopLogger()), fake
}

func status(code int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func TestApply_CreatedIndexesDocument(t *testing.T) {
	idx, fake := newIndex(t, status(http.StatusCreated, `{"result":"created"}`))
	u := entity.User{ID: "64b7f0c2a1b2c3d4e5f60718", Name: "Alice", Email: "alice@example.com", Age: 30, IsActive: true}

	require.NoError(t, idx.Apply(context.Background(), event.New(event.UserCreated, u)))

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/users/_doc/"+u.ID, req.Path)
	var doc entity.User
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, u, doc)
}

func TestApply_DeletedRemovesDocument(t *testing.T) {
	idx, fake := newIndex(t, status(http.StatusOK, `{"result":"deleted"}`))

	require.NoError(t, idx.Apply(context.Background(), event.New(event.UserDeleted, entity.User{ID: "abc"})))
	assert.Equal(t, http.MethodDelete, fake.last().Method)
	assert.Equal(t, "/users/_doc/abc", fake.last().Path)
}

func TestApply_DeleteMissingIsNotAnError(t *testing.T) {
	idx, _ := newIndex(t, status(http.StatusNotFound, `{"result":"not_found"}`))
	assert.NoError(t, idx.Delete(context.Background(), "abc"))
}

func TestApply_UnknownType(t *testing.T) {
	idx, _ := newIndex(t, status(http.StatusOK, `{}`))
	err := idx.Apply(context.Background(), event.Event{Type: "user.renamed"})
	assert.Error(t, err)
}

func TestPut_ClusterError(t *testing.T) {
	idx, _ := newIndex(t, status(http.StatusInternalServerError, `{"error":"boom"}`))
	err := idx.Put(context.Background(), entity.User{ID: "abc"})
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	idx, fake := newIndex(t, status(http.StatusOK, `{
		"hits": {"hits": [
			{"_id": "a1", "_source": {"id": "a1", "name": "Alice", "email": "alice@example.com", "age": 30, "is_active": true}},
			{"_id": "b2", "_source": {"name": "Alicia", "email": "alicia@example.com", "age": 25, "is_active": false}}
		]}
	}`))

	users, err := idx.Search(context.Background(), "ali", 5)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a1", users[0].ID)
	assert.Equal(t, "b2", users[1].ID, "falls back to the document id")
	assert.False(t, users[1].IsActive)

	req := fake.last()
	assert.Equal(t, "/users/_search", req.Path)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.EqualValues(t, 5, body["size"])
	mm := body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "ali", mm["query"])
	assert.Equal(t, []any{"email^2", "name"}, mm["fields"])
}

func TestSearch_MissingIndex(t *testing.T) {
	idx, _ := newIndex(t, status(http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`))
	users, err := idx.Search(context.Background(), "ali", 5)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
