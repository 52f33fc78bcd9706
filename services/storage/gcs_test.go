package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS serves the subset of the JSON API used by GCSRemote.
type fakeGCS struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const objPrefix = "/storage/v1/b/bkt/o/"
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/bkt/o"):
		body, _ := io.ReadAll(r.Body)
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "multipart"
		}
		f.uploads = append(f.uploads, name)
		f.objects[name] = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"`+name+`","bucket":"bkt"}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, objPrefix):
		data, ok := f.objects[strings.TrimPrefix(r.URL.Path, objPrefix)]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"No such object"}}`)
			return
		}
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, objPrefix):
		key := strings.TrimPrefix(r.URL.Path, objPrefix)
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"No such object"}}`)
			return
		}
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newFakeGCSRemote(t *testing.T) (*GCSRemote, *fakeGCS) {
	t.Helper()
	fake := &fakeGCS{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	remote, err := NewGCSRemote(context.Background(), "bkt",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return remote, fake
}

func TestGCSRemoteDownload(t *testing.T) {
	remote, fake := newFakeGCSRemote(t)
	fake.objects["db/jobs.db"] = []byte("sqlite bytes")

	var buf bytes.Buffer
	require.NoError(t, remote.Download(context.Background(), "db/jobs.db", &buf))
	assert.Equal(t, "sqlite bytes", buf.String())
	assert.Equal(t, "gs://bkt", remote.Name())
}

func TestGCSRemoteMissingObject(t *testing.T) {
	remote, _ := newFakeGCSRemote(t)

	err := remote.Download(context.Background(), "db/jobs.db", io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	err = remote.Delete(context.Background(), "db/jobs.db")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestGCSRemoteUpload(t *testing.T) {
	remote, fake := newFakeGCSRemote(t)

	require.NoError(t, remote.Upload(context.Background(), "jd_files/1/a.txt", strings.NewReader("payload"), "text/plain"))
	require.Len(t, fake.uploads, 1)
	for _, body := range fake.objects {
		assert.Contains(t, string(body), "payload")
	}
}
