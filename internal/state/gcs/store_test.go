package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
	"github.com/theresaanna/san-x-monitor/internal/state/gcs"
)

const (
	bucketName = "test-bucket"
	objectName = "sanx_hash.json"
)

// newTestStore creates a Store whose client talks to a test server.
func newTestStore(t *testing.T, handler http.Handler) *gcs.Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcsclient.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := gcs.New(client, gcs.Config{Bucket: bucketName, Object: objectName})
	require.NoError(t, err)
	return store
}

func TestNewValidation(t *testing.T) {
	_, err := gcs.New(nil, gcs.Config{Bucket: bucketName, Object: objectName})
	assert.Error(t, err)

	client, err := gcsclient.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	_, err = gcs.New(client, gcs.Config{Object: objectName})
	assert.Error(t, err)
	_, err = gcs.New(client, gcs.Config{Bucket: bucketName})
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	// This handler simulates the GCS JSON API for multipart uploads.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, fmt.Sprintf("/upload/storage/v1/b/%s/o", bucketName))
		assert.Equal(t, objectName, r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"hash": "abc"`)
		assert.Contains(t, string(body), `"month_str": "202403_new"`)

		fmt.Fprintln(w, `{ "name": "`+objectName+`", "bucket": "`+bucketName+`" }`)
	})
	store := newTestStore(t, handler)

	err := store.Save(context.Background(), monitor.State{
		Fingerprint: "abc",
		URL:         "https://shop.san-x.co.jp/feature/index/202403_new",
		Period:      "202403_new",
		LastCheck:   time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}

func TestSaveError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestStore(t, handler)

	err := store.Save(context.Background(), monitor.State{Fingerprint: "abc"})
	var persistErr *monitor.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "save", persistErr.Op)
	assert.Equal(t, "gcs", persistErr.Backend)
}

func TestLoad(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasSuffix(r.URL.Path, "/"+objectName) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hash":"abc","url":"https://shop.san-x.co.jp/feature/index/202403_new",`+
			`"month_str":"202403_new","last_check":"2024-03-15T09:00:00"}`)
	})
	store := newTestStore(t, handler)

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.Fingerprint("abc"), st.Fingerprint)
	assert.Equal(t, "202403_new", st.Period)
}

func TestLoadMissingObject(t *testing.T) {
	store := newTestStore(t, http.NotFoundHandler())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, monitor.ErrNoState)
}

func TestLoadCorruptObject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/"+objectName) {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"hash":`)
	})
	store := newTestStore(t, handler)

	_, err := store.Load(context.Background())
	var persistErr *monitor.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "load", persistErr.Op)
}
