package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ecomlab/shoplt/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	var (
		mu       sync.Mutex
		uploaded = map[string]string{}
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Contains(t, r.Header.Get("Authorization"), "AKID")

		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		mu.Lock()
		uploaded[r.URL.Path] = string(b)
		mu.Unlock()

		w.Header().Set("ETag", `"abc"`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	name := filepath.Join(dir, "run_stats.csv")
	require.NoError(t, os.WriteFile(name, []byte("Type,Name\n"), 0o600))

	locations, err := s3.Upload(context.Background(), s3.Flags{
		AccessKey: "AKID",
		SecretKey: "SECRET",
		URL:       srv.URL,
		Bucket:    "reports",
		Prefix:    "nightly",
		PathStyle: true,
	}, []string{name})
	require.NoError(t, err)

	require.Len(t, locations, 1)
	assert.Contains(t, locations[0], "/reports/nightly/run_stats.csv")
	assert.Equal(t, map[string]string{"/reports/nightly/run_stats.csv": "Type,Name\n"}, uploaded)
}

func TestUpload_missingFile(t *testing.T) {
	_, err := s3.Upload(context.Background(), s3.Flags{
		AccessKey: "AKID",
		SecretKey: "SECRET",
		URL:       "127.0.0.1:1",
		Bucket:    "reports",
		PathStyle: true,
	}, []string{filepath.Join(t.TempDir(), "absent.csv")})
	assert.Error(t, err)
}
