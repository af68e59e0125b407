package gtfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/subway-path/internal/logging"
)

func TestDownload(t *testing.T) {
	feed, err := os.ReadFile(writeFeed(t, sampleFeed()))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gtfs.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write(feed)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := Download(context.Background(), srv.URL+"/gtfs.zip", dir)
	require.NoError(t, err)

	data, err := Parse(path, logging.NewNop())
	require.NoError(t, err)
	assert.Len(t, data.Routes, 1)

	_, err = Download(context.Background(), srv.URL+"/missing.zip", dir)
	assert.ErrorContains(t, err, "status 404")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/gtfs.zip"))
	assert.True(t, IsRemote("http://localhost/gtfs.zip"))
	assert.False(t, IsRemote("data/gtfs.zip"))
}
