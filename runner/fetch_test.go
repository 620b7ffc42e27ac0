package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
)

func TestFetchURLDownloadsAndVerifies(t *testing.T) {
	body := []byte("holo")
	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	stagingDir := t.TempDir()

	path, err := FetchURL(HTTPClient(), cacheDir, stagingDir, srv.URL+"/artifact.bin", expected)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stagingDir, "downloads", "artifact.bin"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, body, data)

	cacheEntry := filepath.Join(cacheDir, expected, cacheEntryFile)
	_, err = os.Stat(cacheEntry)
	require.NoError(t, err)
}

func TestFetchURLReusesCacheWithoutRequest(t *testing.T) {
	body := []byte("cached")
	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(body)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()

	_, err := FetchURL(HTTPClient(), cacheDir, t.TempDir(), srv.URL+"/x.bin", expected)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = FetchURL(HTTPClient(), cacheDir, t.TempDir(), srv.URL+"/x.bin", expected)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestFetchURLHashMismatchIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("wrong bytes"))
	}))
	defer srv.Close()

	_, err := FetchURL(HTTPClient(), t.TempDir(), t.TempDir(), srv.URL+"/x.bin", "0000000000000000000000000000000000000000000000000000000000000000")
	require.Error(t, err)
	var mismatch *holo.HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 1, calls)
}
