package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/holoconf/holo"
)

// HTTPClient returns a retrying HTTP client for FetchUrl actions.
// Transport-level failures (timeouts, connection resets, 5xx responses)
// are retried with exponential backoff; a hash mismatch on the
// downloaded body is never retried, since the bytes are already in hand.
func HTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = 3
	return c
}

// cacheEntryFile is the name a cached download is stored under inside its
// own hash-named directory, <cacheDir>/<sha256>/data.
const cacheEntryFile = "data"

// FetchURL downloads url into the shared content-addressed cache at
// <cacheDir>/<expectedHex>/data (reused across builds without a network
// round trip when already present and correctly hashed), then copies it
// into <stagingDir>/downloads/<derived-filename> for this build's own
// hermetic output.
func FetchURL(client *retryablehttp.Client, cacheDir, stagingDir, rawURL, expectedHex string) (string, error) {
	cached, err := ensureCached(client, cacheDir, rawURL, expectedHex)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(stagingDir, "downloads")
	if err := os.MkdirAll(destDir, 0o777); err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}
	dest := filepath.Join(destDir, derivedFilename(rawURL))
	if err := copyFile(cached, dest); err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}
	return dest, nil
}

// ensureCached returns the path of a correctly-hashed cache entry for
// rawURL/expectedHex, downloading it if absent or corrupt.
func ensureCached(client *retryablehttp.Client, cacheDir, rawURL, expectedHex string) (string, error) {
	entryDir := filepath.Join(cacheDir, expectedHex)
	dest := filepath.Join(entryDir, cacheEntryFile)

	if existing, err := hashFile(dest); err == nil && existing == expectedHex {
		return dest, nil
	}

	if err := os.MkdirAll(entryDir, 0o777); err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}

	resp, err := client.Get(rawURL)
	if err != nil {
		return "", &holo.FetchFailedError{URL: rawURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &holo.FetchFailedError{URL: rawURL, Message: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	tmp := dest + ".downloading"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", &holo.FetchFailedError{URL: rawURL, Message: err.Error()}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("fetch_url: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expectedHex {
		os.Remove(tmp)
		return "", &holo.HashMismatchError{URL: rawURL, Expected: expectedHex, Actual: actual}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("fetch_url: %w", err)
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".copying"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

func derivedFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
