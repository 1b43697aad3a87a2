package resources

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/wbrown/piecewise/internal/logger"
)

// WriteCounter counts the bytes written to it and logs progress at most
// every Interval.
type WriteCounter struct {
	Total    uint64
	Last     time.Time
	Interval time.Duration
	Reported bool
	Path     string
	Size     uint64
	Logger   *log.Logger
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last) > wc.Interval {
		wc.Reported = true
		wc.Last = time.Now()
		if wc.Logger != nil {
			wc.Logger.Infof("Downloading %s... %s / %s completed.",
				wc.Path, humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
		}
	}
	return n, nil
}

// Resolver turns model URIs into local paths, downloading remote models
// into Dir.
type Resolver struct {
	Dir    string
	Auth   string
	Client *http.Client
	// ProgressInterval defaults to ten seconds.
	ProgressInterval time.Duration
}

// ResolveModel resolves uri with a default Resolver downloading into dir.
func ResolveModel(uri, dir string) (string, error) {
	return (&Resolver{Dir: dir}).Resolve(uri)
}

// Resolve returns a local path for uri. Local paths must exist. For http and
// https URIs the file is downloaded into Dir unless a file of the remote size
// is already there.
func (resolver *Resolver) Resolve(uri string) (string, error) {
	rlog := logger.New("resolver")
	if !isValidUrl(uri) {
		if _, err := os.Stat(uri); err != nil {
			return "", fmt.Errorf("cannot resolve model %s: %w", uri, err)
		}
		return uri, nil
	}

	u, _ := url.Parse(uri)
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("cannot derive a file name from %s", uri)
	}
	client := resolver.Client
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(resolver.Dir, 0755); err != nil {
		return "", err
	}
	targetPath := filepath.Join(resolver.Dir, name)

	rlog.Info("resolving", "uri", uri)
	size, err := SizeHTTP(client, uri, resolver.Auth)
	if err != nil {
		return "", fmt.Errorf("cannot retrieve `%s`: %w", uri, err)
	}
	if stat, statErr := os.Stat(targetPath); statErr == nil &&
		uint64(stat.Size()) == size {
		rlog.Info("skipping download, already exists with the correct size",
			"path", targetPath, "size", humanize.Bytes(size))
		return targetPath, nil
	}

	reader, err := FetchHTTP(client, uri, resolver.Auth)
	if err != nil {
		return "", fmt.Errorf("cannot retrieve `%s`: %w", uri, err)
	}
	defer reader.Close()

	partial, err := os.CreateTemp(resolver.Dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("error opening '%s' for write: %w", name, err)
	}
	interval := resolver.ProgressInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	counter := &WriteCounter{
		Last:     time.Now(),
		Interval: interval,
		Path:     uri,
		Size:     size,
		Logger:   rlog,
	}
	downloaded, copyErr := io.Copy(partial, io.TeeReader(reader, counter))
	closeErr := partial.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(partial.Name())
		return "", fmt.Errorf("error downloading '%s': %w", uri, err)
	}
	if uint64(downloaded) != size {
		os.Remove(partial.Name())
		return "", fmt.Errorf("error downloading '%s': got %s of %s", uri,
			humanize.Bytes(uint64(downloaded)), humanize.Bytes(size))
	}
	if err := os.Rename(partial.Name(), targetPath); err != nil {
		os.Remove(partial.Name())
		return "", err
	}
	rlog.Info("downloaded", "uri", uri, "path", targetPath,
		"size", humanize.Bytes(uint64(downloaded)))
	return targetPath, nil
}
