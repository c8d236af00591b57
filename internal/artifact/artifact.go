// Package artifact publishes transcoded audio as static files and forms the
// public URLs the voice platform fetches them from.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nadzzz/voxbridge/internal/config"
)

// Artifact is one published audio file.
type Artifact struct {
	ID   string
	Path string
	URL  string
	Size int
}

// StorageError reports a failed filesystem operation while publishing.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("artifact: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Publisher writes artifacts under {static_root}/{directory}.
type Publisher struct {
	dir       string
	urlPrefix string
	directory string
	ext       string
}

// New creates a Publisher and makes sure the target directory exists.
// baseURL is the externally reachable origin, e.g. https://voice.example.com.
func New(cfg config.ArtifactsConfig, baseURL string) (*Publisher, error) {
	directory := strings.Trim(cfg.Directory, "/")
	if directory == "" {
		return nil, errors.New("artifact: directory must not be empty")
	}
	if cfg.StaticRoot == "" {
		return nil, errors.New("artifact: static root must not be empty")
	}
	if baseURL == "" {
		return nil, errors.New("artifact: public base url must not be empty")
	}
	ext := strings.TrimPrefix(cfg.Extension, ".")
	if ext == "" {
		ext = "mp3"
	}

	dir := filepath.Join(cfg.StaticRoot, filepath.FromSlash(directory))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	return &Publisher{
		dir:       dir,
		urlPrefix: strings.TrimRight(baseURL, "/") + "/" + directory + "/",
		directory: directory,
		ext:       ext,
	}, nil
}

// Dir returns the directory artifacts are written to.
func (p *Publisher) Dir() string { return p.dir }

// Directory returns the URL path segment artifacts are served under.
func (p *Publisher) Directory() string { return p.directory }

// Publish writes audio under a fresh random name and returns its public URL.
// The file is fully written and renamed into place before the URL is
// returned, so readers never observe a partial file.
func (p *Publisher) Publish(ctx context.Context, audio []byte) (*Artifact, error) {
	if len(audio) == 0 {
		return nil, errors.New("artifact: refusing to publish empty audio")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := id + "." + p.ext
	final := filepath.Join(p.dir, name)

	tmp, err := os.CreateTemp(p.dir, ".tmp-"+id+"-*")
	if err != nil {
		return nil, &StorageError{Op: "create", Path: p.dir, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(audio); err != nil {
		_ = tmp.Close()
		return nil, &StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, &StorageError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &StorageError{Op: "close", Path: tmpName, Err: err}
	}
	// CreateTemp uses 0600; published files are read by the static server and proxies.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return nil, &StorageError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, final); err != nil {
		return nil, &StorageError{Op: "rename", Path: final, Err: err}
	}
	committed = true

	a := &Artifact{ID: id, Path: final, URL: p.urlPrefix + name, Size: len(audio)}
	slog.Debug("artifact published", "id", id, "bytes", a.Size, "url", a.URL)
	return a, nil
}

// Resolve maps a URL returned by Publish back to the file it names.
func (p *Publisher) Resolve(rawURL string) (string, error) {
	rest, ok := strings.CutPrefix(rawURL, p.urlPrefix)
	if !ok {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("artifact: parsing url: %w", err)
		}
		rest, ok = strings.CutPrefix(u.Path, "/"+p.directory+"/")
		if !ok {
			return "", fmt.Errorf("artifact: %q is not under /%s/", rawURL, p.directory)
		}
	}
	name := path.Clean(rest)
	if name == "." || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact: invalid artifact name %q", rest)
	}
	return filepath.Join(p.dir, name), nil
}
