// Package storage keeps uploaded gallery images and plan PDFs on a
// filesystem and maps them to the public URLs stored in the database.
package storage

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// Directories inside the upload root
const (
	DirProperties = "properties"
	DirPlans      = "plans"
)

// ErrOutsideStore is returned for URLs that do not point into the store
var ErrOutsideStore = errors.New("url is outside the upload store")

var (
	whitespace  = regexp.MustCompile(`\s+`)
	unsafeChars = regexp.MustCompile(`[^a-z0-9._-]`)
)

// Store is an upload root exposed under a public URL prefix
type Store struct {
	fs         afero.Fs
	publicPath string
}

// New wraps fs, which must already be rooted at the upload directory
func New(fs afero.Fs, publicPath string) *Store {
	return &Store{fs: fs, publicPath: "/" + strings.Trim(publicPath, "/")}
}

// NewDiskStore creates dir if needed and serves it under publicPath
func NewDiskStore(dir, publicPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), publicPath), nil
}

// Save writes data to dir/name and returns its public URL
func (s *Store) Save(dir, name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	rel := path.Join(dir, name)
	if err := afero.WriteFile(s.fs, rel, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return s.PublicURL(rel), nil
}

// Remove deletes the file behind publicURL
func (s *Store) Remove(publicURL string) error {
	rel, err := s.relPath(publicURL)
	if err != nil {
		return err
	}
	return s.fs.Remove(rel)
}

// Exists reports whether publicURL resolves to a stored file
func (s *Store) Exists(publicURL string) (bool, error) {
	rel, err := s.relPath(publicURL)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, rel)
}

// Walk calls fn with the public URL of every file below dir
func (s *Store) Walk(dir string, fn func(publicURL string, info os.FileInfo) error) error {
	if ok, err := afero.DirExists(s.fs, dir); err != nil || !ok {
		return err
	}
	return afero.Walk(s.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return fn(s.PublicURL(p), info)
	})
}

// PublicURL maps a path relative to the store root onto its URL
func (s *Store) PublicURL(rel string) string {
	return s.publicPath + "/" + strings.TrimPrefix(path.Clean("/"+rel), "/")
}

// PublicPath returns the URL prefix of the store
func (s *Store) PublicPath() string {
	return s.publicPath
}

// FileSystem exposes the store for static serving
func (s *Store) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs)
}

func (s *Store) relPath(publicURL string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(publicURL))
	prefix := s.publicPath + "/"
	if !strings.HasPrefix(clean, prefix) {
		return "", fmt.Errorf("%w: %s", ErrOutsideStore, publicURL)
	}
	return strings.TrimPrefix(clean, prefix), nil
}

// SafeName lowercases an uploaded file name and keeps only [a-z0-9._-]
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespace.ReplaceAllString(name, "-")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	if name == "" {
		return "file"
	}
	return name
}
