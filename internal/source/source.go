// Package source manages the per-source directories of uploaded images and
// serves their extracted text as the corpus for retrieval.
package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/homework-assistant/internal/ocr"
)

var (
	ErrNotFound    = errors.New("source not found")
	ErrExists      = errors.New("source already exists")
	ErrInvalidName = errors.New("invalid source name")
	ErrInvalidType = errors.New("invalid file type")
)

// imageExts are the source file types that are shown and OCR'd.
var imageExts = []string{".png", ".jpg", ".jpeg"}

const textExt = ".txt"

// Provider returns the ordered text blocks of a source.
type Provider interface {
	ReadSources(ctx context.Context, name string) ([]string, error)
}

// Source is a named directory of uploaded images.
type Source struct {
	Name   string   `json:"name" yaml:"name"`
	Images []string `json:"images" yaml:"images"`
}

// Manager is a directory-backed source store. Extracted text is cached next
// to each image as <basename>.txt.
type Manager struct {
	dir string
	ocr ocr.Extractor
}

// NewManager creates a Manager rooted at dir. ex may be nil when only cached
// text is expected.
func NewManager(dir string, ex ocr.Extractor) *Manager {
	return &Manager{dir: dir, ocr: ex}
}

// Dir returns the root directory.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(m.dir, name), nil
}

func (m *Manager) existing(name string) (string, error) {
	p, err := m.path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// List returns every source with its images, sorted by name.
func (m *Manager) List() ([]Source, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Source{}, nil
		}
		return nil, eris.Wrap(err, "source: list")
	}

	out := make([]Source, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		images, err := listImages(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Source{Name: e.Name(), Images: images})
	}
	return out, nil
}

// Get returns one source.
func (m *Manager) Get(name string) (*Source, error) {
	p, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	images, err := listImages(p)
	if err != nil {
		return nil, err
	}
	return &Source{Name: name, Images: images}, nil
}

// Create makes an empty source directory.
func (m *Manager) Create(name string) error {
	p, err := m.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return ErrExists
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return eris.Wrapf(err, "source: create %s", name)
	}
	zap.L().Info("source created", zap.String("source", name))
	return nil
}

// Delete removes a source and everything in it.
func (m *Manager) Delete(name string) error {
	p, err := m.existing(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return eris.Wrapf(err, "source: delete %s", name)
	}
	zap.L().Info("source deleted", zap.String("source", name))
	return nil
}

// Upload stores an image in a source. Any cached text for a previous file of
// the same name is dropped.
func (m *Manager) Upload(name, filename string, r io.Reader) error {
	p, err := m.existing(name)
	if err != nil {
		return err
	}
	filename = filepath.Base(filename)
	if !IsImage(filename) {
		return ErrInvalidType
	}

	dst := filepath.Join(p, filename)
	f, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "source: create %s", filename)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "source: write %s", filename)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "source: close %s", filename)
	}

	_ = os.Remove(cachePath(dst))
	return nil
}

// DeleteFiles removes the named files and their cached text. Missing files
// are ignored.
func (m *Manager) DeleteFiles(name string, filenames []string) error {
	p, err := m.existing(name)
	if err != nil {
		return err
	}
	for _, fn := range filenames {
		target := filepath.Join(p, filepath.Base(fn))
		for _, f := range []string{target, cachePath(target)} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				return eris.Wrapf(err, "source: delete %s", fn)
			}
		}
	}
	return nil
}

// ReadSources returns one text block per image, in file name order. Cached
// text is used when present; otherwise the image is OCR'd and the result
// cached. Images that fail OCR are skipped and retried on the next read.
func (m *Manager) ReadSources(ctx context.Context, name string) ([]string, error) {
	p, err := m.existing(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", name)
	}

	log := zap.L().With(zap.String("source", name))
	var blocks []string
	for _, e := range entries {
		if e.IsDir() || strings.EqualFold(filepath.Ext(e.Name()), textExt) {
			continue
		}
		file := filepath.Join(p, e.Name())
		cache := cachePath(file)

		if text, err := readText(cache); err == nil {
			blocks = append(blocks, text)
			continue
		}
		if !IsImage(e.Name()) {
			continue
		}
		if m.ocr == nil {
			log.Warn("source: no OCR provider, skipping image", zap.String("file", e.Name()))
			continue
		}

		text, err := m.ocr.ExtractText(ctx, file)
		if err != nil {
			log.Warn("source: ocr failed", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		text = norm.NFC.String(text)
		if err := os.WriteFile(cache, []byte(text), 0o644); err != nil {
			log.Warn("source: cache ocr text", zap.String("file", e.Name()), zap.Error(err))
		}
		blocks = append(blocks, text)
	}
	return blocks, nil
}

// IsImage reports whether filename has a source image extension.
func IsImage(filename string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(filename)))
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "source: list %s", filepath.Base(dir))
	}
	images := []string{}
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			images = append(images, e.Name())
		}
	}
	return images, nil
}

// cachePath maps an image to its extracted-text file. The base name is
// lowercased so Page1.PNG and page1.png share a cache.
func cachePath(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(filepath.Dir(file), strings.ToLower(base)+textExt)
}

// readText reads a cached text file, normalizing it to NFC.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(transform.NewReader(f, norm.NFC))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
