package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Loader discovers extensions on a file system.
type Loader struct {
	fs    afero.Fs
	paths []string
}

// Info describes a discovered extension.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the search paths. Earlier paths take precedence.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// WithFs sets the file system to search. Defaults to the OS file system.
func WithFs(fsys afero.Fs) LoaderOption {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// NewLoader creates a new extension loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Fs returns the file system the loader searches.
func (l *Loader) Fs() afero.Fs {
	return l.fs
}

// Discover finds all extensions in the search paths, sorted by name.
// Missing paths are skipped. Extensions with broken manifests are returned
// with Err set.
func (l *Loader) Discover() ([]*Info, error) {
	found := make(map[string]*Info)
	for _, base := range l.paths {
		if err := l.discoverInPath(base, found); err != nil {
			return nil, err
		}
	}

	infos := make([]*Info, 0, len(found))
	for _, info := range found {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// Find discovers the extension called name.
func (l *Loader) Find(name string) (*Info, error) {
	infos, err := l.Discover()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (l *Loader) discoverInPath(base string, found map[string]*Info) error {
	entries, err := afero.ReadDir(l.fs, base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", base, err)
	}

	for _, entry := range entries {
		var info *Info
		if entry.IsDir() {
			info = l.inspectDir(entry.Name(), filepath.Join(base, entry.Name()))
		} else if filepath.Ext(entry.Name()) == ".lua" {
			name := strings.TrimSuffix(entry.Name(), ".lua")
			manifest := NewManifestMinimal(name, base)
			manifest.Main = entry.Name()
			manifest.single = true
			info = &Info{Name: name, Path: base, Manifest: manifest}
			if err := manifest.Validate(); err != nil {
				info.Err = err
			}
		} else {
			continue
		}

		// First path wins.
		if _, exists := found[info.Name]; !exists {
			found[info.Name] = info
		}
	}
	return nil
}

func (l *Loader) inspectDir(name, dir string) *Info {
	info := &Info{Name: name, Path: dir}

	manifestPath := filepath.Join(dir, ManifestFile)
	if ok, _ := afero.Exists(l.fs, manifestPath); ok {
		manifest, err := LoadManifest(l.fs, manifestPath)
		if err != nil {
			info.Err = err
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		if ok, _ := afero.Exists(l.fs, manifest.MainPath()); !ok {
			info.Err = fmt.Errorf("%w: %s", ErrNoEntryPoint, manifest.MainPath())
		}
		return info
	}

	if ok, _ := afero.Exists(l.fs, filepath.Join(dir, DefaultMain)); ok {
		info.Manifest = NewManifestMinimal(name, dir)
		if err := info.Manifest.Validate(); err != nil {
			info.Err = err
		}
		return info
	}

	info.Err = ErrNoEntryPoint
	return info
}
