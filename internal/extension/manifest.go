package extension

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dshills/reabridge/internal/host"
)

// ManifestFile is the manifest name looked up in extension directories.
const ManifestFile = "extension.yaml"

// DefaultMain is the main script used when a manifest names none.
const DefaultMain = "init.lua"

// Manifest describes an extension.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`

	// Main is the path of the main script relative to the extension directory.
	Main string `yaml:"main"`

	// MinHostVersion is the oldest host version the extension runs on.
	MinHostVersion string `yaml:"min_host_version"`

	// Keys maps action names to default shortcuts such as "Ctrl+Alt+R".
	Keys map[string]string `yaml:"keys"`

	// path is the extension directory.
	path string
	// single is set for name.lua extensions, which share their directory.
	single bool
}

// namePattern validates extension names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// LoadManifest reads and validates the manifest at path.
func LoadManifest(fsys afero.Fs, path string) (*Manifest, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewManifestMinimal creates a manifest for an extension without one.
func NewManifestMinimal(name, dir string) *Manifest {
	m := &Manifest{Name: name, path: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: version %q", ErrInvalidVersion, m.Version)
	}
	if m.MinHostVersion != "" {
		if _, err := semver.NewVersion(m.MinHostVersion); err != nil {
			return fmt.Errorf("%w: min_host_version %q", ErrInvalidVersion, m.MinHostVersion)
		}
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	if _, err := m.KeyBindings(); err != nil {
		return err
	}
	return nil
}

// Path returns the extension directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main script.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// CompatibleWith reports whether the extension runs on hostVersion.
// A nil hostVersion is treated as compatible.
func (m *Manifest) CompatibleWith(hostVersion *semver.Version) bool {
	if m.MinHostVersion == "" || hostVersion == nil {
		return true
	}
	minVersion, err := semver.NewVersion(m.MinHostVersion)
	if err != nil {
		return false
	}
	return !hostVersion.LessThan(*minVersion)
}

// KeyBindings parses Keys.
func (m *Manifest) KeyBindings() (map[string]host.Accel, error) {
	names := make([]string, 0, len(m.Keys))
	for name := range m.Keys {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]host.Accel, len(m.Keys))
	for _, name := range names {
		accel, err := host.ParseAccel(m.Keys[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKey, name, err)
		}
		out[name] = accel
	}
	return out, nil
}

// owns reports whether path is part of the extension.
func (m *Manifest) owns(path string) bool {
	if m.single {
		return path == filepath.Clean(m.MainPath())
	}
	return within(m.path, path)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
