package extension

import (
	"fmt"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/afero"

	elua "github.com/dshills/reabridge/internal/extension/lua"
)

// Check reports why info could not be started on a host of hostVersion,
// without running any of its code. A nil hostVersion skips the version check.
func (l *Loader) Check(info *Info, hostVersion *semver.Version) error {
	if info.Err != nil {
		return info.Err
	}
	if !info.Manifest.CompatibleWith(hostVersion) {
		return fmt.Errorf("%w: needs %s, host is %s", ErrIncompatibleHost, info.Manifest.MinHostVersion, hostVersion)
	}
	src, err := afero.ReadFile(l.fs, info.Manifest.MainPath())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoEntryPoint, err)
	}
	return elua.Compile(string(src), info.Manifest.MainPath())
}
