package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const name = "pushhooks"

// Version returns the module version or "dev" when unset.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "dev"
	}
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		return "dev"
	}
	return version
}

// Revision returns the VCS revision recorded at build time, if any.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}

// String describes the binary for `pushhooks version`.
func String() string {
	rev := Revision()
	if rev == "" {
		return fmt.Sprintf("%s %s", name, Version())
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return fmt.Sprintf("%s %s (%s)", name, Version(), rev)
}

// UserAgent identifies outbound requests to the build service.
func UserAgent() string {
	return name + "/" + Version()
}
