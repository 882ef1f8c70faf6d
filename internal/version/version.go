// Package version exposes build and version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// These are overridable with ldflags at build time.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// GetInfo returns the version string, including a short commit hash
// when one is known.
func GetInfo() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					CommitHash = setting.Value
				case "vcs.time":
					BuildTime = setting.Value
				}
			}
		}
	}

	res := Version
	if CommitHash != "" {
		hash := CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		res = fmt.Sprintf("%s (%s)", res, hash)
	}
	return res
}
