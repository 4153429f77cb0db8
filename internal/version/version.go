// Package version reports build metadata and the embedded script runtime.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	lua "github.com/yuin/gopher-lua"
)

// Set at link time with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("crabshell %s (commit=%s, date=%s, go=%s, lua=%s)",
		resolvedVersion(), Commit, Date, runtime.Version(), lua.LuaVersion)
}

// resolvedVersion falls back to the module version recorded by
// `go install pkg@version` when nothing was linked in.
func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
