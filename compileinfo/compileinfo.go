// Package compileinfo reports the VCS stamp that the Go toolchain embeds in
// the binary.
package compileinfo

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary (%s) was built with %s at commit %v at time %v.%s", c.Package, c.Version, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// LogValue lets a CompileInfo be passed directly as a slog attribute.
func (c CompileInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("package", c.Package),
		slog.String("version", c.Version),
		slog.String("go", c.GoVersion),
		slog.String("commit", c.Commit),
		slog.String("commit_time", c.CommitTime),
		slog.Bool("modified", c.Modified),
	)
}

func Get() CompileInfo {
	out := CompileInfo{Version: "(devel)"}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	if z.Main.Version != "" {
		out.Version = z.Main.Version
	}
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
