package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/dl-alexandre/mrisync/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get reports the linker-stamped build, falling back to the module version
// and VCS stamp embedded by `go install` or `go build` in a checkout.
func Get() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		info.fillFrom(build)
	}
	return info
}

func (i *Info) fillFrom(build *debug.BuildInfo) {
	if i.Version == "dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		i.Version = build.Main.Version
	}
	fromBuild := i.GitCommit == "unknown"
	dirty := false
	for _, s := range build.Settings {
		switch s.Key {
		case "vcs.revision":
			if fromBuild {
				i.GitCommit = shortRevision(s.Value)
			}
		case "vcs.time":
			if i.BuildTime == "unknown" {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if fromBuild && dirty && i.GitCommit != "unknown" {
		i.GitCommit += "-dirty"
	}
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func (i *Info) String() string {
	return fmt.Sprintf("mrisync %s (%s) built %s", i.Version, i.GitCommit, i.BuildTime)
}

// UserAgent identifies this tool in Drive API requests
func (i *Info) UserAgent() string {
	return fmt.Sprintf("mrisync/%s (%s)", i.Version, i.Platform)
}
