package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time:
//
//	-ldflags "-X thzgateway/pkg/version.version=... -X thzgateway/pkg/version.gitCommit=$(git rev-parse HEAD)"
var (
	version   = "v1.0.0"
	gitCommit = ""
	buildDate = "1970-01-01T00:00:00Z"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (info Info) String() string {
	return info.Version
}
