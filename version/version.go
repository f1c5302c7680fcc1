// Package version reports build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/archbeaver/beaver/version.Version=v1.2.0 \
//	  -X github.com/archbeaver/beaver/version.CommitHash=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/archbeaver/beaver/errors"
)

var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("beaver %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns the abbreviated commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// Require returns an error unless the build version meets constraint
// (e.g. ">= 1.2, < 2"). Dev builds meet every constraint.
func (i Info) Require(constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %q", constraint)
	}
	if i.Version == "dev" {
		return nil
	}
	v, err := semver.NewVersion(i.Version)
	if err != nil {
		return errors.Wrapf(err, "invalid build version %q", i.Version)
	}
	if !c.Check(v) {
		return errors.NewValidationError("beaver %s does not satisfy %s", i.Version, constraint)
	}
	return nil
}
