// Package buildinfo carries the version stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/prometheus/common/version.Version=v1.2.0"
package buildinfo

import (
	"github.com/prometheus/common/version"
)

const Graffiti = " _                \n| | ___ __  _ __  \n| |/ / '_ \\| '_ \\ \n|   <| | | | | | |\n|_|\\_\\_| |_|_| |_|\n\n"

var Name = "knn"

func init() {
	if version.Version == "" {
		version.Version = "v0.0.0"
	}
}

type buildinfo struct{}

func (buildinfo) Tag() string {
	return version.Version
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return version.BuildDate
}

// String is the one-line version summary.
func (buildinfo) String() string {
	return version.Info()
}

// Details lists build user, date and Go version.
func (buildinfo) Details() string {
	return version.BuildContext()
}

var Info buildinfo
