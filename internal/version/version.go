// Package version holds build metadata of the hugotest CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/fatih/color"
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Pretty returns Version with its numeric components colored. Versions that
// do not parse are returned unchanged.
func Pretty() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return Version
	}
	out := fmt.Sprintf("%s.%s.%s",
		versionMajorColor.Sprint(v.Major()),
		versionMinorColor.Sprint(v.Minor()),
		versionPatchColor.Sprint(v.Patch()))
	if pre := v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if meta := v.Metadata(); meta != "" {
		out += "+" + meta
	}
	return out
}
